package writer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
)

type testEvent struct {
	event.DomainEvent
	Label string
}

func newJob(label string) *job {
	return &job{ev: &testEvent{DomainEvent: event.NewDomainEvent(), Label: label}, done: make(chan error, 1)}
}

func label(j *job) string {
	return j.ev.(*testEvent).Label
}

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	for _, l := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(newJob(l)))
	}

	for _, want := range []string{"A", "B", "C"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, label(j))
	}
}

func TestJobQueue_TryDequeue_Empty(t *testing.T) {
	q := newJobQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestJobQueue_Enqueue_AfterClose(t *testing.T) {
	q := newJobQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(newJob("late")), "enqueue after close should return false")
	assert.True(t, q.Closed())
}

func TestJobQueue_Close_WakesWaiter(t *testing.T) {
	q := newJobQueue()

	woke := make(chan struct{})
	go func() {
		<-q.Wait()
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake after close")
	}
}

func TestJobQueue_Len(t *testing.T) {
	q := newJobQueue()

	assert.Equal(t, 0, q.Len())
	q.Enqueue(newJob("1"))
	q.Enqueue(newJob("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestJobQueue_ThreadSafe(t *testing.T) {
	q := newJobQueue()

	const producers = 10
	const jobsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < jobsPerProducer; i++ {
				q.Enqueue(newJob("x"))
			}
		}()
	}
	wg.Wait()

	received := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		received++
	}
	assert.Equal(t, producers*jobsPerProducer, received)
}
