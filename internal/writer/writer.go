// Package writer serializes event saves from concurrent producers.
//
// SQLite has a single writer. Writer funnels every Publish call through one
// Run goroutine which saves the event and then hands it to the dispatcher,
// so subscribers only ever see events that are durably stored.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
)

// ErrClosed is returned by Publish once the writer has stopped.
var ErrClosed = errors.New("writer closed")

// Saver persists one event. *store.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, ev event.Event) error
}

type job struct {
	ctx  context.Context
	ev   event.Event
	done chan error // buffered, size 1
}

// Writer is a single-writer publish loop.
type Writer struct {
	saver      Saver
	dispatcher event.Dispatcher
	queue      *jobQueue
	logger     *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger for publish failures and loop lifecycle.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// New returns a Writer that saves through saver and then dispatches.
// Both collaborators are required.
func New(saver Saver, dispatcher event.Dispatcher, opts ...Option) (*Writer, error) {
	if saver == nil {
		return nil, storeerr.Argument("store", "must not be nil")
	}
	if dispatcher == nil {
		return nil, storeerr.Argument("dispatcher", "must not be nil")
	}

	w := &Writer{
		saver:      saver,
		dispatcher: dispatcher,
		queue:      newJobQueue(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	return w, nil
}

// Publish queues ev and waits until it has been saved and dispatched.
//
// The returned error is the save error, or the dispatch error wrapped with
// "dispatch". An event whose dispatch fails is still stored.
func (w *Writer) Publish(ctx context.Context, ev event.Event) error {
	if ev == nil {
		return storeerr.Argument("event", "must not be nil")
	}

	j := &job{ctx: ctx, ev: ev, done: make(chan error, 1)}
	if !w.queue.Enqueue(j) {
		return ErrClosed
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued events until ctx is cancelled or Stop is called.
//
// After Stop, already queued events are still processed before Run returns
// nil. On cancellation, queued events fail with ctx.Err().
func (w *Writer) Run(ctx context.Context) error {
	w.logger.Info("writer starting")

	for {
		if j, ok := w.queue.TryDequeue(); ok {
			j.done <- w.process(j)
			continue
		}

		select {
		case <-ctx.Done():
			w.logger.Info("writer stopping: context cancelled")
			w.queue.Close()
			w.drain(ctx.Err())
			return ctx.Err()

		case <-w.queue.Wait():
			// The signal channel closes when the queue is closed
			if w.queue.Closed() && w.queue.Len() == 0 {
				w.logger.Info("writer stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once pending events are processed.
func (w *Writer) Stop() {
	w.queue.Close()
}

// process saves and dispatches one event.
// Called only from the Run goroutine.
func (w *Writer) process(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	if err := w.saver.Save(j.ctx, j.ev); err != nil {
		w.logger.Error("save failed", "error", err)
		return err
	}

	if err := w.dispatcher.Dispatch(j.ctx, j.ev); err != nil {
		w.logger.Error("dispatch failed", "id", j.ev.Domain().ID, "error", err)
		return fmt.Errorf("dispatch: %w", err)
	}

	return nil
}

func (w *Writer) drain(err error) {
	for {
		j, ok := w.queue.TryDequeue()
		if !ok {
			return
		}
		j.done <- err
	}
}
