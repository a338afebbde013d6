package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderluca/mementofx-sqlite/internal/event"
	"github.com/thunderluca/mementofx-sqlite/internal/predicate"
	"github.com/thunderluca/mementofx-sqlite/internal/storeerr"
	"github.com/thunderluca/mementofx-sqlite/internal/testutil"
)

var dateModes = []struct {
	name string
	opt  Option
}{
	{"ticks", WithDateTimeAsTicks(true)},
	{"iso", WithDateTimeAsTicks(false)},
}

func TestFind_MissingTableIsEmpty(t *testing.T) {
	s := createTestStore(t)

	got, err := Find[PlainEvent](context.Background(), s, predicate.Field("Title").Eq("x"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFind_RoundTrip(t *testing.T) {
	ctx := context.Background()
	note := "director's cut"
	related := uuid.New()

	for _, mode := range dateModes {
		t.Run(mode.name, func(t *testing.T) {
			s := createTestStore(t, mode.opt)
			clock := testutil.NewDeterministicClockAt(testEpoch, 1500*time.Nanosecond)

			plain := plainEvent(clock.Next(), testAggregate, "Hello", 42.5)
			complexEv := &ComplexEvent{
				DomainEvent: clock.Event().OnTimeline(uuid.New()),
				MovieID:     uuid.New(),
				Related:     &related,
				Genre:       GenreDrama,
				Rating:      -3,
				Views:       1<<63 + 9,
				Released:    true,
				Runtime:     117 * time.Minute,
				Poster:      []byte("poster"),
				Cast:        Cast{Lead: "Harrison Ford", Support: []string{"Sean Young", "Rutger Hauer"}},
				Tags:        []string{"noir", "neon"},
				Extra:       map[string]int{"sequels": 1},
				Note:        &note,
			}
			require.NoError(t, s.Save(ctx, plain))
			require.NoError(t, s.Save(ctx, complexEv))

			gotPlain, err := Find[PlainEvent](ctx, s, predicate.Field("Id").Eq(plain.ID))
			require.NoError(t, err)
			require.Len(t, gotPlain, 1)
			assert.Equal(t, plain, gotPlain[0])

			gotComplex, err := Find[ComplexEvent](ctx, s, predicate.Field(event.ColumnID).Eq(complexEv.ID))
			require.NoError(t, err)
			require.Len(t, gotComplex, 1)
			assert.Equal(t, complexEv, gotComplex[0])
		})
	}
}

func TestFind_NilFilterReturnsAllInInsertionOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	// Saved out of timestamp order on purpose.
	late := plainEvent(clock.Next().Add(time.Hour), testAggregate, "late", 1)
	early := plainEvent(clock.Next(), testAggregate, "early", 2)
	require.NoError(t, s.Save(ctx, late))
	require.NoError(t, s.Save(ctx, early))

	got, err := Find[PlainEvent](ctx, s, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "late", got[0].Title)
	assert.Equal(t, "early", got[1].Title)
}

func TestFind_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	for i, title := range []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi"} {
		require.NoError(t, s.Save(ctx, plainEvent(clock.Next(), testAggregate, title, float64(i+4))))
	}

	f := predicate.Field
	testCases := []struct {
		name   string
		filter predicate.Expr
		want   []string
	}{
		{"equality", f("Title").Eq("Return of the Jedi"), []string{"Return of the Jedi"}},
		{"case-insensitive column", f("title").Eq("A New Hope"), []string{"A New Hope"}},
		{"range", predicate.And(f("Number").Ge(5), f("Number").Lt(7)), []string{"The Empire Strikes Back", "Return of the Jedi"}},
		{"or", predicate.Or(f("Number").Eq(4), f("Number").Eq(6)), []string{"A New Hope", "Return of the Jedi"}},
		{"not", predicate.Invert(f("Number").Eq(5)), []string{"A New Hope", "Return of the Jedi"}},
		{"arithmetic", f("Number").Mul(2).Eq(10), []string{"The Empire Strikes Back"}},
		{"negate", predicate.Neg(f("Number")).Lt(-5), []string{"Return of the Jedi"}},
		{"timeline is null", f(event.ColumnTimelineID).Eq(nil), []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi"}},
		{"timestamp bound", f(event.ColumnTimeStamp).Le(testutil.Epoch.Add(2 * time.Second)), []string{"A New Hope", "The Empire Strikes Back"}},
		{"no match", f("Title").Eq("The Phantom Menace"), []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Find[PlainEvent](ctx, s, tc.filter)
			require.NoError(t, err)
			titles := []string{}
			for _, ev := range got {
				titles = append(titles, ev.Title)
			}
			assert.Equal(t, tc.want, titles)
		})
	}
}

func TestFind_InvalidFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, plainEvent(testEpoch, testAggregate, "x", 1)))

	_, err := Find[PlainEvent](ctx, s, predicate.Field("Rating").Eq(1))
	assert.True(t, storeerr.IsArgument(err), "got %v", err)

	_, err = Find[PlainEvent](ctx, s, predicate.Comparison{
		Op: "LIKE", Left: predicate.Field("Title"), Right: predicate.Value("x%"),
	})
	assert.True(t, storeerr.IsUnsupportedOperator(err), "got %v", err)
}

func TestFind_MissingRequiredColumnIsMappingError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`CREATE TABLE "PlainEvent" ("Id" TEXT PRIMARY KEY, "TimeStamp" INTEGER, "Title" TEXT)`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`INSERT INTO "PlainEvent" VALUES (?, 0, 'x')`, uuid.NewString())
	require.NoError(t, err)

	_, err = Find[PlainEvent](ctx, s, nil)
	require.Error(t, err)
	assert.True(t, storeerr.IsMapping(err), "got %v", err)
}

func TestFind_MigratedTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	clock := testutil.NewDeterministicClock()

	var firstID uuid.UUID
	{
		type Movie struct {
			event.DomainEvent
			Title string
			Year  int
		}
		first := &Movie{DomainEvent: clock.Event(), Title: "Alien", Year: 1979}
		firstID = first.ID
		require.NoError(t, s.Save(ctx, first))
	}

	{
		type Movie struct {
			event.DomainEvent
			Title    string
			Year     int
			Director string
		}
		require.NoError(t, s.Save(ctx, &Movie{DomainEvent: clock.Event(), Title: "Aliens", Year: 1986, Director: "Cameron"}))

		got, err := Find[Movie](ctx, s, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, firstID, got[0].ID)
		assert.Equal(t, "Alien", got[0].Title)
		assert.Equal(t, 1979, got[0].Year)
		assert.Equal(t, "", got[0].Director, "rows written before the migration read the zero value")

		assert.Equal(t, "Cameron", got[1].Director)
	}
}

func TestFindKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ev := plainEvent(testEpoch, testAggregate, "x", 1)
	require.NoError(t, s.Save(ctx, ev))

	got, err := s.FindKind(ctx, reflect.TypeFor[PlainEvent](), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}

func TestScenario_FindAndRetrieve(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := uuid.New()
	b := uuid.New()
	branch := uuid.New()
	t0 := testEpoch
	pointInTime := t0.Add(time.Minute)
	t1 := t0.Add(time.Hour)

	require.NoError(t, s.Save(ctx, plainEvent(t0, a, "Hello", 42.0)))
	require.NoError(t, s.Save(ctx, plainEvent(t0, b, "Other", 0.0)))

	found, err := Find[PlainEvent](ctx, s, predicate.Field("AggregateId").Eq(a))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Hello", found[0].Title)
	assert.Equal(t, 42.0, found[0].Number)

	third := plainEvent(t1, a, "Branch", 7)
	third.DomainEvent = third.DomainEvent.OnTimeline(branch)
	require.NoError(t, s.Save(ctx, third))

	mainline, err := s.RetrieveEvents(ctx, a, pointInTime, plainMapping, nil)
	require.NoError(t, err)
	require.Len(t, mainline, 1)
	assert.Equal(t, "Hello", mainline[0].(*PlainEvent).Title)

	branched, err := s.RetrieveEvents(ctx, a, t1, plainMapping, &branch)
	require.NoError(t, err)
	require.Len(t, branched, 2)
	assert.Equal(t, third.ID, branched[1].Domain().ID)
}

func TestRetrieveEvents_TimelineMerge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	mine := uuid.New()
	other := uuid.New()

	main := plainEvent(clock.Next(), testAggregate, "main", 1)
	onMine := plainEvent(clock.Next(), testAggregate, "mine", 2)
	onMine.DomainEvent = onMine.DomainEvent.OnTimeline(mine)
	onOther := plainEvent(clock.Next(), testAggregate, "other", 3)
	onOther.DomainEvent = onOther.DomainEvent.OnTimeline(other)

	for _, ev := range []*PlainEvent{main, onMine, onOther} {
		require.NoError(t, s.Save(ctx, ev))
	}

	end := clock.Next()

	got, err := s.RetrieveEvents(ctx, testAggregate, end, plainMapping, &mine)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{main.ID, onMine.ID}, ids(got))

	got, err = s.RetrieveEvents(ctx, testAggregate, end, plainMapping, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{main.ID}, ids(got))
}

func TestRetrieveEvents_TimeBoundIsInclusive(t *testing.T) {
	ctx := context.Background()
	at := testEpoch.Add(123456700 * time.Nanosecond)

	for _, mode := range dateModes {
		t.Run(mode.name, func(t *testing.T) {
			s := createTestStore(t, mode.opt)
			ev := plainEvent(at, testAggregate, "bounded", 1)
			require.NoError(t, s.Save(ctx, ev))

			testCases := []struct {
				name        string
				pointInTime time.Time
				want        int
			}{
				{"one tick before", at.Add(-event.TickResolution), 0},
				{"a day before", at.AddDate(0, 0, -1), 0},
				{"exactly at", at, 1},
				{"after", at.Add(time.Second), 1},
				{"a year after", at.AddDate(1, 0, 0), 1},
			}

			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					got, err := s.RetrieveEvents(ctx, testAggregate, tc.pointInTime, plainMapping, nil)
					require.NoError(t, err)
					assert.Len(t, got, tc.want)
				})
			}
		})
	}
}

func TestRetrieveEvents_OrderedAcrossKinds(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	// Interleave two kinds so per-kind results must be merged.
	var want []uuid.UUID
	for i := 0; i < 3; i++ {
		p := plainEvent(clock.Next(), testAggregate, "plain", float64(i))
		r := &RenamedEvent{DomainEvent: clock.Event(), MovieID: testAggregate, OldTitle: "a", NewTitle: "b"}
		require.NoError(t, s.Save(ctx, r))
		require.NoError(t, s.Save(ctx, p))
		want = append(want, p.ID, r.ID)
	}

	mappings := []event.EventMapping{
		event.MappingFor[RenamedEvent]("MovieID"),
		event.MappingFor[PlainEvent]("AggregateId"),
	}

	got, err := s.RetrieveEvents(ctx, testAggregate, clock.Next(), mappings, nil)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, want, ids(got))
	assert.IsNonDecreasing(t, timestampsUnix(got))
}

func TestRetrieveEvents_StableForEqualTimestamps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := &RenamedEvent{DomainEvent: event.NewDomainEventAt(testEpoch), MovieID: testAggregate}
	p := plainEvent(testEpoch, testAggregate, "same instant", 1)
	require.NoError(t, s.Save(ctx, p))
	require.NoError(t, s.Save(ctx, r))

	mappings := []event.EventMapping{
		event.MappingFor[RenamedEvent]("MovieID"),
		event.MappingFor[PlainEvent]("AggregateId"),
	}
	got, err := s.RetrieveEvents(ctx, testAggregate, testEpoch, mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{r.ID, p.ID}, ids(got), "ties keep mapping order")
}

func TestRetrieveEvents_MultipleAggregateFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()
	other := uuid.New()

	byMovie := &ComplexEvent{DomainEvent: clock.Event(), MovieID: testAggregate}
	byRelated := &ComplexEvent{DomainEvent: clock.Event(), MovieID: other, Related: &testAggregate}
	unrelated := &ComplexEvent{DomainEvent: clock.Event(), MovieID: other}
	for _, ev := range []*ComplexEvent{byMovie, byRelated, unrelated} {
		require.NoError(t, s.Save(ctx, ev))
	}

	mappings := []event.EventMapping{
		event.MappingFor[ComplexEvent]("MovieID"),
		event.MappingFor[ComplexEvent]("Related"),
		event.MappingFor[ComplexEvent]("MovieID"),
	}
	got, err := s.RetrieveEvents(ctx, testAggregate, clock.Next(), mappings, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{byMovie.ID, byRelated.ID}, ids(got))
}

func TestRetrieveEvents_SkipsMissingTables(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, plainEvent(testEpoch, testAggregate, "x", 1)))

	mappings := []event.EventMapping{
		event.MappingFor[RenamedEvent]("MovieID"),
		event.MappingFor[PlainEvent]("AggregateId"),
	}
	got, err := s.RetrieveEvents(ctx, testAggregate, testEpoch, mappings, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	none, err := s.RetrieveEvents(ctx, testAggregate, testEpoch, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRetrieveEvents_InvalidMappings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, plainEvent(testEpoch, testAggregate, "x", 1)))

	testCases := []struct {
		name     string
		mappings []event.EventMapping
	}{
		{"nil kind", []event.EventMapping{{AggregateIDField: "AggregateId"}}},
		{"empty field", []event.EventMapping{{Kind: reflect.TypeFor[PlainEvent]()}}},
		{"unknown field", []event.EventMapping{event.MappingFor[PlainEvent]("Nope")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RetrieveEvents(ctx, testAggregate, testEpoch, tc.mappings, nil)
			require.Error(t, err)
			assert.True(t, storeerr.IsArgument(err), "got %v", err)
		})
	}
}

func timestampsUnix(events []event.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, ts := range timestamps(events) {
		out = append(out, ts.UnixNano())
	}
	return out
}
