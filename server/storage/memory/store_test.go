package memory

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func june(d, h int) time.Time {
	return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := june(1, 0)
	s := New(WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()
	require.NoError(t, s.CreateCalendar(ctx, &storage.Calendar{PrincipalID: "alice", CalendarID: "work", CalendarName: "Work", Order: 2}))
	require.NoError(t, s.CreateCalendar(ctx, &storage.Calendar{PrincipalID: "alice", CalendarID: "home", CalendarName: "Home", Order: 1}))
	require.NoError(t, s.CreateCalendar(ctx, &storage.Calendar{PrincipalID: "alice", CalendarID: "holidays", ReadOnly: true}))
	return s
}

func put(t *testing.T, s *Store, calendarID, id string, start time.Time, rrule string) *storage.Event {
	t.Helper()
	ev := storage.NewMockEvent(calendarID, id, id, start, start.Add(time.Hour))
	if rrule != "" {
		ev.Data.Props.Set(&ical.Prop{Name: ical.PropRecurrenceRule, Params: make(ical.Params), Value: rrule})
	}
	stored, err := s.CreateEvent(context.Background(), storage.EventWrite{PrincipalID: "alice", CalendarID: calendarID, Event: ev})
	require.NoError(t, err)
	return stored
}

func ids(events []*storage.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventID)
	}
	return out
}

func TestStore_Calendars(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cal, err := s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "work"})
	require.NoError(t, err)
	assert.Equal(t, "Work", cal.CalendarName)
	assert.NotEmpty(t, cal.SyncToken)

	_, err = s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "nope"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "work", User: &auth.Principal{PrincipalID: "mallory"}})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cals, err := s.GetCalendarsForPrincipal(ctx, storage.PrincipalQuery{PrincipalID: "alice"})
	require.NoError(t, err)
	require.Len(t, cals, 3)
	assert.Equal(t, "holidays", cals[0].CalendarID)
	assert.Equal(t, "home", cals[1].CalendarID)
	assert.Equal(t, "work", cals[2].CalendarID)

	err = s.CreateCalendar(ctx, &storage.Calendar{PrincipalID: "alice", CalendarID: "work"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_EventLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	before, err := s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "work"})
	require.NoError(t, err)

	created := put(t, s, "work", "evt-1", june(10, 9), "")
	assert.Equal(t, "work", created.CalendarID)
	assert.False(t, created.LastModifiedOn.IsZero())

	after, err := s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "work"})
	require.NoError(t, err)
	assert.NotEqual(t, before.SyncToken, after.SyncToken)

	_, err = s.CreateEvent(ctx, storage.EventWrite{PrincipalID: "alice", CalendarID: "work", Event: created})
	assert.ErrorIs(t, err, storage.ErrConflict)

	updated, err := s.UpdateEvent(ctx, storage.EventWrite{PrincipalID: "alice", CalendarID: "work", Event: created})
	require.NoError(t, err)
	assert.NotEqual(t, created.ETag(), updated.ETag())

	got, err := s.GetEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, updated.ETag(), got.ETag())

	require.NoError(t, s.DeleteEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"}))
	_, err = s.GetEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.DeleteEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.UpdateEvent(ctx, storage.EventWrite{PrincipalID: "alice", CalendarID: "work", Event: created})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReadOnlyCalendar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ev := storage.NewMockEvent("holidays", "h1", "Holiday", june(1, 0), june(2, 0))
	_, err := s.CreateEvent(ctx, storage.EventWrite{PrincipalID: "alice", CalendarID: "holidays", Event: ev})
	assert.ErrorIs(t, err, storage.ErrReadOnly)

	err = s.DeleteEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "holidays", EventID: "h1"})
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func TestStore_GetEventsForCalendar(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	put(t, s, "work", "b", june(10, 9), "")
	put(t, s, "work", "a", june(11, 9), "")

	events, err := s.GetEventsForCalendar(ctx, storage.EventsQuery{PrincipalID: "alice", CalendarID: "work", FullData: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(events))
	assert.NotNil(t, events[0].Data)

	events, err = s.GetEventsForCalendar(ctx, storage.EventsQuery{PrincipalID: "alice", CalendarID: "work"})
	require.NoError(t, err)
	assert.Nil(t, events[0].Data)

	_, err = s.GetEventsForCalendar(ctx, storage.EventsQuery{PrincipalID: "alice", CalendarID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_GetEventsByDate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	put(t, s, "work", "early", june(2, 9), "")
	put(t, s, "work", "mid", june(15, 9), "")
	put(t, s, "work", "late", time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC), "")
	put(t, s, "work", "weekly", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "FREQ=WEEKLY")

	tests := []struct {
		name  string
		start mo.Option[time.Time]
		end   mo.Option[time.Time]
		want  []string
	}{
		{"unbounded", mo.None[time.Time](), mo.None[time.Time](), []string{"early", "late", "mid", "weekly"}},
		{"both bounds", mo.Some(june(10, 0)), mo.Some(june(20, 0)), []string{"mid", "weekly"}},
		{"start only", mo.Some(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)), mo.None[time.Time](), []string{"late", "weekly"}},
		{"end only", mo.None[time.Time](), mo.Some(june(3, 0)), []string{"early", "weekly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.GetEventsByDate(ctx, storage.DateQuery{
				PrincipalID: "alice",
				CalendarID:  "work",
				Start:       tt.start,
				End:         tt.end,
				FullData:    true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(events))
		})
	}
}
