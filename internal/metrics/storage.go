package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/cyp0633/caldora/server/storage"
)

// Storage times every call of the wrapped backend.
type Storage struct {
	next storage.Storage
}

var _ storage.Storage = (*Storage)(nil)

// InstrumentStorage wraps s.
func InstrumentStorage(s storage.Storage) *Storage {
	return &Storage{next: s}
}

// observe starts timing operation. Missing resources are expected answers and do
// not count as errors.
func observe(ctx context.Context, operation string) func(error) {
	start := time.Now()
	return func(err error) {
		if errors.Is(err, storage.ErrNotFound) {
			err = nil
		}
		ObserveStorage(ctx, operation, start, err)
	}
}

func (s *Storage) GetCalendar(ctx context.Context, q storage.CalendarQuery) (cal *storage.Calendar, err error) {
	done := observe(ctx, "get_calendar")
	defer func() { done(err) }()
	return s.next.GetCalendar(ctx, q)
}

func (s *Storage) GetCalendarsForPrincipal(ctx context.Context, q storage.PrincipalQuery) (cals []*storage.Calendar, err error) {
	done := observe(ctx, "get_calendars_for_principal")
	defer func() { done(err) }()
	return s.next.GetCalendarsForPrincipal(ctx, q)
}

func (s *Storage) GetEventsForCalendar(ctx context.Context, q storage.EventsQuery) (events []*storage.Event, err error) {
	done := observe(ctx, "get_events_for_calendar")
	defer func() { done(err) }()
	return s.next.GetEventsForCalendar(ctx, q)
}

func (s *Storage) GetEventsByDate(ctx context.Context, q storage.DateQuery) (events []*storage.Event, err error) {
	done := observe(ctx, "get_events_by_date")
	defer func() { done(err) }()
	return s.next.GetEventsByDate(ctx, q)
}

func (s *Storage) GetEvent(ctx context.Context, q storage.EventQuery) (event *storage.Event, err error) {
	done := observe(ctx, "get_event")
	defer func() { done(err) }()
	return s.next.GetEvent(ctx, q)
}

func (s *Storage) CreateEvent(ctx context.Context, w storage.EventWrite) (event *storage.Event, err error) {
	done := observe(ctx, "create_event")
	defer func() { done(err) }()
	return s.next.CreateEvent(ctx, w)
}

func (s *Storage) UpdateEvent(ctx context.Context, w storage.EventWrite) (event *storage.Event, err error) {
	done := observe(ctx, "update_event")
	defer func() { done(err) }()
	return s.next.UpdateEvent(ctx, w)
}

func (s *Storage) DeleteEvent(ctx context.Context, q storage.EventQuery) (err error) {
	done := observe(ctx, "delete_event")
	defer func() { done(err) }()
	return s.next.DeleteEvent(ctx, q)
}
