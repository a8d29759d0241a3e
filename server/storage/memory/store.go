// Package memory is a map-backed storage.Storage, for tests and single-process
// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/caldora/server/recurrence"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu        sync.RWMutex
	calendars map[string]*storage.Calendar          // key: principalID/calendarID
	events    map[string]map[string]*storage.Event // key: principalID/calendarID, then eventID

	engine *recurrence.Engine
	now    func() time.Time
	logger zerolog.Logger
}

var _ storage.Storage = (*Store)(nil)

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "storage.memory").Logger()
	}
}

// WithEngine sets the recurrence engine used for time-range queries.
func WithEngine(engine *recurrence.Engine) Option {
	return func(s *Store) {
		s.engine = engine
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		calendars: make(map[string]*storage.Calendar),
		events:    make(map[string]map[string]*storage.Event),
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngineWithConfig(recurrence.DisabledCacheConfig)
	}
	return s
}

func calendarKey(principalID, calendarID string) string {
	return fmt.Sprintf("%s/%s", principalID, calendarID)
}

// CreateCalendar adds a calendar. A missing sync token is generated.
func (s *Store) CreateCalendar(_ context.Context, cal *storage.Calendar) error {
	if cal.PrincipalID == "" || cal.CalendarID == "" {
		return fmt.Errorf("calendar needs principal and calendar ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := calendarKey(cal.PrincipalID, cal.CalendarID)
	if _, exists := s.calendars[key]; exists {
		return fmt.Errorf("calendar %s: %w", key, storage.ErrConflict)
	}
	stored := *cal
	if stored.SyncToken == "" {
		stored.SyncToken = newSyncToken()
	}
	s.calendars[key] = &stored
	s.events[key] = make(map[string]*storage.Event)
	s.logger.Info().Str("calendar", key).Msg("calendar created")
	return nil
}

// GetCalendar implements storage.Storage
func (s *Store) GetCalendar(_ context.Context, q storage.CalendarQuery) (*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cal, ok := s.calendars[calendarKey(q.PrincipalID, q.CalendarID)]
	if !ok || !storage.Visible(q.User, q.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	out := *cal
	return &out, nil
}

// GetCalendarsForPrincipal implements storage.Storage. Calendars are ordered by
// Order, then id.
func (s *Store) GetCalendarsForPrincipal(_ context.Context, q storage.PrincipalQuery) ([]*storage.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var calendars []*storage.Calendar
	if !storage.Visible(q.User, q.PrincipalID) {
		return calendars, nil
	}
	for _, cal := range s.calendars {
		if cal.PrincipalID == q.PrincipalID {
			out := *cal
			calendars = append(calendars, &out)
		}
	}
	sort.Slice(calendars, func(i, j int) bool {
		if calendars[i].Order != calendars[j].Order {
			return calendars[i].Order < calendars[j].Order
		}
		return calendars[i].CalendarID < calendars[j].CalendarID
	})
	return calendars, nil
}

// GetEventsForCalendar implements storage.Storage
func (s *Store) GetEventsForCalendar(_ context.Context, q storage.EventsQuery) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.events[calendarKey(q.PrincipalID, q.CalendarID)]
	if !ok || !storage.Visible(q.User, q.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	return sortedCopies(events, q.FullData, func(*storage.Event) bool { return true }), nil
}

// GetEventsByDate implements storage.Storage. Recurring events match when any
// occurrence overlaps the range.
func (s *Store) GetEventsByDate(_ context.Context, q storage.DateQuery) ([]*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.events[calendarKey(q.PrincipalID, q.CalendarID)]
	if !ok || !storage.Visible(q.User, q.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	return sortedCopies(events, q.FullData, func(e *storage.Event) bool {
		if e.Data == nil {
			return false
		}
		match, err := s.engine.Overlaps(e.Data, q.Start, q.End)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", e.EventID).Msg("skipping event with invalid recurrence")
			return false
		}
		return match
	}), nil
}

// GetEvent implements storage.Storage
func (s *Store) GetEvent(_ context.Context, q storage.EventQuery) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, ok := s.events[calendarKey(q.PrincipalID, q.CalendarID)]
	if !ok || !storage.Visible(q.User, q.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	event, ok := events[q.EventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", q.EventID, storage.ErrNotFound)
	}
	out := *event
	return &out, nil
}

// CreateEvent implements storage.Storage
func (s *Store) CreateEvent(_ context.Context, w storage.EventWrite) (*storage.Event, error) {
	return s.write(w, true)
}

// UpdateEvent implements storage.Storage
func (s *Store) UpdateEvent(_ context.Context, w storage.EventWrite) (*storage.Event, error) {
	return s.write(w, false)
}

func (s *Store) write(w storage.EventWrite, create bool) (*storage.Event, error) {
	if w.Event == nil || w.Event.EventID == "" {
		return nil, fmt.Errorf("event without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := calendarKey(w.PrincipalID, w.CalendarID)
	cal, ok := s.calendars[key]
	if !ok || !storage.Visible(w.User, w.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", w.CalendarID, storage.ErrNotFound)
	}
	if cal.ReadOnly {
		return nil, fmt.Errorf("calendar %s: %w", w.CalendarID, storage.ErrReadOnly)
	}

	events := s.events[key]
	prev, exists := events[w.Event.EventID]
	switch {
	case create && exists:
		return nil, fmt.Errorf("event %s: %w", w.Event.EventID, storage.ErrConflict)
	case !create && !exists:
		return nil, fmt.Errorf("event %s: %w", w.Event.EventID, storage.ErrNotFound)
	}

	stored := *w.Event
	stored.CalendarID = w.CalendarID
	stored.LastModifiedOn = s.now().Truncate(time.Millisecond)
	if exists && !stored.LastModifiedOn.After(prev.LastModifiedOn) {
		// the ETag must change on every write
		stored.LastModifiedOn = prev.LastModifiedOn.Add(time.Millisecond)
	}
	events[stored.EventID] = &stored
	cal.SyncToken = newSyncToken()

	s.logger.Debug().Str("calendar", key).Str("event", stored.EventID).Bool("created", create).Msg("event stored")
	out := stored
	return &out, nil
}

// DeleteEvent implements storage.Storage
func (s *Store) DeleteEvent(_ context.Context, q storage.EventQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := calendarKey(q.PrincipalID, q.CalendarID)
	cal, ok := s.calendars[key]
	if !ok || !storage.Visible(q.User, q.PrincipalID) {
		return fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	if cal.ReadOnly {
		return fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrReadOnly)
	}
	if _, ok := s.events[key][q.EventID]; !ok {
		return fmt.Errorf("event %s: %w", q.EventID, storage.ErrNotFound)
	}
	delete(s.events[key], q.EventID)
	cal.SyncToken = newSyncToken()
	return nil
}

func sortedCopies(events map[string]*storage.Event, fullData bool, keep func(*storage.Event) bool) []*storage.Event {
	out := make([]*storage.Event, 0, len(events))
	for _, e := range events {
		if !keep(e) {
			continue
		}
		c := *e
		if !fullData {
			c.Data = nil
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

func newSyncToken() string {
	return "urn:uuid:" + uuid.NewString()
}
