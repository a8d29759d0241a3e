package storage

import (
	"context"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

var _ Storage = (*MockStorage)(nil)

// GetCalendar implements the Storage interface
func (m *MockStorage) GetCalendar(ctx context.Context, q CalendarQuery) (*Calendar, error) {
	args := m.Called(ctx, q)
	cal, _ := args.Get(0).(*Calendar)
	return cal, args.Error(1)
}

// GetCalendarsForPrincipal implements the Storage interface
func (m *MockStorage) GetCalendarsForPrincipal(ctx context.Context, q PrincipalQuery) ([]*Calendar, error) {
	args := m.Called(ctx, q)
	cals, _ := args.Get(0).([]*Calendar)
	return cals, args.Error(1)
}

// GetEventsForCalendar implements the Storage interface
func (m *MockStorage) GetEventsForCalendar(ctx context.Context, q EventsQuery) ([]*Event, error) {
	args := m.Called(ctx, q)
	events, _ := args.Get(0).([]*Event)
	return events, args.Error(1)
}

// GetEventsByDate implements the Storage interface
func (m *MockStorage) GetEventsByDate(ctx context.Context, q DateQuery) ([]*Event, error) {
	args := m.Called(ctx, q)
	events, _ := args.Get(0).([]*Event)
	return events, args.Error(1)
}

// GetEvent implements the Storage interface
func (m *MockStorage) GetEvent(ctx context.Context, q EventQuery) (*Event, error) {
	args := m.Called(ctx, q)
	event, _ := args.Get(0).(*Event)
	return event, args.Error(1)
}

// CreateEvent implements the Storage interface
func (m *MockStorage) CreateEvent(ctx context.Context, w EventWrite) (*Event, error) {
	args := m.Called(ctx, w)
	event, _ := args.Get(0).(*Event)
	return event, args.Error(1)
}

// UpdateEvent implements the Storage interface
func (m *MockStorage) UpdateEvent(ctx context.Context, w EventWrite) (*Event, error) {
	args := m.Called(ctx, w)
	event, _ := args.Get(0).(*Event)
	return event, args.Error(1)
}

// DeleteEvent implements the Storage interface
func (m *MockStorage) DeleteEvent(ctx context.Context, q EventQuery) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockCalendar creates a test Calendar with basic properties
func NewMockCalendar(principalID, calendarID, name string) *Calendar {
	return &Calendar{
		CalendarID:   calendarID,
		PrincipalID:  principalID,
		CalendarName: name,
		Color:        "#FF9500",
		SyncToken:    "sync-" + calendarID + "-1",
	}
}

// NewMockEvent creates a test VEVENT event
func NewMockEvent(calendarID, uid, summary string, start, end time.Time) *Event {
	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStamp, start)
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)

	return &Event{
		EventID:        uid,
		CalendarID:     calendarID,
		LastModifiedOn: start.Add(-time.Hour),
		Data:           event,
	}
}

// --- Convenience methods for setting up common test scenarios ---

// SetupCalendar answers GetCalendar lookups of cal.
func (m *MockStorage) SetupCalendar(cal *Calendar) {
	m.On("GetCalendar", mock.Anything, mock.MatchedBy(func(q CalendarQuery) bool {
		return q.PrincipalID == cal.PrincipalID && q.CalendarID == cal.CalendarID
	})).Return(cal, nil)
}

// SetupMissingCalendars answers every unregistered GetCalendar with ErrNotFound.
// Call it after the SetupCalendar calls.
func (m *MockStorage) SetupMissingCalendars() {
	m.On("GetCalendar", mock.Anything, mock.Anything).Return(nil, ErrNotFound)
}

// AddEvents answers GetEventsForCalendar for calendarID with events, replacing any
// earlier expectation.
func (m *MockStorage) AddEvents(calendarID string, events []*Event) {
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "GetEventsForCalendar", calendarID)
	m.On("GetEventsForCalendar", mock.Anything, mock.MatchedBy(func(q EventsQuery) bool {
		return q.CalendarID == calendarID
	})).Return(events, nil)
}

// removeMatchingCalls drops expectations for method whose query targets calendarID.
func removeMatchingCalls(calls []*mock.Call, method, calendarID string) []*mock.Call {
	result := make([]*mock.Call, 0, len(calls))
	for _, call := range calls {
		if call.Method == method && len(call.Arguments) > 1 && matchesCalendar(call.Arguments[1], calendarID) {
			continue
		}
		result = append(result, call)
	}
	return result
}

func matchesCalendar(arg interface{}, calendarID string) bool {
	matcher, ok := arg.(interface{ Matches(interface{}) bool })
	if !ok {
		return false
	}
	return matcher.Matches(EventsQuery{CalendarID: calendarID})
}
