// Package storage is the contract between the CalDAV server and the backend that
// owns calendars and events.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/samber/mo"
)

var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrReadOnly is returned when writing to a read-only calendar
	ErrReadOnly = errors.New("calendar is read-only")
	// ErrConflict is returned when creating an event that already exists
	ErrConflict = errors.New("resource conflict")
)

// CalendarQuery identifies one calendar.
type CalendarQuery struct {
	PrincipalID string
	CalendarID  string
	User        *auth.Principal
}

// PrincipalQuery identifies the calendar collection of a principal.
type PrincipalQuery struct {
	PrincipalID string
	User        *auth.Principal
}

// EventsQuery asks for every event of a calendar. When FullData is false a backend
// may leave Event.Data nil.
type EventsQuery struct {
	PrincipalID string
	CalendarID  string
	User        *auth.Principal
	FullData    bool
}

// DateQuery asks for the events of a calendar overlapping [Start, End]. An absent
// bound leaves that side open.
type DateQuery struct {
	PrincipalID string
	CalendarID  string
	Start       mo.Option[time.Time]
	End         mo.Option[time.Time]
	User        *auth.Principal
	FullData    bool
}

// EventQuery identifies one event.
type EventQuery struct {
	PrincipalID string
	CalendarID  string
	EventID     string
	User        *auth.Principal
}

// EventWrite carries an event to create or replace. Backends set LastModifiedOn and
// return the stored event.
type EventWrite struct {
	PrincipalID string
	CalendarID  string
	User        *auth.Principal
	Event       *Event
}

// Visible reports whether user may see principalID's data. Requests without a user,
// as made by internal callers, see everything.
func Visible(user *auth.Principal, principalID string) bool {
	return user == nil || user.PrincipalID == principalID
}

// Storage connects your backend storage (e.g. database) with the server. Lookups of
// missing resources return ErrNotFound, possibly wrapped. Any other error becomes a
// 500 response. Implementations must be safe for concurrent use.
type Storage interface {
	GetCalendar(ctx context.Context, q CalendarQuery) (*Calendar, error)
	GetCalendarsForPrincipal(ctx context.Context, q PrincipalQuery) ([]*Calendar, error)
	GetEventsForCalendar(ctx context.Context, q EventsQuery) ([]*Event, error)
	GetEventsByDate(ctx context.Context, q DateQuery) ([]*Event, error)
	GetEvent(ctx context.Context, q EventQuery) (*Event, error)
	CreateEvent(ctx context.Context, w EventWrite) (*Event, error)
	UpdateEvent(ctx context.Context, w EventWrite) (*Event, error)
	DeleteEvent(ctx context.Context, q EventQuery) error
}
