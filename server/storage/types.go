package storage

import (
	"strconv"
	"time"

	"github.com/emersion/go-ical"
)

// Calendar represents a CalDAV calendar collection.
type Calendar struct {
	CalendarID  string
	PrincipalID string
	// CalendarName is reported as displayname
	CalendarName string
	Description  string
	// Color is a "#RRGGBB" string reported as calendar-color
	Color string
	Order int
	// Timezone holds a VTIMEZONE component, or is empty
	Timezone string
	ReadOnly bool
	// SyncToken changes whenever an event of the calendar changes. It doubles as
	// the CTag.
	SyncToken string
}

// Event represents a single VEVENT resource inside a calendar.
type Event struct {
	EventID    string
	CalendarID string
	// LastModifiedOn is the version of the event, see ETag
	LastModifiedOn time.Time
	// Data is the VEVENT component. It may be nil when the event was loaded
	// without full data.
	Data *ical.Component
}

// ETag is the millisecond timestamp of the last modification.
func (e *Event) ETag() string {
	return strconv.FormatInt(e.LastModifiedOn.UnixMilli(), 10)
}
