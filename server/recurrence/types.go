package recurrence

import (
	"time"
)

// Info contains all recurrence-related information for an event
type Info struct {
	RRULE        string      // The RRULE value without the "RRULE:" prefix
	RDATE        []time.Time // Additional recurrence dates
	EXDATE       []time.Time // Exception dates (excluded occurrences)
	RecurrenceID *time.Time  // For exception instances, the occurrence this overrides
}

// Recurring reports whether the event repeats at all.
func (i Info) Recurring() bool {
	return i.RRULE != "" || len(i.RDATE) > 0
}

// Span is the first occurrence of an event.
type Span struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Duration is the length of every occurrence.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
