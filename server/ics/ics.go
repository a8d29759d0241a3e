// Package ics converts between stored events and iCalendar text.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/emersion/go-ical"
)

// DefaultProductID is the PRODID of generated calendars.
const DefaultProductID = "-//Caldora//Go Calendar//EN"

const propCalendarName = "X-WR-CALNAME"

// textEscaper applies RFC 5545 TEXT escaping for values set without a VALUE
// parameter.
var textEscaper = strings.NewReplacer(`\\`, `\\\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// BuildFunc serializes events into one VCALENDAR. cal may be nil.
type BuildFunc func(events []*storage.Event, cal *storage.Calendar) (string, error)

// ErrNoData is returned when an event was loaded without its component.
var ErrNoData = errors.New("event has no calendar data")

// NewBuilder returns a BuildFunc stamping prodID on every calendar. Events missing
// DTSTAMP get their modification time.
func NewBuilder(prodID string) BuildFunc {
	if prodID == "" {
		prodID = DefaultProductID
	}
	return func(events []*storage.Event, cal *storage.Calendar) (string, error) {
		out := newCalendar(prodID)
		if cal != nil && cal.CalendarName != "" {
			out.Props.Set(&ical.Prop{
				Name:   propCalendarName,
				Params: make(ical.Params),
				Value:  textEscaper.Replace(cal.CalendarName),
			})
		}
		for _, e := range events {
			if e.Data == nil {
				return "", fmt.Errorf("event %s: %w", e.EventID, ErrNoData)
			}
			comp := shallowCopy(e.Data)
			if comp.Props.Get(ical.PropDateTimeStamp) == nil {
				comp.Props.SetDateTime(ical.PropDateTimeStamp, e.LastModifiedOn.UTC())
			}
			out.Children = append(out.Children, comp)
		}
		return encode(out)
	}
}

// Encode wraps components into a VCALENDAR and serializes it.
func Encode(prodID string, components ...*ical.Component) (string, error) {
	cal := newCalendar(prodID)
	cal.Children = append(cal.Children, components...)
	return encode(cal)
}

// ParseEvent reads an iCalendar object holding exactly one VEVENT and returns that
// VEVENT. Other components, such as VTIMEZONE, are ignored.
func ParseEvent(r io.Reader) (*ical.Component, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	var event *ical.Component
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if event != nil {
			return nil, errors.New("multiple events found in calendar")
		}
		event = child
	}
	if event == nil {
		return nil, errors.New("no events found in calendar")
	}
	return event, nil
}

// ParseEventString is ParseEvent on a string.
func ParseEventString(s string) (*ical.Component, error) {
	return ParseEvent(strings.NewReader(s))
}

// UID returns the UID of a component, or the empty string.
func UID(comp *ical.Component) string {
	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		return prop.Value
	}
	return ""
}

func newCalendar(prodID string) *ical.Calendar {
	if prodID == "" {
		prodID = DefaultProductID
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	return cal
}

func encode(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

// shallowCopy copies comp's property map so defaults can be added without touching
// the stored component.
func shallowCopy(comp *ical.Component) *ical.Component {
	props := make(ical.Props, len(comp.Props))
	for name, values := range comp.Props {
		props[name] = append([]ical.Prop(nil), values...)
	}
	return &ical.Component{Name: comp.Name, Props: props, Children: comp.Children}
}
