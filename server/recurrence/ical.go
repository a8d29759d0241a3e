package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// ExtractInfo reads RRULE, RDATE, EXDATE and RECURRENCE-ID from a component.
// Multiple RDATE and EXDATE properties are merged. Unparseable dates are skipped.
func ExtractInfo(comp *ical.Component) Info {
	info := Info{}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
		info.RRULE = prop.Value
	}
	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		info.RDATE = append(info.RDATE, parseDateList(prop)...)
	}
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		info.EXDATE = append(info.EXDATE, parseDateList(prop)...)
	}
	if prop := comp.Props.Get("RECURRENCE-ID"); prop != nil && prop.Value != "" {
		if t, err := prop.DateTime(time.UTC); err == nil {
			info.RecurrenceID = &t
		}
	}
	return info
}

// ExtractSpan reads the first occurrence of a VEVENT or VTODO. The end comes from
// DTEND, then DURATION, then the RFC 5545 defaults: one day for all-day events and
// zero for timed ones. A VTODO without DTSTART is placed at its DUE date.
func ExtractSpan(comp *ical.Component) (Span, bool, error) {
	var span Span

	dtstart := comp.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil {
		if comp.Name == ical.CompToDo {
			if due := comp.Props.Get(ical.PropDue); due != nil {
				t, err := due.DateTime(time.UTC)
				if err != nil {
					return span, false, fmt.Errorf("invalid DUE: %w", err)
				}
				return Span{Start: t, End: t}, true, nil
			}
		}
		return span, false, nil
	}

	start, err := dtstart.DateTime(time.UTC)
	if err != nil {
		return span, false, fmt.Errorf("invalid DTSTART: %w", err)
	}
	span.Start = start
	span.AllDay = isDateValue(dtstart)

	switch {
	case comp.Props.Get(ical.PropDateTimeEnd) != nil:
		end, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
		if err != nil {
			return span, false, fmt.Errorf("invalid DTEND: %w", err)
		}
		span.End = end
		if span.AllDay && !end.After(start) {
			span.End = start.AddDate(0, 0, 1)
		}
	case comp.Props.Get(ical.PropDuration) != nil:
		d, err := comp.Props.Get(ical.PropDuration).Duration()
		if err != nil {
			return span, false, fmt.Errorf("invalid DURATION: %w", err)
		}
		span.End = start.Add(d)
	case span.AllDay:
		span.End = start.AddDate(0, 0, 1)
	default:
		span.End = start
	}

	if comp.Name == ical.CompToDo {
		if due := comp.Props.Get(ical.PropDue); due != nil {
			if t, err := due.DateTime(time.UTC); err == nil && t.After(span.End) {
				span.End = t
			}
		}
	}
	return span, true, nil
}

func parseDateList(prop ical.Prop) []time.Time {
	var out []time.Time
	for _, v := range strings.Split(prop.Value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		single := ical.Prop{Name: prop.Name, Params: prop.Params, Value: v}
		t, err := single.DateTime(time.UTC)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isDateValue(prop *ical.Prop) bool {
	if prop.ValueType() == ical.ValueDate {
		return true
	}
	return len(prop.Value) == len("20060102")
}
