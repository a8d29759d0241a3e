package calendarquery

import (
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/samber/mo"
)

// TimeFormat is the UTC DATE-TIME form used by time-range attributes (RFC 4791 §9.9).
const TimeFormat = "20060102T150405Z"

const (
	tagFilter     = "filter"
	tagCompFilter = "comp-filter"
	tagTimeRange  = "time-range"
)

// TimeRange is an optional interval; an absent bound is open on that side.
type TimeRange struct {
	Start mo.Option[time.Time]
	End   mo.Option[time.Time]
}

// Unbounded reports whether neither bound is set.
func (tr TimeRange) Unbounded() bool {
	return tr.Start.IsAbsent() && tr.End.IsAbsent()
}

// ParseTimeRange returns the time-range bound to VCALENDAR/VEVENT under filterElem.
// Only that single path is recognized; anything else yields an unbounded range.
func ParseTimeRange(filterElem *etree.Element) TimeRange {
	if filterElem == nil {
		return TimeRange{}
	}
	vcalendar := findCompFilter(filterElem, "VCALENDAR")
	if vcalendar == nil {
		return TimeRange{}
	}
	vevent := findCompFilter(vcalendar, "VEVENT")
	if vevent == nil {
		return TimeRange{}
	}
	var timeRange *etree.Element
	for _, child := range vevent.ChildElements() {
		if xml.NameOf(child) == (xml.Name{Space: xml.CalDAV, Local: tagTimeRange}) {
			timeRange = child
			break
		}
	}
	if timeRange == nil {
		return TimeRange{}
	}
	return TimeRange{
		Start: parseBound(timeRange, "start"),
		End:   parseBound(timeRange, "end"),
	}
}

func findCompFilter(parent *etree.Element, component string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if xml.NameOf(child) != (xml.Name{Space: xml.CalDAV, Local: tagCompFilter}) {
			continue
		}
		if child.SelectAttrValue("name", "") == component {
			return child
		}
	}
	return nil
}

func parseBound(elem *etree.Element, attr string) mo.Option[time.Time] {
	value := elem.SelectAttrValue(attr, "")
	if value == "" {
		return mo.None[time.Time]()
	}
	t, err := time.Parse(TimeFormat, value)
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(t)
}
