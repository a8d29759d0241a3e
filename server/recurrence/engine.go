// Package recurrence decides whether an iCalendar event, including its RRULE,
// RDATE and EXDATE expansion, overlaps a time range.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// Engine provides unified recurrence expansion and validation logic
type Engine struct {
	cache  *Cache
	config EngineConfig
}

// NewEngine creates a new recurrence engine instance
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// Close releases the engine's cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Overlaps reports whether any occurrence of comp overlaps the range. Absent bounds
// leave that side open. A component without a start only matches an unbounded
// range.
func (e *Engine) Overlaps(comp *ical.Component, start, end mo.Option[time.Time]) (bool, error) {
	if comp == nil {
		return false, errors.New("nil component")
	}
	if start.IsAbsent() && end.IsAbsent() {
		return true, nil
	}

	span, ok, err := ExtractSpan(comp)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return e.OccursIn(span, ExtractInfo(comp), start, end)
}

// OccursIn is Overlaps on already extracted recurrence data.
func (e *Engine) OccursIn(span Span, info Info, start, end mo.Option[time.Time]) (bool, error) {
	var key string
	if e.cache != nil {
		key = cacheKey(span, info, start, end)
		if result, ok := e.cache.Get(key); ok {
			return result, nil
		}
	}

	result, err := e.occursIn(span, info, start, end)
	if err != nil {
		return false, err
	}
	if e.cache != nil {
		e.cache.Set(key, result)
	}
	return result, nil
}

func (e *Engine) occursIn(span Span, info Info, start, end mo.Option[time.Time]) (bool, error) {
	rangeStart, hasStart := start.Get()
	rangeEnd, hasEnd := end.Get()
	duration := span.Duration()

	// an occurrence overlaps when it starts before the range end and ends after
	// the range start; an instantaneous one must lie in [start, end)
	overlaps := func(occStart time.Time) bool {
		if hasEnd && !occStart.Before(rangeEnd) {
			return false
		}
		if !hasStart {
			return true
		}
		if duration == 0 {
			return !occStart.Before(rangeStart)
		}
		return occStart.Add(duration).After(rangeStart)
	}

	if overlaps(span.Start) && !isExcluded(span.Start, info.EXDATE) {
		return true, nil
	}
	for _, rdate := range info.RDATE {
		if overlaps(rdate) && !isExcluded(rdate, info.EXDATE) {
			return true, nil
		}
	}
	if info.RRULE == "" {
		return false, nil
	}

	rule, err := buildRule(span.Start, info.RRULE)
	if err != nil {
		return false, err
	}

	from := span.Start
	if hasStart && rangeStart.Add(-duration).After(from) {
		from = rangeStart.Add(-duration)
	}

	if hasEnd {
		for _, occ := range rule.Between(from, rangeEnd, true) {
			if overlaps(occ) && !isExcluded(occ, info.EXDATE) {
				return true, nil
			}
		}
		return false, nil
	}

	occ := rule.After(from, true)
	for i := 0; i < e.config.MaxExpansionOccurrences && !occ.IsZero(); i++ {
		if overlaps(occ) && !isExcluded(occ, info.EXDATE) {
			return true, nil
		}
		occ = rule.After(occ, false)
	}
	return false, nil
}

// buildRule parses value as an RRULE anchored at dtstart in dtstart's location.
func buildRule(dtstart time.Time, value string) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", value, err)
	}
	opt.Dtstart = dtstart
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build RRULE '%s': %w", value, err)
	}
	return rule, nil
}

// isExcluded checks if a given time is in the EXDATE list. Date-only exceptions,
// stored as midnight UTC, exclude every occurrence on that day.
func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}
		if exdate.Hour() == 0 && exdate.Minute() == 0 && exdate.Second() == 0 && exdate.Location() == time.UTC {
			y, m, d := t.Date()
			if time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Equal(exdate) {
				return true
			}
		}
	}
	return false
}
