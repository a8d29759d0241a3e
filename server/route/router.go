// Package route maps request paths onto the CalDAV address space: principals,
// calendar collections, calendars, events and ICS exports.
package route

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Kind identifies the type of resource a path points at.
type Kind int

const (
	KindPrincipal Kind = iota
	KindCalendarCollection
	KindCalendar
	KindEvent
	KindICS
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindPrincipal:
		return "principal"
	case KindCalendarCollection:
		return "calendar-collection"
	case KindCalendar:
		return "calendar"
	case KindEvent:
		return "event"
	case KindICS:
		return "ics"
	default:
		return "unknown"
	}
}

// Family is the route tree a path was matched in.
type Family int

const (
	FamilyCalendar Family = iota
	FamilyICS
	FamilyPrincipal
)

func (f Family) String() string {
	switch f {
	case FamilyCalendar:
		return "calendar"
	case FamilyICS:
		return "ics"
	case FamilyPrincipal:
		return "principal"
	default:
		return "unknown"
	}
}

// Roots configures where each route tree lives. Sub-roots are relative to Root.
type Roots struct {
	Root      string
	Calendar  string
	ICS       string
	Principal string
}

// DefaultRoots is the layout used when a Roots field is left empty.
var DefaultRoots = Roots{
	Root:      "/",
	Calendar:  "cal",
	ICS:       "ics",
	Principal: "p",
}

// Match is the outcome of routing one path.
type Match struct {
	Family      Family
	Kind        Kind
	PrincipalID string
	CalendarID  string
	EventID     string
}

// Router matches paths against the calendar, ICS and principal patterns in that
// order. It is immutable after New and safe for concurrent use.
type Router struct {
	root      string
	calendar  string
	ics       string
	principal string

	calendarPattern  *Pattern
	icsPattern       *Pattern
	principalPattern *Pattern
}

// New compiles the route patterns for roots, filling empty fields from
// DefaultRoots.
func New(roots Roots) (*Router, error) {
	if roots.Root == "" {
		roots.Root = DefaultRoots.Root
	}
	if roots.Calendar == "" {
		roots.Calendar = DefaultRoots.Calendar
	}
	if roots.ICS == "" {
		roots.ICS = DefaultRoots.ICS
	}
	if roots.Principal == "" {
		roots.Principal = DefaultRoots.Principal
	}

	r := &Router{root: path.Join("/", roots.Root)}
	r.calendar = path.Join(r.root, roots.Calendar)
	r.ics = path.Join(r.root, roots.ICS)
	r.principal = path.Join(r.root, roots.Principal)
	if r.calendar == r.root || r.ics == r.root || r.principal == r.root {
		return nil, fmt.Errorf("route roots must not coincide with %q", r.root)
	}

	var err error
	if r.calendarPattern, err = Compile(path.Join(r.calendar, "/:principalId/:calendarId?/:eventId*")); err != nil {
		return nil, err
	}
	if r.icsPattern, err = Compile(path.Join(r.ics, "/:principalId/:calendarId?/:eventId*")); err != nil {
		return nil, err
	}
	if r.principalPattern, err = Compile(path.Join(r.principal, "/:principalId?")); err != nil {
		return nil, err
	}
	return r, nil
}

// Match routes an escaped request path.
func (r *Router) Match(escapedPath string) (Match, bool) {
	if params, ok := r.calendarPattern.Match(escapedPath); ok {
		m := Match{
			Family:      FamilyCalendar,
			Kind:        KindCalendarCollection,
			PrincipalID: params["principalId"],
			CalendarID:  params["calendarId"],
			EventID:     params["eventId"],
		}
		switch {
		case m.EventID != "":
			m.Kind = KindEvent
		case m.CalendarID != "":
			m.Kind = KindCalendar
		}
		return m, true
	}
	if params, ok := r.icsPattern.Match(escapedPath); ok {
		return Match{
			Family:      FamilyICS,
			Kind:        KindICS,
			PrincipalID: params["principalId"],
			CalendarID:  params["calendarId"],
			EventID:     params["eventId"],
		}, true
	}
	if params, ok := r.principalPattern.Match(escapedPath); ok {
		return Match{
			Family:      FamilyPrincipal,
			Kind:        KindPrincipal,
			PrincipalID: params["principalId"],
		}, true
	}
	return Match{}, false
}

// UnderRoot reports whether escapedPath lies inside the CalDAV root.
func (r *Router) UnderRoot(escapedPath string) bool {
	if r.root == "/" {
		return strings.HasPrefix(escapedPath, "/")
	}
	lower := strings.ToLower(escapedPath)
	root := strings.ToLower(r.root)
	return lower == root || strings.HasPrefix(lower, root+"/")
}

// PrincipalRootURL is the collection holding all principals.
func (r *Router) PrincipalRootURL() string {
	return r.principal + "/"
}

// PrincipalURL is the URL of a principal resource.
func (r *Router) PrincipalURL(principalID string) string {
	return join(r.principal, principalID) + "/"
}

// CalendarHomeURL is the calendar collection of a principal.
func (r *Router) CalendarHomeURL(principalID string) string {
	return join(r.calendar, principalID) + "/"
}

// CalendarURL is the URL of one calendar.
func (r *Router) CalendarURL(principalID, calendarID string) string {
	return join(r.calendar, principalID, calendarID) + "/"
}

// EventURL is the URL of one event inside a calendar.
func (r *Router) EventURL(principalID, calendarID, eventID string) string {
	return join(r.calendar, principalID, calendarID, eventID+icsSuffix)
}

// ICSURL is the download URL of a whole calendar.
func (r *Router) ICSURL(principalID, calendarID string) string {
	return join(r.ics, principalID, calendarID+icsSuffix)
}

func join(base string, ids ...string) string {
	escaped := make([]string, 0, len(ids)+1)
	escaped = append(escaped, base)
	for _, id := range ids {
		escaped = append(escaped, url.PathEscape(id))
	}
	return strings.Join(escaped, "/")
}
