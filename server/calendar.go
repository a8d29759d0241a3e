package server

import (
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
)

// serveCalendar dispatches the calendar tree: the collection of a principal's
// calendars, one calendar, or one event.
func (h *Handler) serveCalendar(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	if rc.Match.Kind == route.KindCalendarCollection {
		h.serveCollection(w, r, rc)
		return
	}

	cal, err := h.opts.Storage.GetCalendar(r.Context(), storage.CalendarQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Match.CalendarID,
		User:        rc.User,
	})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.failed(w, rc, err, "failed to load calendar")
		return
	}

	// OPTIONS is answered before the existence check; an unknown calendar
	// advertises every method.
	if r.Method == http.MethodOptions {
		setOptions(w, calendarMethods(cal != nil && cal.ReadOnly))
		return
	}
	if cal == nil {
		h.missing(w, r, rc, "calendar not found: "+rc.Match.CalendarID)
		return
	}
	rc.Calendar = cal

	if rc.Match.Kind == route.KindEvent {
		h.serveEvent(w, r, rc)
		return
	}

	switch r.Method {
	case "PROPFIND":
		h.handlePropfind(w, r, rc)
	case "PROPPATCH":
		h.handleProppatch(w, r, rc)
	case "REPORT":
		h.handleReport(w, r, rc)
	case http.MethodGet:
		h.handleCalendarGet(w, r, rc)
	default:
		h.missing(w, r, rc, "method handler not found: "+r.Method)
	}
}

func (h *Handler) serveCollection(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	switch r.Method {
	case http.MethodOptions:
		setOptions(w, collectionMethods)
	case "PROPFIND":
		h.handlePropfind(w, r, rc)
	case "PROPPATCH":
		h.handleProppatch(w, r, rc)
	default:
		h.missing(w, r, rc, "method handler not found: "+r.Method)
	}
}

func (h *Handler) serveEvent(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	switch r.Method {
	case "PROPFIND":
		h.handlePropfind(w, r, rc)
	case http.MethodGet:
		h.handleEventGet(w, r, rc)
	case http.MethodPut:
		h.handlePut(w, r, rc)
	case http.MethodDelete:
		h.handleDelete(w, r, rc)
	default:
		h.missing(w, r, rc, "method handler not found: "+r.Method)
	}
}

// loadEvent fetches the routed event. A nil event with a nil error means it does
// not exist.
func (h *Handler) loadEvent(r *http.Request, rc *RequestContext) (*storage.Event, error) {
	event, err := h.opts.Storage.GetEvent(r.Context(), storage.EventQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Match.CalendarID,
		EventID:     rc.Match.EventID,
		User:        rc.User,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return event, err
}
