package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cyp0633/caldora/server/storage"
)

// handleCalendarGet sends every event of rc.Calendar as one iCalendar file.
func (h *Handler) handleCalendarGet(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	events, err := h.opts.Storage.GetEventsForCalendar(r.Context(), storage.EventsQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Match.CalendarID,
		User:        rc.User,
		FullData:    true,
	})
	if errors.Is(err, storage.ErrNotFound) || (err == nil && events == nil) {
		h.missing(w, r, rc, "calendar events not found: "+rc.Match.CalendarID)
		return
	}
	if err != nil {
		h.failed(w, rc, err, "failed to load events")
		return
	}

	body, err := h.buildICS(events, rc.Calendar)
	if err != nil {
		h.failed(w, rc, err, "failed to encode calendar")
		return
	}
	writeCalendar(w, body, "")
}

func (h *Handler) handleEventGet(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	event, err := h.loadEvent(r, rc)
	if err != nil {
		h.failed(w, rc, err, "failed to load event")
		return
	}
	if event == nil {
		h.missing(w, r, rc, "event not found: "+rc.Match.EventID)
		return
	}

	if etagMatches(r.Header.Get("If-None-Match"), event.ETag()) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := h.buildICS([]*storage.Event{event}, rc.Calendar)
	if err != nil {
		h.failed(w, rc, err, "failed to encode event")
		return
	}
	writeCalendar(w, body, event.ETag())
}

// etagMatches compares a precondition header against an ETag. Quotes and weak
// prefixes are ignored; "*" matches anything.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}
