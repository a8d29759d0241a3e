package server

import (
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/server/storage"
)

// serveICS answers the read-only download tree, which serves whole calendars as
// iCalendar files.
func (h *Handler) serveICS(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	if rc.Match.CalendarID == "" {
		if r.Method == http.MethodOptions {
			setOptions(w, collectionMethods)
			return
		}
		h.missing(w, r, rc, "calendar id missing")
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
	if r.Method == http.MethodOptions {
		setOptions(w, calendarMethods(cal != nil && cal.ReadOnly))
		return
	}
	if cal == nil {
		h.missing(w, r, rc, "calendar not found: "+rc.Match.CalendarID)
		return
	}
	rc.Calendar = cal

	if r.Method != http.MethodGet {
		h.missing(w, r, rc, "method handler not found: "+r.Method)
		return
	}
	h.handleCalendarGet(w, r, rc)
}
