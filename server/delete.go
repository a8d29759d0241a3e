package server

import (
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/server/storage"
)

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	if rc.Calendar.ReadOnly {
		h.missing(w, r, rc, "delete on read-only calendar: "+rc.Match.CalendarID)
		return
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		event, err := h.loadEvent(r, rc)
		if err != nil {
			h.failed(w, rc, err, "error retrieving event for deletion")
			return
		}
		if event == nil {
			h.missing(w, r, rc, "event not found for deletion: "+rc.Match.EventID)
			return
		}
		if !etagMatches(ifMatch, event.ETag()) {
			rc.Logger.Warn().Str("client_etag", ifMatch).Str("server_etag", event.ETag()).Msg("etag mismatch")
			http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
			return
		}
	}

	err := h.opts.Storage.DeleteEvent(r.Context(), storage.EventQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Match.CalendarID,
		EventID:     rc.Match.EventID,
		User:        rc.User,
	})
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrReadOnly):
		h.missing(w, r, rc, "event not deleted: "+err.Error())
		return
	case err != nil:
		h.failed(w, rc, err, "failed to delete event")
		return
	}

	rc.Logger.Info().Str("event", rc.Match.EventID).Msg("event deleted")
	setOK(w)
}
