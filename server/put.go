package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/server/ics"
	"github.com/cyp0633/caldora/server/storage"
)

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	if rc.Calendar.ReadOnly {
		h.missing(w, r, rc, "put on read-only calendar: "+rc.Match.CalendarID)
		return
	}

	existing, err := h.loadEvent(r, rc)
	if err != nil {
		h.failed(w, rc, err, "storage error while retrieving event")
		return
	}

	ifMatch := r.Header.Get("If-Match")
	ifNone := r.Header.Get("If-None-Match")
	switch {
	case existing != nil && ifMatch != "" && !etagMatches(ifMatch, existing.ETag()):
		rc.Logger.Warn().Str("client_etag", ifMatch).Str("server_etag", existing.ETag()).Msg("etag mismatch")
		http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
		return
	case existing != nil && ifNone == "*":
		rc.Logger.Warn().Msg("if-none-match=* used but event exists")
		http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
		return
	case existing == nil && ifMatch != "":
		rc.Logger.Warn().Str("etag", ifMatch).Msg("if-match used on missing event")
		http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
		return
	}

	comp, err := ics.ParseEvent(bytes.NewReader(rc.Body))
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid iCalendar data")
		http.Error(w, "Invalid iCalendar data", http.StatusBadRequest)
		return
	}

	write := storage.EventWrite{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Match.CalendarID,
		User:        rc.User,
		Event: &storage.Event{
			EventID:    rc.Match.EventID,
			CalendarID: rc.Match.CalendarID,
			Data:       comp,
		},
	}

	var stored *storage.Event
	if existing == nil {
		stored, err = h.opts.Storage.CreateEvent(r.Context(), write)
	} else {
		stored, err = h.opts.Storage.UpdateEvent(r.Context(), write)
	}
	switch {
	case errors.Is(err, storage.ErrReadOnly), errors.Is(err, storage.ErrNotFound):
		h.missing(w, r, rc, "event cannot be stored: "+err.Error())
		return
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, "Precondition Failed", http.StatusPreconditionFailed)
		return
	case err != nil:
		h.failed(w, rc, err, "failed to save event")
		return
	}

	rc.Logger.Info().Str("event", stored.EventID).Bool("created", existing == nil).Msg("event stored")
	setCreated(w, stored.ETag())
}
