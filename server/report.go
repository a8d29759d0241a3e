package server

import (
	"net/http"
	"net/url"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	calendarquery "github.com/cyp0633/caldora/internal/xml/calendar-query"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
)

// handleReport dispatches REPORT on a calendar by the root element of the body.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rc.Body); err != nil || doc.Root() == nil {
		rc.Logger.Warn().Err(err).Msg("invalid report body")
		http.Error(w, "Error parsing XML request body", http.StatusBadRequest)
		return
	}

	switch name := xml.NameOf(doc.Root()); name {
	case xml.Name{Space: xml.CalDAV, Local: xml.TagCalendarQuery}:
		h.handleCalendarQuery(w, r, rc, doc)
	case xml.Name{Space: xml.CalDAV, Local: xml.TagCalendarMultiget}:
		h.handleCalendarMultiget(w, r, rc, doc)
	case xml.Name{Space: xml.DAV, Local: xml.TagSyncCollection}:
		h.handleSyncCollection(w, r, rc, doc)
	default:
		rc.Logger.Warn().Str("report", name.String()).Msg("unsupported report type")
		http.Error(w, "Unsupported report type", http.StatusBadRequest)
	}
}

// handleCalendarQuery evaluates the VEVENT time-range of a calendar-query (RFC 4791
// §7.8) through storage and returns one response per event.
func (h *Handler) handleCalendarQuery(w http.ResponseWriter, r *http.Request, rc *RequestContext, doc *etree.Document) {
	q, err := calendarquery.ParseRequest(doc)
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid calendar-query")
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}
	rc.Logger.Debug().
		Bool("unbounded", q.TimeRange.Unbounded()).
		Bool("full_data", q.FullData).
		Msg("calendar-query")

	events, err := h.opts.Storage.GetEventsByDate(r.Context(), storage.DateQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Calendar.CalendarID,
		Start:       q.TimeRange.Start,
		End:         q.TimeRange.End,
		User:        rc.User,
		FullData:    q.FullData,
	})
	if err != nil {
		h.failed(w, rc, err, "failed to query events by date")
		return
	}

	responses := h.eventResponses(r, rc, events, q.Props, false)
	writeMultistatus(w, &xml.Multistatus{Responses: responses}, rc.Logger)
}

// handleCalendarMultiget returns the requested events of this calendar in href
// order. Hrefs naming anything else get a 404 response.
func (h *Handler) handleCalendarMultiget(w http.ResponseWriter, r *http.Request, rc *RequestContext, doc *etree.Document) {
	req, err := xml.ParseMultiget(doc)
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid calendar-multiget")
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	responses := make([]xml.Response, 0, len(req.Hrefs))
	for _, href := range req.Hrefs {
		eventID, ok := h.eventInCalendar(href, rc)
		if !ok {
			responses = append(responses, xml.Response{Href: href, Status: http.StatusNotFound})
			continue
		}

		event, err := h.opts.Storage.GetEvent(r.Context(), storage.EventQuery{
			PrincipalID: rc.Match.PrincipalID,
			CalendarID:  rc.Calendar.CalendarID,
			EventID:     eventID,
			User:        rc.User,
		})
		if err != nil {
			rc.Logger.Debug().Err(err).Str("href", href).Msg("multiget event unavailable")
			responses = append(responses, xml.Response{Href: href, Status: http.StatusNotFound})
			continue
		}
		responses = append(responses, h.eventResponses(r, rc, []*storage.Event{event}, req.Prop, false)...)
	}
	writeMultistatus(w, &xml.Multistatus{Responses: responses}, rc.Logger)
}

// eventInCalendar resolves a multiget href to an event id of rc's calendar.
func (h *Handler) eventInCalendar(href string, rc *RequestContext) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	m, ok := h.router.Match(u.EscapedPath())
	if !ok || m.Kind != route.KindEvent {
		return "", false
	}
	if m.PrincipalID != rc.Match.PrincipalID || m.CalendarID != rc.Calendar.CalendarID {
		return "", false
	}
	return m.EventID, true
}

// handleSyncCollection answers RFC 6578 sync. Tokens are opaque versions of the
// whole calendar, so a stale token is answered with every event.
func (h *Handler) handleSyncCollection(w http.ResponseWriter, r *http.Request, rc *RequestContext, doc *etree.Document) {
	req, err := xml.ParseSyncCollection(doc)
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid sync-collection")
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	m := &xml.Multistatus{SyncToken: rc.Calendar.SyncToken}
	if req.SyncToken != "" && req.SyncToken == rc.Calendar.SyncToken {
		writeMultistatus(w, m, rc.Logger)
		return
	}

	events, err := h.opts.Storage.GetEventsForCalendar(r.Context(), storage.EventsQuery{
		PrincipalID: rc.Match.PrincipalID,
		CalendarID:  rc.Calendar.CalendarID,
		User:        rc.User,
		FullData:    xml.ContainsLocal(req.Prop, xml.TagCalendarData),
	})
	if err != nil {
		h.failed(w, rc, err, "failed to list events")
		return
	}
	m.Responses = h.eventResponses(r, rc, events, req.Prop, false)
	writeMultistatus(w, m, rc.Logger)
}
