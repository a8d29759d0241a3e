package server

import (
	"net/http"

	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/props"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
)

// handlePropfind answers PROPFIND on every resource kind. Depth 1 on the calendar
// collection lists the calendars, and on a calendar lists its events.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	req, err := xml.ParsePropfind(rc.Body)
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid propfind body")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	names := h.requestedProps(req)
	ctx := r.Context()
	pid := rc.Match.PrincipalID

	var responses []xml.Response
	switch rc.Match.Kind {
	case route.KindPrincipal:
		url := h.router.PrincipalURL(pid)
		responses = append(responses, h.propResponse(r, h.newEnv(rc, route.KindPrincipal, url), names, req.PropName))

	case route.KindCalendarCollection:
		url := h.router.CalendarHomeURL(pid)
		responses = append(responses, h.propResponse(r, h.newEnv(rc, route.KindCalendarCollection, url), names, req.PropName))
		if rc.Depth == 0 {
			break
		}
		calendars, err := h.opts.Storage.GetCalendarsForPrincipal(ctx, storage.PrincipalQuery{PrincipalID: pid, User: rc.User})
		if err != nil {
			h.failed(w, rc, err, "failed to list calendars")
			return
		}
		for _, cal := range calendars {
			env := h.newEnv(rc, route.KindCalendar, h.router.CalendarURL(pid, cal.CalendarID))
			env.Calendar = cal
			responses = append(responses, h.propResponse(r, env, names, req.PropName))
		}

	case route.KindCalendar:
		url := h.router.CalendarURL(pid, rc.Calendar.CalendarID)
		responses = append(responses, h.propResponse(r, h.newEnv(rc, route.KindCalendar, url), names, req.PropName))
		if rc.Depth == 0 {
			break
		}
		events, err := h.opts.Storage.GetEventsForCalendar(ctx, storage.EventsQuery{
			PrincipalID: pid,
			CalendarID:  rc.Calendar.CalendarID,
			User:        rc.User,
			FullData:    xml.ContainsLocal(names, xml.TagCalendarData),
		})
		if err != nil {
			h.failed(w, rc, err, "failed to list events")
			return
		}
		responses = append(responses, h.eventResponses(r, rc, events, names, req.PropName)...)

	case route.KindEvent:
		event, err := h.loadEvent(r, rc)
		if err != nil {
			h.failed(w, rc, err, "failed to load event")
			return
		}
		if event == nil {
			h.missing(w, r, rc, "event not found: "+rc.Match.EventID)
			return
		}
		responses = append(responses, h.eventResponses(r, rc, []*storage.Event{event}, names, req.PropName)...)
	}

	writeMultistatus(w, &xml.Multistatus{Responses: responses}, rc.Logger)
}

// handleProppatch reports every protected property as 403. Nothing is stored, so
// other properties are left out of the response.
func (h *Handler) handleProppatch(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	req, err := xml.ParseProppatch(rc.Body)
	if err != nil {
		rc.Logger.Warn().Err(err).Msg("invalid proppatch body")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	url := h.router.CalendarHomeURL(rc.Match.PrincipalID)
	if rc.Match.Kind == route.KindCalendar {
		url = h.router.CalendarURL(rc.Match.PrincipalID, rc.Match.CalendarID)
	}
	env := h.newEnv(rc, rc.Match.Kind, url)
	env.Patch = true

	results := h.props.ResolveAll(r.Context(), req.All(), env)
	writeMultistatus(w, &xml.Multistatus{Responses: []xml.Response{xml.NewResponse(url, results)}}, rc.Logger)
}

// requestedProps expands allprop and propname to the resolvable tags. calendar-data
// is never listed (RFC 4791 §9.6), and allprop also leaves out the computed
// properties RFC 3253 and RFC 3744 keep out of allprop.
func (h *Handler) requestedProps(req *xml.PropfindRequest) []xml.Name {
	if !req.AllProp && !req.PropName {
		return req.Prop
	}
	var names []xml.Name
	for _, tag := range h.props.Tags() {
		name := xml.Name{Space: tag.Namespace, Local: tag.Name}
		if tag.Resolve == nil || name == calendarData {
			continue
		}
		if req.AllProp && allpropExcluded[name] {
			continue
		}
		names = append(names, name)
	}
	return names
}

var (
	calendarData = xml.Name{Space: xml.CalDAV, Local: xml.TagCalendarData}

	allpropExcluded = map[xml.Name]bool{
		{Space: xml.DAV, Local: "supported-report-set"}:       true,
		{Space: xml.DAV, Local: "current-user-privilege-set"}: true,
	}
)

// propResponse resolves names against env. For propname requests only the names
// of the properties that resolve are returned.
func (h *Handler) propResponse(r *http.Request, env *props.Env, names []xml.Name, nameOnly bool) xml.Response {
	results := h.props.ResolveAll(r.Context(), names, env)
	if nameOnly {
		for i, res := range results {
			results[i].Element = xml.Element(res.Element.Space, res.Element.Tag)
		}
	}
	return xml.NewResponse(env.URL, results)
}

// eventResponses builds one response per event in storage order.
func (h *Handler) eventResponses(r *http.Request, rc *RequestContext, events []*storage.Event, names []xml.Name, nameOnly bool) []xml.Response {
	responses := make([]xml.Response, 0, len(events))
	for _, event := range events {
		env := h.newEnv(rc, route.KindEvent, h.router.EventURL(rc.Match.PrincipalID, rc.Calendar.CalendarID, event.EventID))
		env.Event = event
		responses = append(responses, h.propResponse(r, env, names, nameOnly))
	}
	return responses
}
