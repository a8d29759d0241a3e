package props

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/ics"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarEnv(readOnly bool) *Env {
	cal := storage.NewMockCalendar("alice", "work", "Work")
	cal.ReadOnly = readOnly
	cal.Timezone = "Europe/Berlin"
	return &Env{
		Kind:             route.KindCalendar,
		Calendar:         cal,
		User:             &auth.Principal{PrincipalID: "alice", PrincipalName: "Alice"},
		URL:              "/cal/alice/work/",
		PrincipalURL:     "/p/alice/",
		PrincipalRootURL: "/p/",
		CalendarHomeURL:  "/cal/alice/",
		BuildICS:         ics.NewBuilder(""),
	}
}

func name(ns, local string) xml.Name {
	return xml.Name{Space: ns, Local: local}
}

func text(t *testing.T, res mo.Result[*etree.Element]) string {
	t.Helper()
	elem, err := res.Get()
	require.NoError(t, err)
	return elem.Text()
}

func TestResolve_Misses(t *testing.T) {
	r := New(zerolog.Nop())
	env := calendarEnv(false)

	tests := []struct {
		name  string
		ns    string
		local string
	}{
		{"unknown namespace", "urn:example", "whatever"},
		{"unknown tag", xml.DAV, "quota-used-bytes"},
		{"documented only", xml.DAV, "resource-id"},
		{"documented only caldav", xml.CalDAV, "calendar-user-address-set"},
		{"documented only cs", xml.CalendarServer, "notification-URL"},
		{"empty namespace", "", "displayname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(context.Background(), tt.ns, tt.local, env)
			assert.True(t, res.IsError())
			assert.ErrorIs(t, res.Error(), ErrNotFound)
			assert.Equal(t, http.StatusNotFound, StatusOf(res))
		})
	}
}

func TestResolve_ByKind(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	cal := calendarEnv(false)
	assert.Equal(t, "Work", text(t, r.Resolve(ctx, xml.DAV, "displayname", cal)))
	assert.Equal(t, "sync-work-1", text(t, r.Resolve(ctx, xml.DAV, "sync-token", cal)))
	assert.Equal(t, "sync-work-1", text(t, r.Resolve(ctx, xml.CalendarServer, "getctag", cal)))
	assert.Equal(t, "#FF9500", text(t, r.Resolve(ctx, xml.AppleICal, "calendar-color", cal)))
	assert.Equal(t, "Europe/Berlin", text(t, r.Resolve(ctx, xml.CalDAV, "calendar-timezone", cal)))
	assert.Equal(t, ContentType, text(t, r.Resolve(ctx, xml.DAV, "getcontenttype", cal)))
	assert.True(t, r.Resolve(ctx, xml.DAV, "getetag", cal).IsError())
	assert.True(t, r.Resolve(ctx, xml.CalDAV, "calendar-home-set", cal).IsError())

	principal := &Env{
		Kind:             route.KindPrincipal,
		User:             &auth.Principal{PrincipalID: "alice", PrincipalName: "Alice"},
		PrincipalURL:     "/p/alice/",
		PrincipalRootURL: "/p/",
		CalendarHomeURL:  "/cal/alice/",
	}
	assert.Equal(t, "Alice", text(t, r.Resolve(ctx, xml.DAV, "displayname", principal)))
	home, err := r.Resolve(ctx, xml.CalDAV, "calendar-home-set", principal).Get()
	require.NoError(t, err)
	assert.Equal(t, "/cal/alice/", home.ChildElements()[0].Text())
	coll, err := r.Resolve(ctx, xml.DAV, "principal-collection-set", principal).Get()
	require.NoError(t, err)
	assert.Equal(t, "/p/", coll.ChildElements()[0].Text())
	assert.True(t, r.Resolve(ctx, xml.DAV, "sync-token", principal).IsError())
	assert.True(t, r.Resolve(ctx, xml.DAV, "owner", principal).IsError())
}

func TestResolve_ResourceType(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		kind route.Kind
		want []xml.Name
	}{
		{route.KindCalendarCollection, []xml.Name{name(xml.DAV, "collection")}},
		{route.KindCalendar, []xml.Name{name(xml.DAV, "collection"), name(xml.CalDAV, "calendar")}},
		{route.KindPrincipal, []xml.Name{name(xml.DAV, "principal")}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			elem, err := r.Resolve(ctx, xml.DAV, "resourcetype", &Env{Kind: tt.kind}).Get()
			require.NoError(t, err)
			var got []xml.Name
			for _, c := range elem.ChildElements() {
				got = append(got, name(c.Space, c.Tag))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, r.Resolve(ctx, xml.DAV, "resourcetype", &Env{Kind: route.KindEvent}).IsError())
}

func TestResolve_PrivilegeSet(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	privileges := func(env *Env) []string {
		elem, err := r.Resolve(ctx, xml.DAV, "current-user-privilege-set", env).Get()
		require.NoError(t, err)
		var out []string
		for _, p := range elem.ChildElements() {
			out = append(out, p.ChildElements()[0].Tag)
		}
		return out
	}

	assert.Equal(t, []string{"read"}, privileges(calendarEnv(true)))
	writable := privileges(calendarEnv(false))
	assert.Contains(t, writable, "write-content")
	assert.Contains(t, writable, "bind")
	assert.Contains(t, writable, "read-free-busy")
	assert.Equal(t, "read", writable[0])
}

func TestResolve_Event(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	event := storage.NewMockEvent("work", "evt-1", "Standup", june(3, 9), june(3, 10))
	env := calendarEnv(false)
	env.Kind = route.KindEvent
	env.Event = event

	assert.Equal(t, event.ETag(), text(t, r.Resolve(ctx, xml.DAV, "getetag", env)))
	assert.Equal(t, "Mon, 03 Jun 2024 08:00:00 GMT", text(t, r.Resolve(ctx, xml.DAV, "getlastmodified", env)))
	assert.Contains(t, text(t, r.Resolve(ctx, xml.CalDAV, "calendar-data", env)), "UID:evt-1")

	// partial events never resolve calendar-data
	stub := *event
	stub.Data = nil
	env.Event = &stub
	assert.ErrorIs(t, r.Resolve(ctx, xml.CalDAV, "calendar-data", env).Error(), ErrNotFound)

	env.Event = &storage.Event{EventID: "x", Data: event.Data}
	env.BuildICS = func([]*storage.Event, *storage.Calendar) (string, error) {
		return "", errors.New("encoder down")
	}
	res := r.Resolve(ctx, xml.CalDAV, "calendar-data", env)
	assert.ErrorIs(t, res.Error(), ErrInternal)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(res))
}

func TestResolve_Proppatch(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		kind route.Kind
		prop xml.Name
		want int
	}{
		{route.KindCalendar, name(xml.CalDAV, "calendar-timezone"), http.StatusForbidden},
		{route.KindCalendar, name(xml.AppleICal, "calendar-color"), http.StatusForbidden},
		{route.KindCalendar, name(xml.AppleICal, "calendar-order"), http.StatusForbidden},
		{route.KindCalendar, name(xml.CalDAV, "default-alarm-vevent-date"), http.StatusForbidden},
		{route.KindCalendar, name(xml.CalDAV, "default-alarm-vevent-datetime"), http.StatusForbidden},
		{route.KindCalendarCollection, name(xml.AppleICal, "calendar-order"), http.StatusForbidden},
		{route.KindCalendarCollection, name(xml.CalDAV, "default-alarm-vevent-date"), http.StatusForbidden},
		{route.KindCalendarCollection, name(xml.CalDAV, "default-alarm-vevent-datetime"), http.StatusForbidden},
		{route.KindCalendarCollection, name(xml.CalDAV, "calendar-timezone"), http.StatusNotFound},
		{route.KindCalendar, name(xml.DAV, "displayname"), http.StatusNotFound},
		{route.KindCalendar, name(xml.DAV, "getetag"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+"/"+tt.prop.Local, func(t *testing.T) {
			env := calendarEnv(false)
			env.Kind = tt.kind
			env.Patch = true
			assert.Equal(t, tt.want, StatusOf(r.Resolve(ctx, tt.prop.Space, tt.prop.Local, env)))
		})
	}
}

func TestResolveAll_OrderAndStatus(t *testing.T) {
	r := New(zerolog.Nop())
	env := calendarEnv(false)
	env.Patch = true

	names := []xml.Name{
		name(xml.AppleICal, "calendar-color"),
		name(xml.DAV, "displayname"),
		name(xml.CalDAV, "calendar-timezone"),
		name("urn:example", "custom"),
		name(xml.AppleICal, "calendar-order"),
	}
	results := r.ResolveAll(context.Background(), names, env)

	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, http.StatusForbidden, res.Status)
		assert.Empty(t, res.Element.ChildElements())
	}
	assert.Equal(t, "calendar-color", results[0].Element.Tag)
	assert.Equal(t, "calendar-timezone", results[1].Element.Tag)
	assert.Equal(t, "calendar-order", results[2].Element.Tag)
}

func TestResolveAll_ReadPreservesRequestOrder(t *testing.T) {
	r := New(zerolog.Nop())
	env := calendarEnv(false)

	names := []xml.Name{
		name(xml.CalendarServer, "getctag"),
		name(xml.DAV, "resourcetype"),
		name(xml.DAV, "displayname"),
		name(xml.DAV, "sync-token"),
		name(xml.DAV, "supported-report-set"),
		name(xml.CalDAV, "supported-calendar-component-set"),
	}
	results := r.ResolveAll(context.Background(), names, env)

	require.Len(t, results, len(names))
	for i, res := range results {
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, names[i], name(res.Element.Space, res.Element.Tag))
	}

	assert.Empty(t, r.ResolveAll(context.Background(), nil, env))
}

func TestRegistry_Register(t *testing.T) {
	r := New(zerolog.Nop())
	before := len(r.Tags())

	r.Register(Tag{
		Namespace: "urn:example",
		Name:      "custom",
		Resolve: func(context.Context, *Env) mo.Result[*etree.Element] {
			return mo.Ok(xml.TextElement("urn:example", "custom", "hello"))
		},
	})
	assert.Len(t, r.Tags(), before+1)
	assert.Equal(t, "hello", text(t, r.Resolve(context.Background(), "urn:example", "custom", &Env{})))

	// replacing keeps the position
	r.Register(Tag{Namespace: xml.DAV, Name: "current-user-principal"})
	assert.Len(t, r.Tags(), before+1)
	assert.Equal(t, "current-user-principal", r.Tags()[0].Name)
	assert.Nil(t, r.Tags()[0].Resolve)

	tag, ok := r.Lookup(xml.DAV, "getetag")
	require.True(t, ok)
	assert.NotEmpty(t, tag.Doc)
}

func june(d, h int) time.Time {
	return time.Date(2024, 6, d, h, 0, 0, 0, time.UTC)
}
