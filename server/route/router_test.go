package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(Roots{})
	require.NoError(t, err)
	return r
}

func TestRouter_Match(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		path string
		want Match
	}{
		{
			name: "calendar collection",
			path: "/cal/alice/",
			want: Match{Family: FamilyCalendar, Kind: KindCalendarCollection, PrincipalID: "alice"},
		},
		{
			name: "calendar",
			path: "/cal/alice/work",
			want: Match{Family: FamilyCalendar, Kind: KindCalendar, PrincipalID: "alice", CalendarID: "work"},
		},
		{
			name: "calendar with trailing slash",
			path: "/cal/alice/work/",
			want: Match{Family: FamilyCalendar, Kind: KindCalendar, PrincipalID: "alice", CalendarID: "work"},
		},
		{
			name: "event strips ics suffix",
			path: "/cal/alice/work/evt-1.ics",
			want: Match{Family: FamilyCalendar, Kind: KindEvent, PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"},
		},
		{
			name: "event without suffix is unchanged",
			path: "/cal/alice/work/evt-1",
			want: Match{Family: FamilyCalendar, Kind: KindEvent, PrincipalID: "alice", CalendarID: "work", EventID: "evt-1"},
		},
		{
			name: "multi-segment event id",
			path: "/cal/alice/work/2024/evt-1.ics",
			want: Match{Family: FamilyCalendar, Kind: KindEvent, PrincipalID: "alice", CalendarID: "work", EventID: "2024/evt-1"},
		},
		{
			name: "ics calendar strips suffix",
			path: "/ics/alice/work.ics",
			want: Match{Family: FamilyICS, Kind: KindICS, PrincipalID: "alice", CalendarID: "work"},
		},
		{
			name: "ics without calendar",
			path: "/ics/alice",
			want: Match{Family: FamilyICS, Kind: KindICS, PrincipalID: "alice"},
		},
		{
			name: "principal",
			path: "/p/alice/",
			want: Match{Family: FamilyPrincipal, Kind: KindPrincipal, PrincipalID: "alice"},
		},
		{
			name: "principal root",
			path: "/p/",
			want: Match{Family: FamilyPrincipal, Kind: KindPrincipal},
		},
		{
			name: "literals are case-insensitive",
			path: "/CAL/alice/work",
			want: Match{Family: FamilyCalendar, Kind: KindCalendar, PrincipalID: "alice", CalendarID: "work"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_MatchDecodesOnce(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		path      string
		principal string
		calendar  string
		event     string
	}{
		{"/cal/alice%40example.com/work", "alice@example.com", "work", ""},
		{"/cal/alice/my%20cal/ev%2Fent.ics", "alice", "my cal", "ev/ent"},
		{"/cal/alice/work/%2541.ics", "alice", "work", "%41"},
		{"/ics/bob/team%20calendar.ics", "bob", "team calendar", ""},
		{"/p/carol%2Bwork", "carol+work", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := r.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.principal, got.PrincipalID)
			assert.Equal(t, tt.calendar, got.CalendarID)
			assert.Equal(t, tt.event, got.EventID)
		})
	}
}

func TestRouter_NoMatch(t *testing.T) {
	r := newTestRouter(t)

	for _, p := range []string{"/", "/cal", "/cal/", "/ics/", "/unknown/alice", "/cal//work", "/cal/%zz/work"} {
		t.Run(p, func(t *testing.T) {
			_, ok := r.Match(p)
			assert.False(t, ok)
		})
	}
}

func TestRouter_UnderRoot(t *testing.T) {
	r, err := New(Roots{Root: "/dav"})
	require.NoError(t, err)

	assert.True(t, r.UnderRoot("/dav"))
	assert.True(t, r.UnderRoot("/dav/anything"))
	assert.True(t, r.UnderRoot("/DAV/cal/alice"))
	assert.False(t, r.UnderRoot("/davx"))
	assert.False(t, r.UnderRoot("/other"))

	m, ok := r.Match("/dav/cal/alice/work")
	require.True(t, ok)
	assert.Equal(t, KindCalendar, m.Kind)

	_, ok = r.Match("/cal/alice/work")
	assert.False(t, ok)
}

func TestRouter_URLs(t *testing.T) {
	r, err := New(Roots{Root: "/dav", Calendar: "calendars", ICS: "export", Principal: "principals"})
	require.NoError(t, err)

	assert.Equal(t, "/dav/principals/", r.PrincipalRootURL())
	assert.Equal(t, "/dav/principals/alice/", r.PrincipalURL("alice"))
	assert.Equal(t, "/dav/calendars/alice/", r.CalendarHomeURL("alice"))
	assert.Equal(t, "/dav/calendars/alice/my%20cal/", r.CalendarURL("alice", "my cal"))
	assert.Equal(t, "/dav/calendars/alice/work/evt-1.ics", r.EventURL("alice", "work", "evt-1"))
	assert.Equal(t, "/dav/export/alice/work.ics", r.ICSURL("alice", "work"))
}

func TestRouter_URLsRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	m, ok := r.Match(r.EventURL("alice@example.com", "my cal", "a b"))
	require.True(t, ok)
	assert.Equal(t, Match{Family: FamilyCalendar, Kind: KindEvent, PrincipalID: "alice@example.com", CalendarID: "my cal", EventID: "a b"}, m)
}

func TestNew_RejectsCoincidingRoots(t *testing.T) {
	_, err := New(Roots{Root: "/dav", Calendar: "."})
	assert.Error(t, err)
}

func TestCompile(t *testing.T) {
	_, err := Compile("/a/:rest*/b")
	assert.Error(t, err)

	_, err = Compile("/a/:x/:x")
	assert.Error(t, err)

	_, err = Compile("/a/:")
	assert.Error(t, err)

	p, err := Compile("/files/:name/:rest*")
	require.NoError(t, err)
	params, ok := p.Match("/files/report.ics")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "report"}, params)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "principal", KindPrincipal.String())
	assert.Equal(t, "calendar-collection", KindCalendarCollection.String())
	assert.Equal(t, "calendar", KindCalendar.String())
	assert.Equal(t, "event", KindEvent.String())
	assert.Equal(t, "ics", KindICS.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
