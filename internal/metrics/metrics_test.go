package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddleware(t *testing.T) {
	label := func(*http.Request) string { return "test-route" }
	var seen string
	h := Middleware(label)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = routeFromContext(r.Context())
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("PROPFIND", "/cal/alice/", nil))
	assert.Equal(t, "test-route", seen)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/cal/alice/work/a.ics", nil))

	out := scrape(t)
	assert.Contains(t, out, `caldora_http_requests_total{method="PROPFIND",route="test-route"} 1`)
	assert.Contains(t, out, `caldora_http_errors_total{method="DELETE",route="test-route",status="500"} 1`)
	assert.Contains(t, out, `caldora_http_request_duration_seconds_count{method="PROPFIND",route="test-route",status="207"} 1`)
}

func TestMiddleware_DefaultLabel(t *testing.T) {
	var seen string
	h := Middleware(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = routeFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "/healthz", seen)
	assert.Equal(t, "unknown", routeFromContext(context.Background()))
}

func TestInstrumentStorage(t *testing.T) {
	backend := &storage.MockStorage{}
	backend.On("GetCalendar", mock.Anything, mock.Anything).Return(nil, storage.ErrNotFound).Once()
	backend.On("DeleteEvent", mock.Anything, mock.Anything).Return(assert.AnError).Once()
	s := InstrumentStorage(backend)
	ctx := context.Background()

	_, err := s.GetCalendar(ctx, storage.CalendarQuery{PrincipalID: "alice", CalendarID: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	err = s.DeleteEvent(ctx, storage.EventQuery{PrincipalID: "alice", CalendarID: "work", EventID: "a"})
	assert.ErrorIs(t, err, assert.AnError)
	backend.AssertExpectations(t)

	out := scrape(t)
	assert.Contains(t, out, `caldora_storage_latency_seconds_count{operation="get_calendar",route="unknown"} 1`)
	assert.Contains(t, out, `caldora_storage_errors_total{operation="delete_event"} 1`)
	assert.NotContains(t, out, `caldora_storage_errors_total{operation="get_calendar"}`)
}
