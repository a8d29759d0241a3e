package server

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/cyp0633/caldora/internal/xml"
	"github.com/rs/zerolog"
)

const (
	headerAllow       = "Allow"
	headerDAV         = "DAV"
	headerContentType = "Content-Type"
	headerETag        = "ETag"

	// davCapabilities advertises WebDAV classes 1 and 3 and calendar access.
	davCapabilities = "1, 3, calendar-access, calendar-schedule"

	mimeTypeXML      = `application/xml; charset="utf-8"`
	mimeTypeHTML     = `text/html; charset="utf-8"`
	mimeTypeCalendar = "text/calendar; charset=utf-8"
)

var (
	collectionMethods        = []string{"OPTIONS", "PROPFIND"}
	principalMethods         = []string{"OPTIONS", "PROPFIND", "REPORT"}
	readOnlyCalendarMethods  = []string{"GET", "OPTIONS", "PROPFIND", "REPORT"}
	readWriteCalendarMethods = []string{"GET", "OPTIONS", "PROPFIND", "REPORT", "PUT", "DELETE"}
)

// calendarMethods is the Allow list of a calendar. Read-only calendars refuse PUT
// and DELETE.
func calendarMethods(readOnly bool) []string {
	if readOnly {
		return readOnlyCalendarMethods
	}
	return readWriteCalendarMethods
}

func setDAVHeader(w http.ResponseWriter) {
	w.Header().Set(headerDAV, davCapabilities)
}

// setOptions answers OPTIONS (RFC 4791 §5.1.1).
func setOptions(w http.ResponseWriter, methods []string) {
	w.Header().Set(headerAllow, strings.Join(methods, ", "))
	setDAVHeader(w)
	w.WriteHeader(http.StatusOK)
}

func setOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

// setMultistatus writes the headers of a 207 response (RFC 4791 §7.8.1).
func setMultistatus(w http.ResponseWriter) {
	setDAVHeader(w)
	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(http.StatusMultiStatus)
}

// setCreated answers a successful PUT (RFC 4791 §5.3.2).
func setCreated(w http.ResponseWriter, etag string) {
	w.Header().Set(headerETag, etag)
	w.WriteHeader(http.StatusCreated)
}

func setMissing(w http.ResponseWriter, url string) {
	w.Header().Set(headerContentType, mimeTypeHTML)
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><p>Not found: %s</p></body></html>", html.EscapeString(url))
}

// writeMultistatus serializes m as a 207 response.
func writeMultistatus(w http.ResponseWriter, m *xml.Multistatus, log zerolog.Logger) {
	out, err := m.String()
	if err != nil {
		log.Error().Err(err).Msg("failed to serialize multistatus")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	log.Trace().Str("body", out).Msg("response body")
	setMultistatus(w)
	_, _ = w.Write([]byte(out))
}

// writeCalendar sends an iCalendar body.
func writeCalendar(w http.ResponseWriter, body, etag string) {
	w.Header().Set(headerContentType, mimeTypeCalendar)
	if etag != "" {
		w.Header().Set(headerETag, etag)
	}
	setOK(w)
	_, _ = w.Write([]byte(body))
}
