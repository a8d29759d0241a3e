package xml

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Common XML tag names used in CalDAV
const (
	TagPropfind         = "propfind"
	TagPropertyUpdate   = "propertyupdate"
	TagSet              = "set"
	TagRemove           = "remove"
	TagProp             = "prop"
	TagPropname         = "propname"
	TagAllprop          = "allprop"
	TagMultistatus      = "multistatus"
	TagResponse         = "response"
	TagHref             = "href"
	TagPropstat         = "propstat"
	TagStatus           = "status"
	TagSyncToken        = "sync-token"
	TagResourcetype     = "resourcetype"
	TagCollection       = "collection"
	TagCalendar         = "calendar"
	TagCalendarQuery    = "calendar-query"
	TagCalendarMultiget = "calendar-multiget"
	TagSyncCollection   = "sync-collection"
	TagCalendarData     = "calendar-data"
)

// PropResult is one resolved property destined for a propstat block. Element carries
// the property value, or just the property name for non-2xx outcomes.
type PropResult struct {
	Element *etree.Element
	Status  int
}

// StatusLine formats code as an HTTP/1.1 status line.
func StatusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// ParseStatusLine extracts the code from a status line such as "HTTP/1.1 200 OK".
func ParseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed status line %q", line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("malformed status line %q: %w", line, err)
	}
	return code, nil
}
