package calendarquery

import (
	"errors"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
)

// Query is a parsed calendar-query REPORT.
type Query struct {
	// Props lists the requested properties in request order
	Props     []xml.Name
	TimeRange TimeRange
	// FullData is set when calendar-data was requested, so storage must return
	// complete event bodies.
	FullData bool
}

// ParseRequest reads a calendar-query REPORT document. A missing or malformed
// filter is not an error; it leaves the time range unbounded.
func ParseRequest(doc *etree.Document) (*Query, error) {
	if doc == nil || doc.Root() == nil {
		return nil, errors.New("empty XML document")
	}
	root := doc.Root()
	if xml.NameOf(root) != (xml.Name{Space: xml.CalDAV, Local: xml.TagCalendarQuery}) {
		return nil, errors.New("missing calendar-query root element")
	}

	q := &Query{}
	for _, child := range root.ChildElements() {
		switch xml.NameOf(child) {
		case xml.Name{Space: xml.DAV, Local: xml.TagProp}:
			for _, p := range child.ChildElements() {
				q.Props = append(q.Props, xml.NameOf(p))
			}
		case xml.Name{Space: xml.CalDAV, Local: tagFilter}:
			q.TimeRange = ParseTimeRange(child)
		}
	}
	q.FullData = xml.ContainsLocal(q.Props, xml.TagCalendarData)
	return q, nil
}

// ParseString is ParseRequest on a raw body.
func ParseString(body string) (*Query, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, err
	}
	return ParseRequest(doc)
}
