package xml

import (
	"fmt"
	"net/http"

	"github.com/beevik/etree"
)

// Multistatus represents a multistatus response
type Multistatus struct {
	Responses []Response
	// SyncToken is emitted as a top-level DAV:sync-token when set
	SyncToken string
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	// Status is used instead of PropStats for resources without properties, e.g. 404
	Status int
}

// PropStat represents property status in a response
type PropStat struct {
	Props  []*etree.Element
	Status int
}

// NewResponse groups results by status. Successful properties come first, other
// statuses follow in the order they first appear. Within a group the order of
// results is kept.
func NewResponse(href string, results []PropResult) Response {
	resp := Response{Href: href}
	index := make(map[int]int)
	if hasStatus(results, http.StatusOK) {
		index[http.StatusOK] = 0
		resp.PropStats = append(resp.PropStats, PropStat{Status: http.StatusOK})
	}
	for _, r := range results {
		i, ok := index[r.Status]
		if !ok {
			i = len(resp.PropStats)
			index[r.Status] = i
			resp.PropStats = append(resp.PropStats, PropStat{Status: r.Status})
		}
		resp.PropStats[i].Props = append(resp.PropStats[i].Props, r.Element)
	}
	return resp
}

func hasStatus(results []PropResult, code int) bool {
	for _, r := range results {
		if r.Status == code {
			return true
		}
	}
	return false
}

// PropsWithStatus lists the names of the properties reported with code.
func (r Response) PropsWithStatus(code int) []Name {
	var names []Name
	for _, ps := range r.PropStats {
		if ps.Status != code {
			continue
		}
		for _, p := range ps.Props {
			names = append(names, Name{Space: p.Space, Local: p.Tag})
		}
	}
	return names
}

// ToXML converts a Multistatus to an XML document. Element namespaces are turned
// into prefixes declared on the root element.
func (m *Multistatus) ToXML() *etree.Document {
	ns := NewNamespaces()
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := Element(DAV, TagMultistatus)
	doc.SetRoot(root)

	for _, resp := range m.Responses {
		response := Element(DAV, TagResponse)
		response.AddChild(Href(resp.Href))

		if len(resp.PropStats) == 0 {
			code := resp.Status
			if code == 0 {
				code = http.StatusOK
			}
			response.AddChild(TextElement(DAV, TagStatus, StatusLine(code)))
		}
		for _, propstat := range resp.PropStats {
			ps := Element(DAV, TagPropstat)
			prop := Element(DAV, TagProp)
			for _, p := range propstat.Props {
				prop.AddChild(p.Copy())
			}
			ps.AddChild(prop)
			ps.AddChild(TextElement(DAV, TagStatus, StatusLine(propstat.Status)))
			response.AddChild(ps)
		}
		root.AddChild(response)
	}

	if m.SyncToken != "" {
		root.AddChild(TextElement(DAV, TagSyncToken, m.SyncToken))
	}

	ns.Qualify(root)
	ns.Declare(root)
	return doc
}

// String serializes the multistatus document.
func (m *Multistatus) String() (string, error) {
	return m.ToXML().WriteToString()
}

// Parse parses a multistatus response from an XML document. Property elements keep
// their namespace URI in Space.
func (m *Multistatus) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if NameOf(root) != (Name{DAV, TagMultistatus}) {
		return fmt.Errorf("invalid root tag: %s", root.FullTag())
	}

	m.Responses = nil
	m.SyncToken = ""

	for _, child := range root.ChildElements() {
		switch NameOf(child) {
		case Name{DAV, TagSyncToken}:
			m.SyncToken = child.Text()
		case Name{DAV, TagResponse}:
			resp, err := parseResponse(child)
			if err != nil {
				return err
			}
			m.Responses = append(m.Responses, resp)
		}
	}
	return nil
}

func parseResponse(elem *etree.Element) (Response, error) {
	resp := Response{}
	for _, child := range elem.ChildElements() {
		switch NameOf(child) {
		case Name{DAV, TagHref}:
			resp.Href = child.Text()
		case Name{DAV, TagStatus}:
			code, err := ParseStatusLine(child.Text())
			if err != nil {
				return resp, err
			}
			resp.Status = code
		case Name{DAV, TagPropstat}:
			ps := PropStat{}
			for _, psChild := range child.ChildElements() {
				switch NameOf(psChild) {
				case Name{DAV, TagStatus}:
					code, err := ParseStatusLine(psChild.Text())
					if err != nil {
						return resp, err
					}
					ps.Status = code
				case Name{DAV, TagProp}:
					for _, p := range psChild.ChildElements() {
						ps.Props = append(ps.Props, unqualify(p))
					}
				}
			}
			resp.PropStats = append(resp.PropStats, ps)
		}
	}
	return resp, nil
}

// unqualify copies elem with prefixes replaced by namespace URIs.
func unqualify(elem *etree.Element) *etree.Element {
	out := Element(elem.NamespaceURI(), elem.Tag)
	for _, attr := range elem.Attr {
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			continue
		}
		out.CreateAttr(attr.Key, attr.Value)
	}
	if text := elem.Text(); text != "" {
		out.SetText(text)
	}
	for _, child := range elem.ChildElements() {
		out.AddChild(unqualify(child))
	}
	return out
}
