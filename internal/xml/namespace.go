package xml

import (
	"strconv"

	"github.com/beevik/etree"
)

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
	// AppleICal is the Apple iCal namespace, home of calendar-color and calendar-order
	AppleICal = "http://apple.com/ns/ical/"
)

// well-known prefixes, declared in this order when used
var defaultPrefixes = []struct{ uri, prefix string }{
	{DAV, "D"},
	{CalDAV, "C"},
	{CalendarServer, "CS"},
	{AppleICal, "ICAL"},
}

// Name identifies an XML element by namespace URI and local name.
type Name struct {
	Space string
	Local string
}

func (n Name) String() string {
	return n.Space + n.Local
}

// Namespaces hands out short prefixes for namespace URIs. One instance belongs to
// one document; it is not safe for concurrent use.
type Namespaces struct {
	prefixes map[string]string
	order    []string
	next     int
}

// NewNamespaces returns an empty prefix table.
func NewNamespaces() *Namespaces {
	return &Namespaces{prefixes: make(map[string]string)}
}

// Prefix returns the prefix assigned to uri, assigning one on first use.
func (n *Namespaces) Prefix(uri string) string {
	if p, ok := n.prefixes[uri]; ok {
		return p
	}
	var prefix string
	for _, d := range defaultPrefixes {
		if d.uri == uri {
			prefix = d.prefix
			break
		}
	}
	if prefix == "" {
		prefix = "ns" + strconv.Itoa(n.next)
		n.next++
	}
	n.prefixes[uri] = prefix
	n.order = append(n.order, uri)
	return prefix
}

// BuildTag returns the qualified name of local within namespace uri, e.g. "D:getetag".
func (n *Namespaces) BuildTag(uri, local string) string {
	if uri == "" {
		return local
	}
	return n.Prefix(uri) + ":" + local
}

// Declare writes xmlns attributes for every namespace handed out so far.
func (n *Namespaces) Declare(root *etree.Element) {
	for _, uri := range n.order {
		root.CreateAttr("xmlns:"+n.prefixes[uri], uri)
	}
}

// Qualify rewrites elem and its descendants in place: element Space values holding
// namespace URIs are replaced by their assigned prefix.
func (n *Namespaces) Qualify(elem *etree.Element) {
	if elem.Space != "" {
		elem.Space = n.Prefix(elem.Space)
	}
	for _, child := range elem.ChildElements() {
		n.Qualify(child)
	}
}

// Element creates an unqualified element in namespace uri. The namespace is kept in
// Space until the element is qualified by a Namespaces table.
func Element(uri, local string) *etree.Element {
	elem := etree.NewElement(local)
	elem.Space = uri
	return elem
}

// TextElement is Element with text content.
func TextElement(uri, local, text string) *etree.Element {
	elem := Element(uri, local)
	if text != "" {
		elem.SetText(text)
	}
	return elem
}

// Href creates a DAV:href element.
func Href(path string) *etree.Element {
	elem := Element(DAV, TagHref)
	elem.SetText(path)
	return elem
}

// NameOf returns the resolved namespace and local name of a parsed element.
func NameOf(elem *etree.Element) Name {
	return Name{Space: elem.NamespaceURI(), Local: elem.Tag}
}
