package xml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// PropfindRequest represents a PROPFIND request
type PropfindRequest struct {
	Prop     []Name
	PropName bool
	AllProp  bool
}

// ParsePropfind parses a PROPFIND body. An empty body is an allprop request (RFC 4918 §9.1).
func ParsePropfind(body []byte) (*PropfindRequest, error) {
	r := &PropfindRequest{}
	if len(bytes.TrimSpace(body)) == 0 {
		r.AllProp = true
		return r, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse propfind body: %w", err)
	}
	root := doc.Root()
	if root == nil || NameOf(root) != (Name{DAV, TagPropfind}) {
		return nil, fmt.Errorf("expected DAV:propfind root element")
	}

	for _, child := range root.ChildElements() {
		switch NameOf(child) {
		case Name{DAV, TagProp}:
			r.Prop = append(r.Prop, childNames(child)...)
		case Name{DAV, TagPropname}:
			r.PropName = true
		case Name{DAV, TagAllprop}:
			r.AllProp = true
		}
	}
	return r, nil
}

// ProppatchRequest lists the properties a PROPPATCH touches, set and remove
// instructions in document order.
type ProppatchRequest struct {
	Set    []Name
	Remove []Name
}

// All returns every touched property in document order.
func (r *ProppatchRequest) All() []Name {
	out := make([]Name, 0, len(r.Set)+len(r.Remove))
	return append(append(out, r.Set...), r.Remove...)
}

// ParseProppatch parses a DAV:propertyupdate body.
func ParseProppatch(body []byte) (*ProppatchRequest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse proppatch body: %w", err)
	}
	root := doc.Root()
	if root == nil || NameOf(root) != (Name{DAV, TagPropertyUpdate}) {
		return nil, fmt.Errorf("expected DAV:propertyupdate root element")
	}

	r := &ProppatchRequest{}
	for _, instr := range root.ChildElements() {
		var names []Name
		for _, prop := range instr.ChildElements() {
			if NameOf(prop) == (Name{DAV, TagProp}) {
				names = append(names, childNames(prop)...)
			}
		}
		switch NameOf(instr) {
		case Name{DAV, TagSet}:
			r.Set = append(r.Set, names...)
		case Name{DAV, TagRemove}:
			r.Remove = append(r.Remove, names...)
		}
	}
	return r, nil
}

// CalendarMultigetRequest represents a calendar-multiget REPORT request
type CalendarMultigetRequest struct {
	Prop  []Name
	Hrefs []string
}

// ParseMultiget reads a calendar-multiget request from a parsed document.
func ParseMultiget(doc *etree.Document) (*CalendarMultigetRequest, error) {
	root := doc.Root()
	if root == nil || NameOf(root) != (Name{CalDAV, TagCalendarMultiget}) {
		return nil, fmt.Errorf("expected CALDAV:calendar-multiget root element")
	}
	r := &CalendarMultigetRequest{}
	for _, child := range root.ChildElements() {
		switch NameOf(child) {
		case Name{DAV, TagProp}:
			r.Prop = append(r.Prop, childNames(child)...)
		case Name{DAV, TagHref}:
			r.Hrefs = append(r.Hrefs, strings.TrimSpace(child.Text()))
		}
	}
	return r, nil
}

// SyncCollectionRequest represents a sync-collection REPORT request (RFC 6578)
type SyncCollectionRequest struct {
	SyncToken string
	Prop      []Name
}

// ParseSyncCollection reads a sync-collection request from a parsed document.
func ParseSyncCollection(doc *etree.Document) (*SyncCollectionRequest, error) {
	root := doc.Root()
	if root == nil || NameOf(root) != (Name{DAV, TagSyncCollection}) {
		return nil, fmt.Errorf("expected DAV:sync-collection root element")
	}
	r := &SyncCollectionRequest{}
	for _, child := range root.ChildElements() {
		switch NameOf(child) {
		case Name{DAV, TagSyncToken}:
			r.SyncToken = child.Text()
		case Name{DAV, TagProp}:
			r.Prop = append(r.Prop, childNames(child)...)
		}
	}
	return r, nil
}

// ContainsLocal reports whether any name has the given local part.
func ContainsLocal(names []Name, local string) bool {
	for _, n := range names {
		if n.Local == local {
			return true
		}
	}
	return false
}

func childNames(parent *etree.Element) []Name {
	children := parent.ChildElements()
	names := make([]Name, 0, len(children))
	for _, c := range children {
		names = append(names, NameOf(c))
	}
	return names
}
