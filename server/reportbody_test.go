package server

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/stretchr/testify/require"
)

// reportBody qualifies root, declares its namespaces and serializes it.
func reportBody(t *testing.T, root *etree.Element) string {
	t.Helper()
	ns := xml.NewNamespaces()
	ns.Qualify(root)
	ns.Declare(root)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.SetRoot(root)
	body, err := doc.WriteToString()
	require.NoError(t, err)
	return body
}

func propElement(names []xml.Name) *etree.Element {
	prop := xml.Element(xml.DAV, xml.TagProp)
	for _, n := range names {
		prop.AddChild(xml.Element(n.Space, n.Local))
	}
	return prop
}

func multigetBody(t *testing.T, props []xml.Name, hrefs ...string) string {
	root := xml.Element(xml.CalDAV, xml.TagCalendarMultiget)
	root.AddChild(propElement(props))
	for _, href := range hrefs {
		root.AddChild(xml.Href(href))
	}
	return reportBody(t, root)
}

func syncCollectionBody(t *testing.T, token string, props []xml.Name) string {
	root := xml.Element(xml.DAV, xml.TagSyncCollection)
	root.AddChild(xml.TextElement(xml.DAV, xml.TagSyncToken, token))
	root.AddChild(xml.TextElement(xml.DAV, "sync-level", "1"))
	root.AddChild(propElement(props))
	return reportBody(t, root)
}
