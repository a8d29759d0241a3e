package props

import (
	"context"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/route"
	"github.com/samber/mo"
)

// ContentType is the media type of calendars and events.
const ContentType = "text/calendar; charset=utf-8; component=VEVENT"

func defaultTags() []Tag {
	var tags []Tag
	tags = append(tags, webdavTags()...)
	tags = append(tags, caldavTags()...)
	tags = append(tags, extensionTags()...)
	return tags
}

func webdavTags() []Tag {
	return []Tag{
		{
			Namespace: xml.DAV, Name: "current-user-principal",
			Doc: "https://tools.ietf.org/html/rfc5397#section-3",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				return found(hrefProp(xml.DAV, "current-user-principal", env.PrincipalURL))
			}),
		},
		{
			Namespace: xml.DAV, Name: "current-user-privilege-set",
			Doc:     "https://tools.ietf.org/html/rfc3744#section-5.4",
			Resolve: readOnly(currentUserPrivilegeSet),
		},
		{
			Namespace: xml.DAV, Name: "displayname",
			Doc: "https://tools.ietf.org/html/rfc4918#section-15.2",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				switch {
				case env.Kind == route.KindPrincipal && env.User != nil:
					return found(xml.TextElement(xml.DAV, "displayname", env.User.PrincipalName))
				case env.Kind == route.KindCalendar && env.Calendar != nil:
					return found(xml.TextElement(xml.DAV, "displayname", env.Calendar.CalendarName))
				}
				return absent()
			}),
		},
		{
			Namespace: xml.DAV, Name: "getcontenttype",
			Doc: "https://tools.ietf.org/html/rfc2518#section-13.5",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar && env.Kind != route.KindEvent {
					return absent()
				}
				return found(xml.TextElement(xml.DAV, "getcontenttype", ContentType))
			}),
		},
		{
			Namespace: xml.DAV, Name: "getetag",
			Doc: "https://tools.ietf.org/html/rfc4791#section-5.3.4",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindEvent || env.Event == nil {
					return absent()
				}
				return found(xml.TextElement(xml.DAV, "getetag", env.Event.ETag()))
			}),
		},
		{
			Namespace: xml.DAV, Name: "getlastmodified",
			Doc: "https://tools.ietf.org/html/rfc4918#section-15.7",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindEvent || env.Event == nil {
					return absent()
				}
				return found(xml.TextElement(xml.DAV, "getlastmodified", env.Event.LastModifiedOn.UTC().Format(http.TimeFormat)))
			}),
		},
		{
			Namespace: xml.DAV, Name: "owner",
			Doc: "https://tools.ietf.org/html/rfc3744#section-5.1",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar {
					return absent()
				}
				return found(hrefProp(xml.DAV, "owner", env.PrincipalURL))
			}),
		},
		{
			Namespace: xml.DAV, Name: "principal-collection-set",
			Doc: "https://tools.ietf.org/html/rfc3744#section-5.8",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindPrincipal {
					return absent()
				}
				return found(hrefProp(xml.DAV, "principal-collection-set", env.PrincipalRootURL))
			}),
		},
		{
			Namespace: xml.DAV, Name: "principal-URL",
			Doc: "https://tools.ietf.org/html/rfc3744#section-4.2",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				return found(hrefProp(xml.DAV, "principal-URL", env.PrincipalURL))
			}),
		},
		{
			Namespace: xml.DAV, Name: "resource-id",
			Doc: "https://tools.ietf.org/html/rfc5842#section-3.1",
		},
		{
			Namespace: xml.DAV, Name: xml.TagResourcetype,
			Doc:     "https://tools.ietf.org/html/rfc4791#section-4.2",
			Resolve: readOnly(resourceType),
		},
		{
			Namespace: xml.DAV, Name: "supported-report-set",
			Doc:     "https://tools.ietf.org/html/rfc3253#section-3.1.5",
			Resolve: readOnly(supportedReportSet),
		},
		{
			Namespace: xml.DAV, Name: xml.TagSyncToken,
			Doc: "https://tools.ietf.org/html/rfc6578#section-3",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar || env.Calendar == nil {
					return absent()
				}
				return found(xml.TextElement(xml.DAV, xml.TagSyncToken, env.Calendar.SyncToken))
			}),
		},
	}
}

// currentUserPrivilegeSet grants read on read-only calendars and read-write
// privileges otherwise.
func currentUserPrivilegeSet(_ context.Context, env *Env) mo.Result[*etree.Element] {
	if env.Kind != route.KindCalendar || env.Calendar == nil {
		return absent()
	}

	privileges := []xml.Name{{Space: xml.DAV, Local: "read"}}
	if !env.Calendar.ReadOnly {
		privileges = append(privileges,
			xml.Name{Space: xml.DAV, Local: "read-acl"},
			xml.Name{Space: xml.DAV, Local: "read-current-user-privilege-set"},
			xml.Name{Space: xml.DAV, Local: "write"},
			xml.Name{Space: xml.DAV, Local: "write-content"},
			xml.Name{Space: xml.DAV, Local: "write-properties"},
			xml.Name{Space: xml.DAV, Local: "bind"},
			xml.Name{Space: xml.DAV, Local: "unbind"},
			xml.Name{Space: xml.CalDAV, Local: "read-free-busy"},
		)
	}

	set := xml.Element(xml.DAV, "current-user-privilege-set")
	for _, p := range privileges {
		priv := xml.Element(xml.DAV, "privilege")
		priv.AddChild(xml.Element(p.Space, p.Local))
		set.AddChild(priv)
	}
	return found(set)
}

func resourceType(_ context.Context, env *Env) mo.Result[*etree.Element] {
	elem := xml.Element(xml.DAV, xml.TagResourcetype)
	switch env.Kind {
	case route.KindCalendarCollection:
		elem.AddChild(xml.Element(xml.DAV, xml.TagCollection))
	case route.KindCalendar:
		elem.AddChild(xml.Element(xml.DAV, xml.TagCollection))
		elem.AddChild(xml.Element(xml.CalDAV, xml.TagCalendar))
	case route.KindPrincipal:
		elem.AddChild(xml.Element(xml.DAV, "principal"))
	default:
		return absent()
	}
	return found(elem)
}

func supportedReportSet(_ context.Context, env *Env) mo.Result[*etree.Element] {
	var reports []xml.Name
	switch env.Kind {
	case route.KindCalendarCollection:
		reports = []xml.Name{{Space: xml.DAV, Local: xml.TagSyncCollection}}
	case route.KindCalendar:
		reports = []xml.Name{
			{Space: xml.CalDAV, Local: xml.TagCalendarQuery},
			{Space: xml.CalDAV, Local: xml.TagCalendarMultiget},
			{Space: xml.DAV, Local: xml.TagSyncCollection},
		}
	default:
		return absent()
	}

	set := xml.Element(xml.DAV, "supported-report-set")
	for _, r := range reports {
		supported := xml.Element(xml.DAV, "supported-report")
		report := xml.Element(xml.DAV, "report")
		report.AddChild(xml.Element(r.Space, r.Local))
		supported.AddChild(report)
		set.AddChild(supported)
	}
	return found(set)
}
