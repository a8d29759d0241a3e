package props

import (
	"context"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

func caldavTags() []Tag {
	return []Tag{
		{
			Namespace: xml.CalDAV, Name: xml.TagCalendarData,
			Doc:     "https://tools.ietf.org/html/rfc4791#section-9.6",
			Resolve: readOnly(calendarData),
		},
		{
			Namespace: xml.CalDAV, Name: "calendar-home-set",
			Doc: "https://tools.ietf.org/html/rfc4791#section-6.2.1",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindPrincipal {
					return absent()
				}
				return found(hrefProp(xml.CalDAV, "calendar-home-set", env.CalendarHomeURL))
			}),
		},
		{
			Namespace: xml.CalDAV, Name: "calendar-timezone",
			Doc: "https://tools.ietf.org/html/rfc4791#section-5.2.2",
			Resolve: protectedOn(calendarText("calendar-timezone", func(c *storage.Calendar) string {
				return c.Timezone
			}), route.KindCalendar),
		},
		{
			Namespace: xml.CalDAV, Name: "calendar-user-address-set",
			Doc: "https://tools.ietf.org/html/rfc6638#section-2.4.1",
		},
		{
			Namespace: xml.CalDAV, Name: "calendar-description",
			Doc: "https://tools.ietf.org/html/rfc4791#section-5.2.1",
			Resolve: readOnly(calendarText("calendar-description", func(c *storage.Calendar) string {
				return c.Description
			})),
		},
		{
			Namespace: xml.CalDAV, Name: "default-alarm-vevent-date",
			Doc:     "https://tools.ietf.org/id/draft-daboo-valarm-extensions-01.html#rfc.section.9",
			Resolve: protectedOn(nil, route.KindCalendarCollection, route.KindCalendar),
		},
		{
			Namespace: xml.CalDAV, Name: "default-alarm-vevent-datetime",
			Doc:     "https://tools.ietf.org/id/draft-daboo-valarm-extensions-01.html#rfc.section.9",
			Resolve: protectedOn(nil, route.KindCalendarCollection, route.KindCalendar),
		},
		{
			Namespace: xml.CalDAV, Name: "schedule-inbox-URL",
			Doc: "https://tools.ietf.org/html/rfc6638#section-2.2",
			Resolve: readOnly(func(context.Context, *Env) mo.Result[*etree.Element] {
				return found(hrefProp(xml.CalDAV, "schedule-inbox-URL", ""))
			}),
		},
		{
			Namespace: xml.CalDAV, Name: "schedule-outbox-URL",
			Doc: "https://tools.ietf.org/html/rfc6638#section-2.1",
			Resolve: readOnly(func(context.Context, *Env) mo.Result[*etree.Element] {
				return found(hrefProp(xml.CalDAV, "schedule-outbox-URL", ""))
			}),
		},
		{
			Namespace: xml.CalDAV, Name: "supported-calendar-component-set",
			Doc: "https://tools.ietf.org/html/rfc4791#section-5.2.3",
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar {
					return absent()
				}
				set := xml.Element(xml.CalDAV, "supported-calendar-component-set")
				comp := xml.Element(xml.CalDAV, "comp")
				comp.CreateAttr("name", "VEVENT")
				set.AddChild(comp)
				return found(set)
			}),
		},
	}
}

// calendarData serializes the event through BuildICS. Events loaded without their
// component are treated as absent.
func calendarData(_ context.Context, env *Env) mo.Result[*etree.Element] {
	if env.Event == nil || env.Event.Data == nil || env.BuildICS == nil {
		return absent()
	}
	text, err := env.BuildICS([]*storage.Event{env.Event}, env.Calendar)
	if err != nil {
		return internal(err)
	}
	return found(xml.TextElement(xml.CalDAV, xml.TagCalendarData, text))
}

// calendarText resolves a calendar string field, absent when empty.
func calendarText(name string, field func(*storage.Calendar) string) Resolver {
	return func(_ context.Context, env *Env) mo.Result[*etree.Element] {
		if env.Kind != route.KindCalendar || env.Calendar == nil {
			return absent()
		}
		value := field(env.Calendar)
		if value == "" {
			return absent()
		}
		return found(xml.TextElement(xml.CalDAV, name, value))
	}
}
