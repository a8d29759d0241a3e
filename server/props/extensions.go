package props

import (
	"context"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/route"
	"github.com/samber/mo"
)

const (
	csDoc      = "https://github.com/apple/ccs-calendarserver/blob/master/doc/Extensions/"
	sharingDoc = csDoc + "caldav-sharing.txt"
	ctagDoc    = csDoc + "caldav-ctag.txt"
	notifyDoc  = csDoc + "caldav-notifications.txt"
)

// extensionTags are the calendarserver.org and Apple iCal properties.
func extensionTags() []Tag {
	return []Tag{
		{
			Namespace: xml.CalendarServer, Name: "allowed-sharing-modes",
			Doc: sharingDoc,
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar {
					return absent()
				}
				return found(xml.Element(xml.CalendarServer, "allowed-sharing-modes"))
			}),
		},
		{Namespace: xml.CalendarServer, Name: "checksum-versions"},
		{Namespace: xml.CalendarServer, Name: "dropbox-home-URL"},
		{Namespace: xml.CalendarServer, Name: "email-address-set"},
		{
			Namespace: xml.CalendarServer, Name: "getctag",
			Doc: ctagDoc,
			Resolve: readOnly(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar || env.Calendar == nil {
					return absent()
				}
				return found(xml.TextElement(xml.CalendarServer, "getctag", env.Calendar.SyncToken))
			}),
		},
		{Namespace: xml.CalendarServer, Name: "notification-URL", Doc: notifyDoc},
		{
			Namespace: xml.AppleICal, Name: "calendar-color",
			Resolve: protectedOn(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar || env.Calendar == nil || env.Calendar.Color == "" {
					return absent()
				}
				return found(xml.TextElement(xml.AppleICal, "calendar-color", env.Calendar.Color))
			}, route.KindCalendar),
		},
		{
			Namespace: xml.AppleICal, Name: "calendar-order",
			Resolve: protectedOn(func(_ context.Context, env *Env) mo.Result[*etree.Element] {
				if env.Kind != route.KindCalendar || env.Calendar == nil {
					return absent()
				}
				return found(xml.TextElement(xml.AppleICal, "calendar-order", strconv.Itoa(env.Calendar.Order)))
			}, route.KindCalendarCollection, route.KindCalendar),
		},
	}
}
