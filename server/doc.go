/*
Package server provides a CalDAV handler that can be mounted into Go applications.

# Basic Usage

The handler needs a storage backend and an authenticator:

	store := memory.New()
	store.CreateCalendar(ctx, &storage.Calendar{PrincipalID: "alice", CalendarID: "work", CalendarName: "Work"})

	users := authmem.New()
	users.AddUser("alice", "secret", "", "Alice")

	h, err := server.New(server.Options{
		Storage:       store,
		Authenticator: users,
		Logger:        zerolog.New(os.Stderr),
	})
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", h)

Handler.Middleware serves the CalDAV tree and hands paths outside Options.Root to
the next handler.

# URL Scheme

Paths are relative to Options.Root ("/" by default):
  - /p/ - principal collection, /p/<principal>/ - one principal
  - /cal/<principal>/ - calendar home of a principal
  - /cal/<principal>/<calendar>/ - one calendar
  - /cal/<principal>/<calendar>/<event>.ics - one event
  - /ics/<principal>/<calendar>.ics - the whole calendar as an iCalendar file

The sub-roots are configurable through CalendarRoot, ICSRoot and PrincipalRoot.
/.well-known/caldav redirects to the principal collection unless
DisableWellKnown is set. Other paths under the root redirect there too.

# Authentication

Requests carry HTTP Basic credentials. Clients that cannot send them may embed
them in the principal segment when Options.UserPasswordPattern is set, e.g.
`^(.+)~(.+)$` turns /ics/alice~secret/work.ics into user alice with password
secret. A path without a principal segment addresses the authenticated user.

# Custom Storage Backend

Implement storage.Storage. Lookups of missing resources must return an error
wrapping storage.ErrNotFound; every other error becomes a 500. Writes to read-only
calendars return storage.ErrReadOnly, and creating an event that exists returns
storage.ErrConflict.

Two backends ship with the package: storage/memory for tests and small setups,
and storage/sqlite for persistent deployments.

# Properties

PROPFIND and PROPPATCH are answered from a props.Registry. Pass a registry with
extra tags in Options.Props to serve more properties.

# Reports

REPORT on a calendar supports calendar-query with a VEVENT time-range filter,
calendar-multiget, and sync-collection. Sync tokens version the whole calendar,
so a stale token is answered with the full listing.
*/
package server
