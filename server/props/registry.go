// Package props resolves WebDAV and CalDAV properties. Every property is a Tag keyed
// by namespace and local name whose resolver reads a per-request Env.
package props

import (
	"context"
	"errors"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/ics"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound marks a property that does not apply to the resource. It is left
	// out of the response.
	ErrNotFound = errors.New("property not found")
	// ErrForbidden marks a property the client may not change.
	ErrForbidden = errors.New("property is protected")
	// ErrInternal marks a property that failed to resolve.
	ErrInternal = errors.New("internal error resolving property")
)

// maxParallel bounds the goroutines resolving one resource.
const maxParallel = 8

// Resolver produces a property value for env. It returns mo.Err with one of the
// package errors when the property is absent, protected or broken.
type Resolver func(ctx context.Context, env *Env) mo.Result[*etree.Element]

// Tag describes one property. Tags with a nil Resolve are known but unsupported.
type Tag struct {
	Namespace string
	Name      string
	// Doc points at the document defining the property
	Doc     string
	Resolve Resolver
}

// Env is the resource a property is resolved against. It is built once per
// resource and only read by resolvers.
type Env struct {
	Kind route.Kind
	// Patch is set when the property is being changed by PROPPATCH
	Patch    bool
	Calendar *storage.Calendar
	Event    *storage.Event
	User     *auth.Principal

	URL              string
	PrincipalURL     string
	PrincipalRootURL string
	CalendarHomeURL  string

	BuildICS ics.BuildFunc
}

// Registry maps (namespace, name) to tags. Register every tag before serving; the
// registry is not locked.
type Registry struct {
	tags   map[xml.Name]Tag
	order  []xml.Name
	logger zerolog.Logger
}

// New creates a registry holding the default tag set.
func New(logger zerolog.Logger) *Registry {
	r := &Registry{
		tags:   make(map[xml.Name]Tag),
		logger: logger.With().Str("component", "props").Logger(),
	}
	for _, t := range defaultTags() {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing a tag of the same name in place.
func (r *Registry) Register(t Tag) {
	key := xml.Name{Space: t.Namespace, Local: t.Name}
	if _, exists := r.tags[key]; !exists {
		r.order = append(r.order, key)
	}
	r.tags[key] = t
}

// Tags returns every tag in registration order.
func (r *Registry) Tags() []Tag {
	out := make([]Tag, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.tags[key])
	}
	return out
}

// Lookup returns the tag registered under ns and name.
func (r *Registry) Lookup(ns, name string) (Tag, bool) {
	t, ok := r.tags[xml.Name{Space: ns, Local: name}]
	return t, ok
}

// Resolve evaluates one property. Unknown namespaces and tags, and tags without a
// resolver, resolve to ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, ns, name string, env *Env) mo.Result[*etree.Element] {
	tag, ok := r.Lookup(ns, name)
	if !ok {
		if !r.knownNamespace(ns) {
			r.logger.Debug().Str("namespace", ns).Msg("namespace miss")
		} else {
			r.logger.Debug().Str("namespace", ns).Str("tag", name).Msg("tag miss")
		}
		return absent()
	}
	if tag.Resolve == nil {
		r.logger.Debug().Str("namespace", ns).Str("tag", name).Msg("tag has no resolver")
		return absent()
	}
	return tag.Resolve(ctx, env)
}

// ResolveAll evaluates names concurrently and returns the outcomes in request
// order. Absent properties are dropped; protected ones are returned empty with 403
// and broken ones with 500.
func (r *Registry) ResolveAll(ctx context.Context, names []xml.Name, env *Env) []xml.PropResult {
	outcomes := make([]mo.Result[*etree.Element], len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, n := range names {
		i, n := i, n
		g.Go(func() error {
			outcomes[i] = r.Resolve(gctx, n.Space, n.Local, env)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]xml.PropResult, 0, len(names))
	for i, outcome := range outcomes {
		status := StatusOf(outcome)
		switch status {
		case http.StatusNotFound:
			continue
		case http.StatusOK:
			results = append(results, xml.PropResult{Element: outcome.MustGet(), Status: status})
		default:
			if status == http.StatusInternalServerError {
				r.logger.Error().Err(outcome.Error()).Str("property", names[i].String()).Str("url", env.URL).Msg("failed to resolve property")
			}
			results = append(results, xml.PropResult{Element: xml.Element(names[i].Space, names[i].Local), Status: status})
		}
	}
	return results
}

// StatusOf maps a resolver outcome to the status of its propstat block.
func StatusOf(res mo.Result[*etree.Element]) int {
	if res.IsOk() {
		return http.StatusOK
	}
	switch err := res.Error(); {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (r *Registry) knownNamespace(ns string) bool {
	for key := range r.tags {
		if key.Space == ns {
			return true
		}
	}
	return false
}

func absent() mo.Result[*etree.Element] {
	return mo.Err[*etree.Element](ErrNotFound)
}

func forbidden() mo.Result[*etree.Element] {
	return mo.Err[*etree.Element](ErrForbidden)
}

func internal(err error) mo.Result[*etree.Element] {
	return mo.Err[*etree.Element](errors.Join(ErrInternal, err))
}

func found(elem *etree.Element) mo.Result[*etree.Element] {
	return mo.Ok(elem)
}

// readOnly wraps a read resolver so PROPPATCH leaves the property out.
func readOnly(resolve Resolver) Resolver {
	return func(ctx context.Context, env *Env) mo.Result[*etree.Element] {
		if env.Patch {
			return absent()
		}
		return resolve(ctx, env)
	}
}

// protectedOn reports 403 for PROPPATCH on any of kinds and otherwise defers to
// read, which may be nil.
func protectedOn(read Resolver, kinds ...route.Kind) Resolver {
	return func(ctx context.Context, env *Env) mo.Result[*etree.Element] {
		if env.Patch {
			for _, k := range kinds {
				if env.Kind == k {
					return forbidden()
				}
			}
			return absent()
		}
		if read == nil {
			return absent()
		}
		return read(ctx, env)
	}
}

// hrefProp wraps an href in a property element.
func hrefProp(ns, name, href string) *etree.Element {
	elem := xml.Element(ns, name)
	elem.AddChild(xml.Href(href))
	return elem
}
