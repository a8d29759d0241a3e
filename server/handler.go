package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/ics"
	"github.com/cyp0633/caldora/server/props"
	"github.com/cyp0633/caldora/server/route"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

const wellKnownPath = "/.well-known/caldav"

// Options configures a Handler. Storage and Authenticator are required.
type Options struct {
	// Root is the path prefix of every CalDAV route, "/" by default
	Root string
	// CalendarRoot, ICSRoot and PrincipalRoot are relative to Root
	CalendarRoot  string
	ICSRoot       string
	PrincipalRoot string

	// Realm is sent in WWW-Authenticate challenges
	Realm string
	// UserPasswordPattern, when set, is matched against the principal id segment;
	// groups 1 and 2 are the username and password.
	UserPasswordPattern *regexp.Regexp
	// DisableWellKnown answers /.well-known/caldav with 404 instead of redirecting
	// to the principal root.
	DisableWellKnown bool

	ProductID    string
	MaxBodyBytes int64

	Storage       storage.Storage
	Authenticator auth.Authenticator
	// BuildICS serializes calendars; ics.NewBuilder(ProductID) by default
	BuildICS ics.BuildFunc
	// Props resolves properties; props.New by default
	Props *props.Registry

	Logger zerolog.Logger
}

// Handler serves the calendar, ICS and principal trees. It holds no per-request
// state and is safe for concurrent use.
type Handler struct {
	opts     Options
	router   *route.Router
	props    *props.Registry
	buildICS ics.BuildFunc
	logger   zerolog.Logger
}

// RequestContext holds the routed and authenticated request.
type RequestContext struct {
	Match route.Match
	User  *auth.Principal
	// Calendar is loaded for calendar and event routes
	Calendar *storage.Calendar
	Body     []byte
	// Depth is 0, 1, or depthInfinity
	Depth  int
	Logger zerolog.Logger
}

const depthInfinity = -1

// New validates opts and compiles the routes.
func New(opts Options) (*Handler, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Authenticator == nil {
		return nil, errors.New("authenticator is required")
	}
	if opts.Realm == "" {
		opts.Realm = "caldav"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	router, err := route.New(route.Roots{
		Root:      opts.Root,
		Calendar:  opts.CalendarRoot,
		ICS:       opts.ICSRoot,
		Principal: opts.PrincipalRoot,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}

	h := &Handler{
		opts:     opts,
		router:   router,
		props:    opts.Props,
		buildICS: opts.BuildICS,
		logger:   opts.Logger.With().Str("component", "caldav").Logger(),
	}
	if h.props == nil {
		h.props = props.New(opts.Logger)
	}
	if h.buildICS == nil {
		h.buildICS = ics.NewBuilder(opts.ProductID)
	}
	return h, nil
}

// Router exposes the URL layout.
func (h *Handler) Router() *route.Router {
	return h.router
}

// Middleware serves CalDAV requests and passes paths outside the root to next.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, next)
	})
}

// ServeHTTP answers paths outside the root with 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.NotFoundHandler())
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	escaped := r.URL.EscapedPath()
	log := h.logger.With().Str("method", r.Method).Str("path", escaped).Logger()
	log.Debug().Msg("request received")

	if strings.EqualFold(escaped, wellKnownPath) {
		if h.opts.DisableWellKnown {
			setMissing(w, escaped)
			return
		}
		http.Redirect(w, r, h.router.PrincipalRootURL(), http.StatusMovedPermanently)
		return
	}

	if !h.router.UnderRoot(escaped) {
		next.ServeHTTP(w, r)
		return
	}

	match, matched := h.router.Match(escaped)
	user, ok := h.authenticate(w, r, &match, log)
	if !ok {
		return
	}
	log = log.With().Str("user", user.PrincipalID).Logger()

	if !matched {
		http.Redirect(w, r, h.router.PrincipalRootURL(), http.StatusFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Warn().Err(err).Msg("failed to read request body")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	log.Trace().Bytes("body", body).Msg("request body")

	rc := &RequestContext{
		Match:  match,
		User:   user,
		Body:   body,
		Depth:  parseDepth(r.Header.Get("Depth")),
		Logger: log,
	}
	r = r.WithContext(auth.WithPrincipal(r.Context(), user))

	switch match.Family {
	case route.FamilyCalendar:
		h.serveCalendar(w, r, rc)
	case route.FamilyICS:
		h.serveICS(w, r, rc)
	case route.FamilyPrincipal:
		h.servePrincipal(w, r, rc)
	}
}

// authenticate checks the credentials of r and fills in the principal id when the
// path does not name one. It writes the 401 itself.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, match *route.Match, log zerolog.Logger) (*auth.Principal, bool) {
	creds, err := auth.FromRequest(r, match.PrincipalID, h.opts.UserPasswordPattern)
	if err != nil {
		log.Debug().Msg("no credentials")
		h.unauthorized(w)
		return nil, false
	}

	user, err := h.opts.Authenticator.Authenticate(r.Context(), creds)
	if err != nil || user == nil {
		if err != nil && !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("authenticator failed")
		}
		h.unauthorized(w)
		return nil, false
	}

	if creds.PrincipalID == "" {
		match.PrincipalID = user.PrincipalID
	}
	return user, true
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, h.opts.Realm))
	w.WriteHeader(http.StatusUnauthorized)
}

// parseDepth reads the Depth header. Missing or malformed values mean 0.
func parseDepth(value string) int {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "1":
		return 1
	case "infinity":
		return depthInfinity
	default:
		return 0
	}
}

// missing logs a resource-not-found and writes the 404.
func (h *Handler) missing(w http.ResponseWriter, r *http.Request, rc *RequestContext, reason string) {
	rc.Logger.Warn().Msg(reason)
	setMissing(w, r.URL.EscapedPath())
}

// failed logs a storage error and writes a 500.
func (h *Handler) failed(w http.ResponseWriter, rc *RequestContext, err error, msg string) {
	rc.Logger.Error().Err(err).Msg(msg)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *Handler) newEnv(rc *RequestContext, kind route.Kind, url string) *props.Env {
	pid := rc.Match.PrincipalID
	return &props.Env{
		Kind:             kind,
		Calendar:         rc.Calendar,
		User:             rc.User,
		URL:              url,
		PrincipalURL:     h.router.PrincipalURL(pid),
		PrincipalRootURL: h.router.PrincipalRootURL(),
		CalendarHomeURL:  h.router.CalendarHomeURL(pid),
		BuildICS:         h.buildICS,
	}
}
