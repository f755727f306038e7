// Package navigator turns auth state changes into navigation commands. It is
// the only component with navigation side effects: the state layer stays
// correct even when a redirect fails, because navigation is a consequence of
// state, never the other way around.
package navigator

import (
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openmerce/authflow/authstate"
	"github.com/openmerce/authflow/envelope"
)

// Route is the router's view of where the user currently is.
type Route struct {
	Path  string
	Query url.Values
}

// FullPath returns the path with its encoded query attached, suitable for a
// next hint.
func (r Route) FullPath() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Router is the navigation capability the reactor drives. CurrentRoute must
// reflect the route at the moment of the call, not a value cached when
// navigation started.
type Router interface {
	CurrentRoute() Route
	Navigate(path string, query url.Values) error
}

// SessionClearer clears locally cached session credentials on logout.
type SessionClearer interface {
	Clear()
}

// Localizer is an opaque path transform (typically locale prefixing)
// applied just before navigation.
type Localizer func(path string) string

// Config carries the reactor's navigation targets. Zero-value fields fall
// back to the storefront defaults.
type Config struct {
	// LoginPath is the login page itself; a next hint pointing here is
	// discarded to prevent a redirect loop back to login.
	LoginPath string
	// AccountHomePath is where a fresh login lands absent a next hint.
	AccountHomePath string
	// LogoutRedirectPath is where a logout lands.
	LogoutRedirectPath string
}

func (c Config) withDefaults() Config {
	if c.LoginPath == "" {
		c.LoginPath = RouteLogin
	}
	if c.AccountHomePath == "" {
		c.AccountHomePath = RouteAccountHome
	}
	if c.LogoutRedirectPath == "" {
		c.LogoutRedirectPath = RouteHome
	}
	return c
}

// Reactor consumes authstate changes and issues at most one navigation
// command per change. It dedupes on the change sequence number, so a
// watcher delivering the same change twice never double-navigates.
type Reactor struct {
	router   Router
	session  SessionClearer
	routes   map[RouteKey]FlowRoute
	cfg      Config
	localize Localizer
	log      zerolog.Logger

	mu       sync.Mutex
	handled  bool
	lastSeq  uint64
	lastEvnt authstate.Event
}

// ReactorOption defines a function type to modify the Reactor instance.
type ReactorOption func(*Reactor)

// WithRoutes replaces the default flow→route table.
func WithRoutes(routes map[RouteKey]FlowRoute) ReactorOption {
	return func(r *Reactor) { r.routes = routes }
}

// WithLocalizer sets the path transform applied just before navigation.
func WithLocalizer(l Localizer) ReactorOption {
	return func(r *Reactor) { r.localize = l }
}

// WithLogger sets the logger used for swallowed navigation failures.
func WithLogger(log zerolog.Logger) ReactorOption {
	return func(r *Reactor) { r.log = log }
}

// NewReactor wires a reactor to its router and local-session collaborators.
func NewReactor(router Router, session SessionClearer, cfg Config, options ...ReactorOption) *Reactor {
	r := &Reactor{
		router:   router,
		session:  session,
		routes:   DefaultRoutes(),
		cfg:      cfg.withDefaults(),
		localize: func(p string) string { return p },
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Attach subscribes the reactor to a store so every ingested envelope is
// handled synchronously, in ingestion order.
func (r *Reactor) Attach(store *authstate.Store) {
	store.Subscribe(r.Handle)
}

// Handle reacts to one state change. Safe to call more than once with the
// same change: only the first delivery acts.
func (r *Reactor) Handle(change authstate.Change) {
	r.mu.Lock()
	if r.handled && change.Seq == r.lastSeq && change.Event == r.lastEvnt {
		r.mu.Unlock()
		return
	}
	r.handled = true
	r.lastSeq = change.Seq
	r.lastEvnt = change.Event
	r.mu.Unlock()

	switch change.Event {
	case authstate.EventLoggedOut:
		r.session.Clear()
		r.navigate(r.cfg.LogoutRedirectPath, nil)

	case authstate.EventLoggedIn, authstate.EventReauthenticated:
		target := r.nextHint()
		if target == "" {
			target = r.cfg.AccountHomePath
		}
		r.navigate(target, nil)

	case authstate.EventReauthenticationRequired:
		flowRoute, ok := r.resolvePending(change.Current)
		if !ok {
			return
		}
		query := url.Values{"next": []string{r.router.CurrentRoute().FullPath()}}
		r.navigate(flowRoute.Path, query)

	case authstate.EventFlowUpdated:
		flowRoute, ok := r.resolvePending(change.Current)
		if !ok {
			return
		}
		var query url.Values
		if flowRoute.CarryNext {
			query = url.Values{"next": []string{r.router.CurrentRoute().FullPath()}}
		}
		r.navigate(flowRoute.Path, query)

	case authstate.EventNone:
		// Nothing to do.
	}
}

// nextHint reads the post-login destination from the route the user is on
// right now. A hint pointing at the login page itself is treated as absent.
func (r *Reactor) nextHint() string {
	route := r.router.CurrentRoute()
	hint := route.Query.Get("next")
	if hint == "" {
		hint = route.Query.Get("redirect")
	}
	if hint == r.cfg.LoginPath {
		return ""
	}
	return hint
}

// resolvePending maps the envelope's pending flow to a route. An
// unresolvable flow is a defined silent no-op, not an error.
func (r *Reactor) resolvePending(env *envelope.Envelope) (FlowRoute, bool) {
	if env == nil {
		return FlowRoute{}, false
	}
	flow, ok := env.PendingFlow()
	if !ok {
		return FlowRoute{}, false
	}
	if auth := flow.Authenticator(); auth != "" {
		if route, ok := r.routes[RouteKey{Flow: flow.ID, Authenticator: auth}]; ok {
			return route, true
		}
	}
	route, ok := r.routes[RouteKey{Flow: flow.ID}]
	if !ok {
		r.log.Debug().Str("flow", string(flow.ID)).Msg("no route for pending flow")
	}
	return route, ok
}

// navigate applies the localizer and issues the command. Failures are
// logged and swallowed: state is the source of truth, navigation is a side
// effect of it, and a failed redirect must not corrupt state.
func (r *Reactor) navigate(path string, query url.Values) {
	localized := r.localize(path)
	if err := r.router.Navigate(localized, query); err != nil {
		r.log.Err(err).Str("path", localized).Msg("navigation failed")
	}
}
