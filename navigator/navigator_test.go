package navigator_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmerce/authflow/authstate"
	"github.com/openmerce/authflow/envelope"
	"github.com/openmerce/authflow/navigator"
	"github.com/openmerce/authflow/navigator/routerfakes"
)

type fixture struct {
	router  *routerfakes.FakeRouter
	session *routerfakes.FakeSessionClearer
	reactor *navigator.Reactor
	store   *authstate.Store
}

func setup(t *testing.T, options ...navigator.ReactorOption) *fixture {
	t.Helper()

	f := &fixture{
		router:  routerfakes.NewFakeRouter(),
		session: routerfakes.NewFakeSessionClearer(),
		store:   authstate.NewStore(),
	}
	f.reactor = navigator.NewReactor(f.router, f.session, navigator.Config{}, options...)
	f.reactor.Attach(f.store)
	return f
}

func (f *fixture) ingest(t *testing.T, env *envelope.Envelope) authstate.Change {
	t.Helper()
	change, err := f.store.Ingest(env)
	require.NoError(t, err)
	return change
}

func authenticated(userID string) *envelope.Envelope {
	return &envelope.Envelope{
		Status: envelope.StatusAuthenticated,
		Data: envelope.Data{
			User:    &envelope.User{ID: json.Number(userID)},
			Methods: []envelope.Method{{Method: envelope.MethodPassword, At: 1718000000}},
		},
		Meta: envelope.Meta{IsAuthenticated: true},
	}
}

func unauthenticated(flows ...envelope.Flow) *envelope.Envelope {
	return &envelope.Envelope{
		Status: envelope.StatusUnauthenticated,
		Data:   envelope.Data{Flows: flows},
	}
}

func pending(id envelope.FlowID, types ...envelope.AuthenticatorType) envelope.Flow {
	return envelope.Flow{ID: id, IsPending: true, Types: types}
}

func TestLoggedOutClearsSessionAndGoesHome(t *testing.T) {
	f := setup(t)

	f.ingest(t, authenticated("1"))
	f.router.SetCurrentRoute("/account/orders", nil)
	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))

	require.Equal(t, 1, f.session.ClearCount())
	calls := f.router.NavigateCalls()
	require.Len(t, calls, 2) // login reaction, then logout reaction
	require.Equal(t, navigator.RouteHome, calls[1].Path)
}

func TestLoggedInFollowsNextHint(t *testing.T) {
	f := setup(t)

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin))) // first load, no navigation
	require.Empty(t, f.router.NavigateCalls())

	f.router.SetCurrentRoute(navigator.RouteLogin, url.Values{"next": []string{"/account/orders"}})
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "/account/orders", calls[0].Path)
}

func TestLoggedInFallsBackToAccountHome(t *testing.T) {
	f := setup(t)

	f.router.SetCurrentRoute(navigator.RouteLogin, nil)
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, navigator.RouteAccountHome, calls[0].Path)
}

func TestLoggedInHonoursRedirectHint(t *testing.T) {
	f := setup(t)

	f.router.SetCurrentRoute(navigator.RouteLogin, url.Values{"redirect": []string{"/checkout"}})
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "/checkout", calls[0].Path)
}

func TestLoggedInGuardsAgainstLoginRedirectLoop(t *testing.T) {
	f := setup(t)

	f.router.SetCurrentRoute(navigator.RouteLogin, url.Values{"next": []string{navigator.RouteLogin}})
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, navigator.RouteAccountHome, calls[0].Path)
}

func TestReauthenticationRequiredAttachesReturnPath(t *testing.T) {
	f := setup(t)

	// A sensitive action was attempted on the orders page; the server
	// answers with a pending mfa_reauthenticate flow on first observation.
	f.router.SetCurrentRoute("/account/orders", url.Values{"page": []string{"2"}})
	f.ingest(t, unauthenticated(pending(envelope.FlowMFAReauthenticate, envelope.AuthenticatorTOTP)))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, navigator.RouteMFAReauthenticateTOTP, calls[0].Path)
	require.Equal(t, "/account/orders?page=2", calls[0].Query.Get("next"))
}

func TestReauthenticationRequiredQualifiesByAuthenticator(t *testing.T) {
	f := setup(t)

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	f.ingest(t, unauthenticated(pending(envelope.FlowMFAReauthenticate, envelope.AuthenticatorWebAuthn)))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, navigator.RouteMFAReauthenticateWebAuthn, calls[0].Path)
}

func TestFlowUpdatedNavigatesToFlowRoute(t *testing.T) {
	f := setup(t)

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	f.router.SetCurrentRoute(navigator.RouteLogin, nil)
	f.ingest(t, unauthenticated(pending(envelope.FlowMFAAuthenticate, envelope.AuthenticatorTOTP)))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, navigator.RouteMFAAuthenticateTOTP, calls[0].Path)
	// The mfa_authenticate table entry carries the return path.
	require.Equal(t, navigator.RouteLogin, calls[0].Query.Get("next"))
}

func TestUnresolvableFlowIsASilentNoOp(t *testing.T) {
	f := setup(t)

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	f.ingest(t, unauthenticated(pending(envelope.FlowProviderRedirect)))

	require.Empty(t, f.router.NavigateCalls())
}

func TestHandleIsIdempotentPerChange(t *testing.T) {
	f := setup(t)

	f.router.SetCurrentRoute(navigator.RouteLogin, nil)
	change := f.ingest(t, authenticated("1")) // reactor already handled it via the subscription

	// A watcher delivering the same change again must not double-navigate.
	f.reactor.Handle(change)
	f.reactor.Handle(change)

	require.Len(t, f.router.NavigateCalls(), 1)
}

func TestDistinctChangesNavigateEachTime(t *testing.T) {
	f := setup(t)

	f.ingest(t, authenticated("1"))
	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	f.ingest(t, authenticated("1"))

	// login, logout, login again: three reactions.
	require.Len(t, f.router.NavigateCalls(), 3)
}

func TestNavigationFailureIsSwallowed(t *testing.T) {
	f := setup(t)
	f.router.FailNavigation("router rejected path")

	f.ingest(t, authenticated("1"))

	// State stays correct even though the redirect failed.
	require.True(t, f.store.IsAuthenticated())
	require.Empty(t, f.router.NavigateCalls())
}

func TestLocalizerIsAppliedBeforeNavigation(t *testing.T) {
	f := setup(t, navigator.WithLocalizer(func(path string) string {
		return "/en-gb" + path
	}))

	f.router.SetCurrentRoute(navigator.RouteLogin, nil)
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "/en-gb"+navigator.RouteAccountHome, calls[0].Path)
}

func TestCustomRouteTable(t *testing.T) {
	routes := map[navigator.RouteKey]navigator.FlowRoute{
		{Flow: envelope.FlowVerifyEmail}: {Path: "/confirm-email"},
	}
	f := setup(t, navigator.WithRoutes(routes))

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	f.ingest(t, unauthenticated(pending(envelope.FlowVerifyEmail)))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "/confirm-email", calls[0].Path)
}

// The end-to-end shape of a password login: first load advertises the login
// flow (no navigation), the user submits credentials while sitting on the
// login page with a next hint, and exactly one navigation lands them there.
func TestLoginRoundTrip(t *testing.T) {
	f := setup(t)

	f.ingest(t, unauthenticated(pending(envelope.FlowLogin)))
	require.Empty(t, f.router.NavigateCalls())

	f.router.SetCurrentRoute(navigator.RouteLogin, url.Values{"next": []string{"/account/orders"}})
	f.ingest(t, authenticated("1"))

	calls := f.router.NavigateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "/account/orders", calls[0].Path)
	require.Equal(t, 0, f.session.ClearCount())
}
