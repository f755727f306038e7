// Package authstate tracks the authentication state of the storefront
// session. It holds the latest envelope reported by the auth API, classifies
// the transition from the previous envelope into a single event, and notifies
// subscribers synchronously so navigation can react exactly once per change.
package authstate

// Event names the transition between two consecutive auth envelopes.
// Classification is synchronous and single-valued: every ingested envelope
// produces exactly one event (possibly EventNone), and no two events are
// ever in flight at the same time.
type Event string

const (
	// EventNone means the new envelope requires no navigational reaction
	// (first page load without a session, or a no-op background refresh).
	EventNone Event = ""
	// EventLoggedIn fires when a session becomes authenticated, including
	// the case where an authenticated session swaps to a different user.
	EventLoggedIn Event = "logged_in"
	// EventLoggedOut fires when an authenticated session is lost.
	EventLoggedOut Event = "logged_out"
	// EventReauthenticated fires when an already-authenticated session
	// re-proves its identity (second factor or password re-entry).
	EventReauthenticated Event = "reauthenticated"
	// EventReauthenticationRequired fires when the server demands a
	// re-proof before the session may continue.
	EventReauthenticationRequired Event = "reauthentication_required"
	// EventFlowUpdated fires when the pending flow of an unauthenticated
	// session changes (e.g. login advanced to a 2FA challenge).
	EventFlowUpdated Event = "flow_updated"
)
