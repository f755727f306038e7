package authstate

import "github.com/openmerce/authflow/envelope"

// Classify compares the previous envelope to the current one and returns the
// single event describing the transition. previous is nil on the very first
// observation. The function is pure, total, and deterministic: it performs
// no I/O, never panics on well-formed envelopes, and the same pair of
// envelopes always yields the same event.
//
// Rules are priority-ordered; the first match wins:
//
//  1. First observation: an authenticated envelope is a login; a pending
//     reauthentication flow demands reauthentication; anything else is not
//     an event (initial page load with no session).
//  2. Authenticated → authenticated: a different bound user is a login (the
//     session swapped users); a newly satisfied reauthentication method is
//     a reauthentication; otherwise nothing happened (heartbeat refresh).
//  3. Authenticated → not: logout.
//  4. Not → authenticated: login.
//  5. Still not authenticated: a pending reauthentication flow demands
//     reauthentication; a changed or newly appeared pending flow is a flow
//     update; otherwise nothing happened.
func Classify(previous, current *envelope.Envelope) Event {
	if current == nil {
		return EventNone
	}

	if previous == nil {
		if current.Authenticated() {
			return EventLoggedIn
		}
		if flow, ok := current.PendingFlow(); ok && flow.ID.IsReauthentication() {
			return EventReauthenticationRequired
		}
		return EventNone
	}

	switch {
	case previous.Authenticated() && current.Authenticated():
		if userChanged(previous.Data.User, current.Data.User) {
			return EventLoggedIn
		}
		if newReauthenticationMethod(previous.Data.Methods, current.Data.Methods) {
			return EventReauthenticated
		}
		return EventNone

	case previous.Authenticated():
		return EventLoggedOut

	case current.Authenticated():
		return EventLoggedIn
	}

	// Neither envelope is authenticated: look at the pending flow.
	flow, ok := current.PendingFlow()
	if !ok {
		return EventNone
	}
	if flow.ID.IsReauthentication() {
		return EventReauthenticationRequired
	}
	prevFlow, hadFlow := previous.PendingFlow()
	if !hadFlow || prevFlow.ID != flow.ID {
		return EventFlowUpdated
	}
	return EventNone
}

func userChanged(previous, current *envelope.User) bool {
	if current == nil {
		return false
	}
	return previous == nil || previous.ID != current.ID
}

// newReauthenticationMethod reports whether current contains a
// reauthentication method entry absent from previous. Entries are matched
// by kind and timestamp; the methods list is append-only server-side, so a
// missing pair means the entry is new.
func newReauthenticationMethod(previous, current []envelope.Method) bool {
	type key struct {
		method string
		at     int64
	}
	seen := make(map[key]struct{}, len(previous))
	for _, m := range previous {
		seen[key{m.Method, m.At}] = struct{}{}
	}
	for _, m := range current {
		if !m.IsReauthentication() {
			continue
		}
		if _, ok := seen[key{m.Method, m.At}]; !ok {
			return true
		}
	}
	return false
}
