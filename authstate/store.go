package authstate

import (
	"fmt"
	"sync"

	"github.com/openmerce/authflow/envelope"
)

// Change is what subscribers receive for every ingested envelope. Seq is a
// monotonically increasing ingestion counter: two Changes with the same Seq
// describe the same logical transition, which lets consumers short-circuit
// duplicate deliveries and detect stale arrivals.
type Change struct {
	Seq     uint64
	Event   Event
	Current *envelope.Envelope
}

// Store holds the latest auth envelope and the event computed from the
// transition that produced it. It is the single shared mutable resource of
// the auth core: only Ingest and Reset write to it, everything else observes
// through read-only projections or subscriptions.
//
// One Store instance serves the whole application session. Construct
// isolated instances in tests rather than sharing one.
type Store struct {
	mu       sync.RWMutex
	current  *envelope.Envelope
	previous *envelope.Envelope
	event    Event
	seq      uint64

	// notifyMu serializes ingest-and-notify so subscribers observe changes
	// in ingestion order even when Ingest is called from concurrent
	// response handlers.
	notifyMu    sync.Mutex
	subMu       sync.RWMutex
	subscribers []func(Change)
}

// NewStore returns an empty store: no envelope has been observed yet, so
// the next Ingest is classified as a first observation.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn to be called synchronously, in ingestion order,
// for every envelope that passes ingestion. Subscribers must not call
// Ingest or Reset from within the callback.
func (s *Store) Subscribe(fn func(Change)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Ingest is the single ingestion point for envelopes arriving from the
// transport layer. It atomically shifts current to previous, installs env
// as current, classifies the transition, and notifies subscribers. The
// returned Change is the same value the subscribers saw.
//
// A malformed envelope is rejected before it reaches the classifier; that
// is a contract violation by the transport layer and is surfaced to the
// caller rather than swallowed.
func (s *Store) Ingest(env *envelope.Envelope) (Change, error) {
	if err := env.Validate(); err != nil {
		return Change{}, fmt.Errorf("[Store Ingest] rejecting envelope: %w", err)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.previous = s.current
	s.current = env
	s.event = Classify(s.previous, s.current)
	s.seq++
	change := Change{Seq: s.seq, Event: s.event, Current: s.current}
	s.mu.Unlock()

	s.subMu.RLock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
	return change, nil
}

// Reset clears the observed envelopes and the last event, as on an explicit
// logout-and-clear. The subscriber list survives; the next Ingest is
// classified as a first observation again.
func (s *Store) Reset() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.current = nil
	s.previous = nil
	s.event = EventNone
	s.mu.Unlock()
}

// Current returns the last ingested envelope, or nil when nothing has been
// observed. Envelopes are immutable; callers must not modify the result.
func (s *Store) Current() *envelope.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LastEvent returns the event computed for the most recent ingestion.
func (s *Store) LastEvent() Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.event
}

// IsAuthenticated reports whether the last observed envelope describes an
// authenticated session.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.Authenticated()
}

// BoundUser returns the identity bound to the current session, or nil when
// the session is not authenticated.
func (s *Store) BoundUser() *envelope.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || !s.current.Authenticated() {
		return nil
	}
	return s.current.Data.User
}

// PendingFlow returns the flow the server expects the client to present
// next, per the tie-break rules documented on envelope.PendingFlow.
func (s *Store) PendingFlow() (envelope.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return envelope.Flow{}, false
	}
	return s.current.PendingFlow()
}

// RequiresReauthentication reports whether the current pending flow demands
// a re-proof of identity.
func (s *Store) RequiresReauthentication() bool {
	flow, ok := s.PendingFlow()
	return ok && flow.ID.IsReauthentication()
}
