// Package envelope defines the response shape of the headless authentication
// API. Every auth-related call returns an Envelope, whether it succeeded or
// not: the server reports "not authenticated" (401) and "session gone" (410)
// as structured bodies rather than bare transport errors, so the state layer
// can diff consecutive envelopes uniformly.
//
// The shape is dictated by the remote protocol and must be treated as fixed.
package envelope

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/openmerce/authflow/internal/errors"
)

// Status is the protocol-level status discriminant carried in every envelope.
// It mirrors HTTP codes but is part of the body, not the transport.
type Status int

const (
	// StatusAuthenticated means the session is fully authenticated.
	StatusAuthenticated Status = 200
	// StatusUnauthenticated means no authenticated session exists; the
	// envelope advertises the flows available to obtain one.
	StatusUnauthenticated Status = 401
	// StatusInvalidSession means the presented session token is no longer
	// valid (expired, revoked, or logged out elsewhere).
	StatusInvalidSession Status = 410
)

// Known reports whether s is one of the three statuses the protocol defines.
func (s Status) Known() bool {
	switch s {
	case StatusAuthenticated, StatusUnauthenticated, StatusInvalidSession:
		return true
	}
	return false
}

// User is the identity summary bound to an authenticated session.
type User struct {
	ID                json.Number `json:"id"`
	Display           string      `json:"display,omitempty"`
	Email             string      `json:"email,omitempty"`
	Username          string      `json:"username,omitempty"`
	HasUsablePassword bool        `json:"has_usable_password,omitempty"`
}

// Method kinds reported in Data.Methods.
const (
	MethodPassword      = "password"
	MethodMFA           = "mfa"
	MethodSocialAccount = "socialaccount"
	MethodCode          = "code"
)

// Method records one authentication method already satisfied this session,
// in the order the server applied them.
type Method struct {
	Method          string            `json:"method"`
	At              int64             `json:"at"` // unix seconds
	Email           string            `json:"email,omitempty"`
	Username        string            `json:"username,omitempty"`
	Provider        string            `json:"provider,omitempty"`
	Type            AuthenticatorType `json:"type,omitempty"` // set for mfa methods
	Reauthenticated bool              `json:"reauthenticated,omitempty"`
}

// IsReauthentication reports whether this method entry represents a second
// factor or an explicit re-proof of identity, as opposed to the initial
// login method.
func (m Method) IsReauthentication() bool {
	return m.Method == MethodMFA || m.Reauthenticated
}

// Data carries the user, methods, and flows sections of an envelope. User
// and Methods are present only on authenticated envelopes; Flows only on
// 401/410 envelopes.
type Data struct {
	User    *User    `json:"user,omitempty"`
	Methods []Method `json:"methods,omitempty"`
	Flows   []Flow   `json:"flows,omitempty"`
}

// Meta carries session metadata. The tokens appear only on successful
// authentication responses.
type Meta struct {
	IsAuthenticated bool   `json:"is_authenticated"`
	AccessToken     string `json:"access_token,omitempty"`
	SessionToken    string `json:"session_token,omitempty"`
}

// Envelope is one response from the auth API. Envelopes are immutable once
// decoded: the state layer keeps references to them across updates and
// relies on them never changing.
type Envelope struct {
	Status Status `json:"status"`
	Data   Data   `json:"data"`
	Meta   Meta   `json:"meta"`
}

// Authenticated reports whether the envelope describes a fully
// authenticated session.
func (e *Envelope) Authenticated() bool {
	return e.Status == StatusAuthenticated
}

// PendingFlow returns the flow the server expects the client to present
// next. The protocol marks at most one flow pending; if several are marked
// (a server bug we tolerate), the first pending entry in list order wins.
// If none is marked pending, the first advertised flow is used as a
// deliberate leniency. Returns false when the envelope advertises no flows
// at all.
func (e *Envelope) PendingFlow() (Flow, bool) {
	flows := e.Data.Flows
	if len(flows) == 0 {
		return Flow{}, false
	}
	for _, f := range flows {
		if f.IsPending {
			return f, true
		}
	}
	return flows[0], true
}

// Validate checks the structural contract the transport layer must uphold
// before an envelope may enter the state layer. A failure here is a bug in
// the caller, not a user-facing condition.
func (e *Envelope) Validate() error {
	if e == nil {
		return apperrors.ErrMalformedEnvelope
	}
	if !e.Status.Known() {
		return fmt.Errorf("[Envelope Validate] status %d: %w", e.Status, apperrors.ErrUnknownStatus)
	}
	if e.Authenticated() != e.Meta.IsAuthenticated {
		return fmt.Errorf("[Envelope Validate] status %d disagrees with meta.is_authenticated=%t: %w",
			e.Status, e.Meta.IsAuthenticated, apperrors.ErrMalformedEnvelope)
	}
	return nil
}

// Parse decodes and validates a raw envelope body. The meta section is
// required by the protocol; its absence means the body is not an envelope.
func Parse(raw []byte) (*Envelope, error) {
	var probe struct {
		Status *Status          `json:"status"`
		Meta   *json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("[Parse] failed to decode envelope: %w", err)
	}
	if probe.Status == nil || probe.Meta == nil {
		return nil, fmt.Errorf("[Parse] missing status or meta section: %w", apperrors.ErrMalformedEnvelope)
	}

	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("[Parse] failed to decode envelope: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
