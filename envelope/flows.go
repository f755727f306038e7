package envelope

// FlowID names a step in the multi-step authentication handshake.
type FlowID string

const (
	FlowVerifyEmail       FlowID = "verify_email"
	FlowLogin             FlowID = "login"
	FlowLoginByCode       FlowID = "login_by_code"
	FlowSignup            FlowID = "signup"
	FlowProviderRedirect  FlowID = "provider_redirect"
	FlowProviderSignup    FlowID = "provider_signup"
	FlowProviderToken     FlowID = "provider_token"
	FlowReauthenticate    FlowID = "reauthenticate"
	FlowMFAReauthenticate FlowID = "mfa_reauthenticate"
	FlowMFAAuthenticate   FlowID = "mfa_authenticate"
	FlowMFASignupWebAuthn FlowID = "mfa_signup_webauthn"
)

// IsReauthentication reports whether the flow re-proves an identity the
// session already holds, rather than establishing a new one.
func (id FlowID) IsReauthentication() bool {
	return id == FlowReauthenticate || id == FlowMFAReauthenticate
}

// AuthenticatorType is the second-factor mechanism associated with an
// mfa_authenticate / mfa_reauthenticate flow.
type AuthenticatorType string

const (
	AuthenticatorTOTP          AuthenticatorType = "totp"
	AuthenticatorRecoveryCodes AuthenticatorType = "recovery_codes"
	AuthenticatorWebAuthn      AuthenticatorType = "webauthn"
)

// Flow is one advertised step of the handshake. At most one advertised flow
// carries IsPending at a time; see Envelope.PendingFlow for how ties and
// absence are resolved.
type Flow struct {
	ID        FlowID              `json:"id"`
	Providers []string            `json:"providers,omitempty"`
	IsPending bool                `json:"is_pending,omitempty"`
	Types     []AuthenticatorType `json:"types,omitempty"`
}

// Authenticator returns the authenticator type the server expects for this
// flow, or "" when the flow carries none. When the server offers several,
// the first listed is the one it wants presented first.
func (f Flow) Authenticator() AuthenticatorType {
	if len(f.Types) == 0 {
		return ""
	}
	return f.Types[0]
}
