package navigator

import "github.com/openmerce/authflow/envelope"

// Storefront route path constants
// All paths the reactor can navigate to are defined here to ensure
// consistency and prevent typos
const (
	RouteHome        = "/"
	RouteAccountHome = "/account"

	RouteLogin            = "/account/login"
	RouteLoginCodeConfirm = "/account/login/code/confirm"
	RouteSignup           = "/account/signup"
	RouteVerifyEmail      = "/account/verify-email"
	RouteProviderSignup   = "/account/provider/signup"
	RoutePasskeySignup    = "/account/signup/passkey"

	RouteMFAAuthenticateTOTP     = "/account/2fa/authenticate/totp"
	RouteMFAAuthenticateRecovery = "/account/2fa/authenticate/recovery-codes"
	RouteMFAAuthenticateWebAuthn = "/account/2fa/authenticate/webauthn"

	RouteReauthenticate            = "/account/reauthenticate"
	RouteMFAReauthenticateTOTP     = "/account/2fa/reauthenticate/totp"
	RouteMFAReauthenticateRecovery = "/account/2fa/reauthenticate/recovery-codes"
	RouteMFAReauthenticateWebAuthn = "/account/2fa/reauthenticate/webauthn"
)

// RouteKey identifies a flow-table entry. Authenticator is empty for flows
// that carry no second-factor qualifier; for mfa flows a qualified entry is
// consulted before the unqualified fallback.
type RouteKey struct {
	Flow          envelope.FlowID
	Authenticator envelope.AuthenticatorType
}

// FlowRoute is the navigation target for one flow-table entry. CarryNext
// makes EventFlowUpdated attach the current path as a next hint, so the
// user returns to where they were once the flow completes.
type FlowRoute struct {
	Path      string
	CarryNext bool
}

// DefaultRoutes returns the static flow→route table for the storefront.
// provider_redirect is deliberately absent: that flow is driven entirely by
// the provider round-trip and never resolves to a local route (the reactor
// treats an unresolvable flow as a defined no-op).
func DefaultRoutes() map[RouteKey]FlowRoute {
	return map[RouteKey]FlowRoute{
		{Flow: envelope.FlowLogin}:           {Path: RouteLogin},
		{Flow: envelope.FlowSignup}:          {Path: RouteSignup},
		{Flow: envelope.FlowVerifyEmail}:     {Path: RouteVerifyEmail},
		{Flow: envelope.FlowLoginByCode}:     {Path: RouteLoginCodeConfirm},
		{Flow: envelope.FlowProviderSignup}:  {Path: RouteProviderSignup},
		{Flow: envelope.FlowProviderToken}:   {Path: RouteLogin},
		{Flow: envelope.FlowMFASignupWebAuthn}: {Path: RoutePasskeySignup},

		{Flow: envelope.FlowMFAAuthenticate, Authenticator: envelope.AuthenticatorTOTP}:          {Path: RouteMFAAuthenticateTOTP, CarryNext: true},
		{Flow: envelope.FlowMFAAuthenticate, Authenticator: envelope.AuthenticatorRecoveryCodes}: {Path: RouteMFAAuthenticateRecovery, CarryNext: true},
		{Flow: envelope.FlowMFAAuthenticate, Authenticator: envelope.AuthenticatorWebAuthn}:      {Path: RouteMFAAuthenticateWebAuthn, CarryNext: true},
		{Flow: envelope.FlowMFAAuthenticate}:                                                     {Path: RouteMFAAuthenticateTOTP, CarryNext: true},

		{Flow: envelope.FlowReauthenticate}: {Path: RouteReauthenticate},
		{Flow: envelope.FlowMFAReauthenticate, Authenticator: envelope.AuthenticatorTOTP}:          {Path: RouteMFAReauthenticateTOTP},
		{Flow: envelope.FlowMFAReauthenticate, Authenticator: envelope.AuthenticatorRecoveryCodes}: {Path: RouteMFAReauthenticateRecovery},
		{Flow: envelope.FlowMFAReauthenticate, Authenticator: envelope.AuthenticatorWebAuthn}:      {Path: RouteMFAReauthenticateWebAuthn},
		{Flow: envelope.FlowMFAReauthenticate}:                                                     {Path: RouteMFAReauthenticateTOTP},
	}
}
