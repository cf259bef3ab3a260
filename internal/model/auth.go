package model

// AuthState tracks the remote session's authentication status.
type AuthState string

const (
	AuthUnknown         AuthState = "unknown"
	AuthChecking        AuthState = "checking"
	AuthAuthenticated   AuthState = "authenticated"
	AuthUnauthenticated AuthState = "unauthenticated"
)
