package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Authenticator resolves the caller of an RPC request.
// On success it returns the request with the caller id stored by WithCallerID.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*http.Request, error)

	// Schemes are advertised in the agent card's authentication field.
	Schemes() []string
}

// Reasons carried in AuthError.Code and echoed in the JSON-RPC error data.
const (
	AuthErrorCodeMissingCredentials = "missing_credentials"
	AuthErrorCodeInvalidCredentials = "invalid_credentials"
	AuthErrorCodeExpiredCredentials = "expired_credentials"
	AuthErrorCodeInsufficientScope  = "insufficient_scope"
)

// AuthError rejects a request before it reaches the agent service.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Scheme  string `json:"scheme,omitempty"`
}

func (e *AuthError) Error() string {
	reason := e.Code
	if e.Scheme != "" {
		reason = e.Scheme + ":" + e.Code
	}
	return fmt.Sprintf("unauthorized (%s): %s", reason, e.Message)
}

// NewAuthError returns an AuthError not tied to a scheme.
func NewAuthError(code, message string) *AuthError {
	return &AuthError{Code: code, Message: message}
}

// NewAuthErrorWithScheme returns an AuthError raised by the named scheme.
func NewAuthErrorWithScheme(code, message, scheme string) *AuthError {
	return &AuthError{Code: code, Message: message, Scheme: scheme}
}

// AnyOf accepts a request when one of the authenticators accepts it, trying them in order.
// The agent card advertises the schemes of all of them.
func AnyOf(authenticators ...Authenticator) Authenticator {
	return anyAuthenticator(authenticators)
}

type anyAuthenticator []Authenticator

func (a anyAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*http.Request, error) {
	var rejected error
	for _, auth := range a {
		req, err := auth.Authenticate(ctx, r)
		if err == nil {
			return req, nil
		}
		// presented but wrong credentials say more than missing ones
		if rejected == nil || (missingCredentials(rejected) && !missingCredentials(err)) {
			rejected = err
		}
	}
	if rejected == nil {
		return nil, NewAuthError(AuthErrorCodeMissingCredentials, "no authenticator configured")
	}
	return nil, rejected
}

func missingCredentials(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Code == AuthErrorCodeMissingCredentials
}

func (a anyAuthenticator) Schemes() []string {
	var schemes []string
	for _, auth := range a {
		schemes = append(schemes, auth.Schemes()...)
	}
	return schemes
}
