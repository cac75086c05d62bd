package transport

import (
	"context"
	"net/http"
)

// Context keys for the transport package
type contextKey string

const (
	// HTTP headers from original request
	httpHeadersKey contextKey = "http-headers"

	// Authenticated principal
	callerIDKey contextKey = "caller-id"
)

// WithHTTPHeaders adds HTTP headers to the context
func WithHTTPHeaders(ctx context.Context, headers http.Header) context.Context {
	if headers == nil {
		return ctx
	}
	return context.WithValue(ctx, httpHeadersKey, headers)
}

// GetHTTPHeaders retrieves HTTP headers from the context
func GetHTTPHeaders(ctx context.Context) http.Header {
	if headers, ok := ctx.Value(httpHeadersKey).(http.Header); ok {
		return headers
	}
	return nil
}

// WithCallerID records the authenticated caller. Authenticators call it so that
// tasks become owned by, and visible only to, that caller.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerIDKey, callerID)
}

// GetCallerID returns the authenticated caller, if any
func GetCallerID(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(callerIDKey).(string)
	return callerID, ok
}
