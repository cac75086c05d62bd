package tasklane

import (
	"context"
	"net/http"

	"github.com/mashiike/tasklane/transport"
)

type requestContextKey struct{}

// RequestContext carries what is known about the caller of a request.
// A nil CallerID means the request is trusted and skips ownership checks.
type RequestContext struct {
	CallerID *string
	Headers  http.Header
	Metadata map[string]any
}

// WithRequestContext attaches rc to ctx, overriding what the transport recorded.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context of ctx.
// Without an explicit one it is built from the transport's caller id and HTTP headers.
func RequestContextFrom(ctx context.Context) RequestContext {
	if rc, ok := ctx.Value(requestContextKey{}).(RequestContext); ok {
		return rc
	}
	rc := RequestContext{
		Headers: transport.GetHTTPHeaders(ctx),
	}
	if callerID, ok := transport.GetCallerID(ctx); ok {
		rc.CallerID = &callerID
	}
	return rc
}
