// Package requestid carries the inbound request id through context.Context so
// outbound calls to the scoring service can forward it.
package requestid

import "context"

// Header is the HTTP header used to propagate request ids.
const Header = "X-Request-ID"

type ctxKey struct{}

// WithContext returns a copy of ctx carrying id.
func WithContext(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
