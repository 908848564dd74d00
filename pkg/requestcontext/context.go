// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithCaller(ctx, account)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//
// WithTime is how the test suite drives the clock through phase windows and
// lock expiries deterministically.
package requestcontext

import (
	"context"
	"time"

	id "salegate/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyCaller      = callerKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller retrieves the authenticated caller account from the context.
// Returns the zero Account if not set.
func Caller(ctx context.Context) id.Account {
	if a, ok := ctx.Value(ContextKeyCaller).(id.Account); ok {
		return a
	}
	return id.Account("")
}

// WithCaller injects a caller account into the context.
func WithCaller(ctx context.Context, account id.Account) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, account)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, tests that don't care).
//
// A single operation observes one consistent "now": middleware pins the time
// at request entry so phase checks and lock validities within a call cannot
// straddle a clock tick.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
