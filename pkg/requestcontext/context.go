// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services and stores read them without
// importing net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithRequestID(ctx, "req-123")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey    struct{}
	requestTimeKey  struct{}
	sourceSystemKey struct{}
	callerKey       struct{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// SourceSystem retrieves the calling system tag from the context.
func SourceSystem(ctx context.Context) string {
	if src, ok := ctx.Value(sourceSystemKey{}).(string); ok {
		return src
	}
	return ""
}

// WithSourceSystem injects the calling system tag into the context.
func WithSourceSystem(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceSystemKey{}, source)
}

// Caller retrieves the collaborator-asserted caller identity from the context.
func Caller(ctx context.Context) string {
	if caller, ok := ctx.Value(callerKey{}).(string); ok {
		return caller
	}
	return ""
}

// WithCaller injects the caller identity into the context.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests that
// don't pin time).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need consistent time within a batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
