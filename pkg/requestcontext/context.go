// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	actor := requestcontext.ActorRef(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActorRef(ctx, actor)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActorRef(ctx, actor)
package requestcontext

import (
	"context"
	"time"

	id "hirelane/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorRefKey    struct{}
	actorRolesKey  struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	clientInfoKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActorRef    = actorRefKey{}
	ContextKeyActorRoles  = actorRolesKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyClientInfo  = clientInfoKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context (actor)
// -----------------------------------------------------------------------------

// ActorRef retrieves the authenticated account reference from the context.
// Returns the zero value (nil UUID) if not set.
func ActorRef(ctx context.Context) id.AccountRef {
	if actor, ok := ctx.Value(ContextKeyActorRef).(id.AccountRef); ok {
		return actor
	}
	return id.AccountRef{}
}

// WithActorRef injects an account reference into the context.
func WithActorRef(ctx context.Context, actor id.AccountRef) context.Context {
	return context.WithValue(ctx, ContextKeyActorRef, actor)
}

// ActorRoles retrieves the authenticated caller's roles from the context.
func ActorRoles(ctx context.Context) []string {
	if roles, ok := ctx.Value(ContextKeyActorRoles).([]string); ok {
		return roles
	}
	return nil
}

// WithActorRoles injects the caller's roles into the context.
func WithActorRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, ContextKeyActorRoles, roles)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the raw User-Agent header from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// ClientInfo retrieves the parsed client descriptor ("browser/version (os)")
// from the context. Empty when the middleware chain did not run.
func ClientInfo(ctx context.Context) string {
	if info, ok := ctx.Value(ContextKeyClientInfo).(string); ok {
		return info
	}
	return ""
}

// WithClientMetadata injects client IP, raw User-Agent, and the parsed client
// descriptor into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent, clientInfo string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	ctx = context.WithValue(ctx, ContextKeyClientInfo, clientInfo)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

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

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need one consistent timestamp per consumed message
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
