// Package ctxutil carries per-operation identity through the context.
// The actor is recorded on every lifecycle transition; operations
// without an explicit actor run as the system.
package ctxutil

import "context"

type ctxKey string

const (
	actorKey     ctxKey = "actor"
	requestIDKey ctxKey = "request_id"
)

// SystemActor is the actor recorded for timer- and aggregation-driven
// transitions.
const SystemActor = "system"

// WithActor stores the acting user ID in the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromCtx extracts the actor from the context. Returns SystemActor
// when no actor was set, so background sweeps are attributed correctly
// without every call site special-casing it.
func ActorFromCtx(ctx context.Context) string {
	actor, ok := ctx.Value(actorKey).(string)
	if !ok || actor == "" {
		return SystemActor
	}
	return actor
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
