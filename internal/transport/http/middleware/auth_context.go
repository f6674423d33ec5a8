package middleware

import "context"

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Identity is the resolved caller placed into request context by Auth.
// Role and EmailVerified come from the identity store (via the cache),
// not from token claims, so revocations show up within cache TTL.
type Identity struct {
	UserID        string
	Email         string
	Role          string
	EmailVerified bool
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok && id.UserID != ""
}
