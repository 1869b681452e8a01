package auth

import (
	"context"

	"github.com/sakif/eventhub/internal/model"
)

// Identity is the verified acting principal of a request. Every mutating
// service call receives one; it is never built from unverified input.
type Identity struct {
	UserID string
	Role   model.Role
}

func (id Identity) IsAdmin() bool {
	return id.Role == model.RoleAdmin
}

// contextKey is unexported so no other package can read or shadow the
// identity stored in a context.
type contextKey struct{}

var identityKey contextKey

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by RequireAuth.
// ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}
