package profile

import (
	"context"

	"github.com/google/uuid"
)

// AuthContext carries the authenticated subject and granted scopes for one
// request. A zero SubjectID means the request is unauthenticated. It lives
// only in the request context and is never persisted.
type AuthContext struct {
	SubjectID uuid.UUID
	Scopes    []string
}

// IsAuthenticated reports whether the request acts on behalf of a subject.
func (a AuthContext) IsAuthenticated() bool {
	return a.SubjectID != uuid.Nil
}

type authContextKey struct{}

// WithAuth stores the request's AuthContext for downstream handlers and the
// service layer.
func WithAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext retrieves the request's AuthContext. The zero value is
// returned for anonymous requests.
func AuthFromContext(ctx context.Context) AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(AuthContext)
	return auth
}
