// Package auth carries the signed-in identity supplied by the external
// authentication provider.
package auth

import (
	"context"
	"strings"
)

type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
}

func (u User) SignedIn() bool {
	return strings.TrimSpace(u.ID) != ""
}

type ctxKey struct{}

// WithUser returns ctx carrying u. An anonymous user leaves ctx unchanged.
func WithUser(ctx context.Context, u User) context.Context {
	if !u.SignedIn() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	if !ok || !u.SignedIn() {
		return User{}, false
	}
	return u, true
}
