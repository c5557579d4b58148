package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("not allowed to act for this user")
)

// Identity is the caller of a tracker operation.
type Identity struct {
	UserID string `json:"uid"`
	Admin  bool   `json:"admin"`
}

// CanActFor reports whether the identity may read or write target's data.
// Everyone may act for themselves; admins may act for anyone.
func (id Identity) CanActFor(target string) bool {
	return id.Admin || (id.UserID != "" && id.UserID == target)
}

// Authorize resolves the target user for a request. An empty target means the
// caller themselves.
func Authorize(actor Identity, target string) (string, error) {
	if actor.UserID == "" {
		return "", ErrUnauthenticated
	}
	if target == "" {
		return actor.UserID, nil
	}
	if !actor.CanActFor(target) {
		return "", ErrForbidden
	}
	return target, nil
}

type contextKey string

const identityContextKey contextKey = "worktimeIdentity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok && id.UserID != ""
}
