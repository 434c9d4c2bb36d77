package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxIdentity ctxKey = iota

// WithIdentity stores the resolved identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFrom returns the resolved identity previously stored by the
// middleware.
func IdentityFrom(ctx context.Context) (Identity, error) {
	if v, ok := ctx.Value(ctxIdentity).(Identity); ok && v.UID != "" {
		return v, nil
	}
	return Identity{}, errors.New("identity not in context")
}
