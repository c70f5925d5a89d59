// Package identity maps a bearer token to the user an order is attributed to.
package identity

import (
	"context"
	"strings"

	"cruise-booking/internal/model"
)

// Identity is the resolved caller. A guest identity carries the guest
// sentinel as UserID.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
}

// Guest returns the identity used when no token was presented.
func Guest() Identity {
	return Identity{UserID: model.GuestUserID, Role: model.RoleUser}
}

// IsGuest reports whether no account is attached.
func (i Identity) IsGuest() bool {
	return i.UserID == "" || i.UserID == model.GuestUserID
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return !i.IsGuest() && i.Role == model.RoleAdmin
}

// Owns reports whether the order belongs to the caller, either by user id
// or, for orders placed before the account was known, by email. Emails
// compare case-insensitively, matching the by-email order listing.
func (i Identity) Owns(o *model.Order) bool {
	if i.IsGuest() || o == nil {
		return false
	}
	if o.UserID == i.UserID {
		return true
	}
	return i.Email != "" && strings.EqualFold(o.UserEmail, i.Email)
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached to ctx, or a guest identity
// when none was attached.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return Guest()
}
