package auth

import (
	"context"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type Role string

const (
	RoleUser   Role = "User"
	RoleAdmin  Role = "Admin"
	RoleCSR    Role = "CSR"
	RoleVendor Role = "Vendor"
)

// Staff roles may act on purchases they do not own.
var Staff = []Role{RoleCSR, RoleAdmin, RoleVendor}

// Caller is the verified identity behind a request.
type Caller struct {
	Email string `json:"email"`
	Roles []Role `json:"roles"`
}

func (c Caller) HasAny(roles ...Role) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Owns reports whether the caller is the owner of a resource.
func (c Caller) Owns(ownerEmail string) bool {
	return c.Email != "" && orders.SameOwner(c.Email, ownerEmail)
}

// AuthorizeOwner allows the owner, or anyone holding one of the privileged roles.
func AuthorizeOwner(c Caller, ownerEmail string, privileged ...Role) error {
	if c.Owns(ownerEmail) || c.HasAny(privileged...) {
		return nil
	}
	return orders.ErrForbidden
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
