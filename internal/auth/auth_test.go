package auth

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProvider_RoundTrip(t *testing.T) {
	p := NewJWTProvider("test-secret", "marketplace")
	tok, err := p.Issue(Caller{Email: "ana@shop.io", Roles: []Role{RoleUser, RoleVendor}}, time.Minute)
	require.NoError(t, err)

	c, err := p.ResolveCaller(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@shop.io", c.Email)
	assert.True(t, c.HasAny(RoleVendor))
	assert.False(t, c.HasAny(RoleAdmin, RoleCSR))
}

func TestJWTProvider_Rejects(t *testing.T) {
	p := NewJWTProvider("test-secret", "marketplace")

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewJWTProvider("other", "marketplace").Issue(Caller{Email: "a@b.c"}, time.Minute)
		require.NoError(t, err)
		_, err = p.ResolveCaller(context.Background(), tok)
		assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	})
	t.Run("expired", func(t *testing.T) {
		tok, err := p.Issue(Caller{Email: "a@b.c"}, -time.Minute)
		require.NoError(t, err)
		_, err = p.ResolveCaller(context.Background(), tok)
		assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := NewJWTProvider("test-secret", "elsewhere").Issue(Caller{Email: "a@b.c"}, time.Minute)
		require.NoError(t, err)
		_, err = p.ResolveCaller(context.Background(), tok)
		assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	})
	t.Run("no email", func(t *testing.T) {
		tok, err := p.Issue(Caller{}, time.Minute)
		require.NoError(t, err)
		_, err = p.ResolveCaller(context.Background(), tok)
		assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := p.ResolveCaller(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, orders.ErrUnauthenticated)
	})
}

func TestParseBearer(t *testing.T) {
	tok, err := ParseBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer"} {
		_, err := ParseBearer(h)
		assert.ErrorIs(t, err, orders.ErrUnauthenticated, h)
	}
}

func TestAuthorizeOwner(t *testing.T) {
	user := Caller{Email: "ana@shop.io", Roles: []Role{RoleUser}}
	csr := Caller{Email: "cs@shop.io", Roles: []Role{RoleCSR}}

	assert.NoError(t, AuthorizeOwner(user, "ANA@shop.io"))
	assert.ErrorIs(t, AuthorizeOwner(user, "bob@shop.io"), orders.ErrForbidden)
	assert.NoError(t, AuthorizeOwner(csr, "bob@shop.io", Staff...))
	assert.ErrorIs(t, AuthorizeOwner(csr, "bob@shop.io", RoleAdmin), orders.ErrForbidden)

	ctx := WithCaller(context.Background(), user)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user.Email, got.Email)
}
