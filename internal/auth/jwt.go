package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTProvider resolves HS256 bearer tokens into callers.
type JWTProvider struct {
	secret []byte
	issuer string
}

func NewJWTProvider(secret, issuer string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), issuer: issuer}
}

func (p *JWTProvider) ResolveCaller(_ context.Context, token string) (Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", orders.ErrUnauthenticated, err)
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return Caller{}, orders.Reason(orders.ErrUnauthenticated, "token carries no email")
	}
	c := Caller{Email: email}
	for _, r := range claims.Roles {
		c.Roles = append(c.Roles, Role(r))
	}
	return c, nil
}

// Issue signs a token for c. Used by local tooling and tests; production tokens come from the identity service.
func (p *JWTProvider) Issue(c Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Email,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	for _, r := range c.Roles {
		claims.Roles = append(claims.Roles, string(r))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", orders.Reason(orders.ErrUnauthenticated, "missing bearer token")
	}
	return fields[1], nil
}
