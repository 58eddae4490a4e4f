package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims issued to storefront members
type Claims struct {
	MemberID int64    `json:"memberId"`
	SellerID int64    `json:"sellerId,omitempty"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// ParseToken validates an HMAC-signed token against secret and returns its claims
func ParseToken(tokenStr, secret string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret not configured")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// GetBearerToken extracts the Bearer token from the Authorization header
func GetBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}

// HasRole checks if the user has a specific role
func HasRole(userRoles []string, required string) bool {
	return slices.Contains(userRoles, required)
}

// HasAnyRole checks if the user has any of the specified roles
func HasAnyRole(userRoles []string, allowed ...string) bool {
	for _, a := range allowed {
		if HasRole(userRoles, a) {
			return true
		}
	}
	return false
}

type claimsKey struct{}

// WithClaims stores verified claims on the context
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the claims stored by WithClaims, if any
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}
