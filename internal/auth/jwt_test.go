package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		MemberID: 7,
		SellerID: 3,
		Roles:    []string{"seller"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.MemberID)
	assert.Equal(t, int64(3), claims.SellerID)
	assert.Equal(t, []string{"seller"}, claims.Roles)
}

func TestParseToken_Rejects(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), Claims{Roles: []string{"admin"}})

	cases := map[string]struct {
		token  string
		secret string
	}{
		"expired":     {expired, testSecret},
		"wrong key":   {wrongKey, testSecret},
		"garbage":     {"not.a.token", testSecret},
		"no secret":   {wrongKey, ""},
		"empty token": {"", testSecret},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret)
			assert.Error(t, err)
		})
	}
}

func TestGetBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetBearerToken(r))

	r.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", GetBearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, GetBearerToken(r))
}

func TestRoles(t *testing.T) {
	roles := []string{"member", "seller"}
	assert.True(t, HasRole(roles, "seller"))
	assert.False(t, HasRole(roles, "admin"))
	assert.True(t, HasAnyRole(roles, "admin", "seller"))
	assert.False(t, HasAnyRole(roles, "admin"))
	assert.False(t, HasAnyRole(nil, "admin"))
}

func TestClaimsContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{SellerID: 9})
	c, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(9), c.SellerID)
}
