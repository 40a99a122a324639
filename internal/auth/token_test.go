package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/auth"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestIntrospectReadsIdentityClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{
		"employee_code": "E1",
		"full_name":     "Ana Torres",
		"exp":           exp.Unix(),
	})

	identity, err := auth.Introspect(token)
	require.NoError(t, err)
	require.Equal(t, "E1", identity.EmployeeCode)
	require.Equal(t, "Ana Torres", identity.Name)
	require.True(t, identity.ExpiresAt.Equal(exp))
	require.False(t, identity.Expired(time.Now()))
	require.True(t, identity.Expired(exp.Add(time.Minute)))
}

func TestIntrospectFallsBackToSub(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "E7"})

	identity, err := auth.Introspect(token)
	require.NoError(t, err)
	require.Equal(t, "E7", identity.EmployeeCode)
	require.False(t, identity.Expired(time.Now()), "no exp claim means no local expiry")
}

func TestIntrospectRejectsAnonymousToken(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"scope": "chat"})

	_, err := auth.Introspect(token)
	require.ErrorIs(t, err, auth.ErrNoIdentity)
}

func TestIntrospectRejectsGarbage(t *testing.T) {
	_, err := auth.Introspect("not-a-jwt")
	require.Error(t, err)
}
