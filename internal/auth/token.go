// Package auth inspects the access token handed to the client. The backend
// verifies signatures; here the claims are only read to identify the user and
// warn before expiry.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoIdentity = errors.New("auth: token carries no employee identity")

// Identity is what the client needs to know about the token holder.
type Identity struct {
	EmployeeCode string
	Name         string
	ExpiresAt    time.Time
}

// Expired reports whether the token is past its exp claim. Tokens without an
// exp claim never expire locally.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Introspect parses the token without verifying its signature and extracts
// the holder's identity.
func Introspect(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, err
	}

	identity := Identity{
		EmployeeCode: claimString(claims, "employee_code", "employeeCode", "user_id", "sub"),
		Name:         claimString(claims, "full_name", "name", "username"),
	}
	if identity.EmployeeCode == "" {
		return Identity{}, ErrNoIdentity
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
