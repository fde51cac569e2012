package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session-token claims the identity provider issues for portal
// users. The subject is the account ID; sid identifies the browser session so
// the idle monitor can track activity per session rather than per account.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session identifier minted at sign-in.
	SID string `json:"sid,omitempty"`

	// Email of the authenticated account, informational only. Role and
	// profile state are always read fresh from the store, never from the
	// token, so stale claims cannot widen access.
	Email string `json:"email,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a portal session.
func NewSessionClaims(
	subject, sid, email string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		SID:   sid,
		Email: email,
	}
}

// ValidateIssuer checks the issuer against an expected value. An empty
// expected issuer enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token is inside its exp/nbf window.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
