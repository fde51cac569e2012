package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// EdDSASigner mints session tokens with an Ed25519 private key. In production
// the identity provider holds the key; this signer backs tests and local dev
// where no provider is running.
type EdDSASigner struct {
	priv ed25519.PrivateKey
}

// NewEdDSASigner wraps an existing private key.
func NewEdDSASigner(priv ed25519.PrivateKey) *EdDSASigner {
	return &EdDSASigner{priv: priv}
}

// GenerateEdDSASigner creates a fresh keypair and returns the signer plus the
// public half for a matching verifier.
func GenerateEdDSASigner() (*EdDSASigner, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: generate keypair: %w", err)
	}
	return &EdDSASigner{priv: priv}, pub, nil
}

// Sign produces a compact JWT for the given claims.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.priv)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}
