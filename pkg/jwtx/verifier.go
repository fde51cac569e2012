package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidKey  = errors.New("jwtx: invalid verification key")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a JWT and returns its claims if it checks out.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSAVerifier validates session tokens signed by the identity provider with
// an Ed25519 key. The portal only ever verifies; signing stays with the
// provider (the Signer in this package exists for tests and local dev).
type EdDSAVerifier struct {
	pub    ed25519.PublicKey
	issuer string
}

// NewEdDSAVerifier creates a verifier for tokens from the given issuer.
func NewEdDSAVerifier(pub ed25519.PublicKey, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{pub: pub, issuer: issuer}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.pub, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// LoadPublicKeyPEM reads an Ed25519 public key from a PEM file, the format the
// identity provider publishes its verification key in.
func LoadPublicKeyPEM(path string) (ed25519.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwtx: read key file: %w", err)
	}
	return ParsePublicKeyPEM(raw)
}

// ParsePublicKeyPEM parses a PKIX-encoded Ed25519 public key.
func ParsePublicKeyPEM(raw []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, ErrInvalidKey
	}
	return pub, nil
}
