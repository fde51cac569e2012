package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	signer, pub, err := GenerateEdDSASigner()
	require.NoError(t, err)

	verifier := NewEdDSAVerifier(pub, "portal-identity")

	t.Run("round trip preserves claims", func(t *testing.T) {
		claims := NewSessionClaims(
			"acct-1", "sess-1", "ops@haulstack.example",
			time.Hour, "portal-identity", time.Now().UTC(),
		)

		token, err := signer.Sign(claims)
		require.NoError(t, err)

		got, err := verifier.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "acct-1", got.Subject)
		require.Equal(t, "sess-1", got.SID)
		require.Equal(t, "ops@haulstack.example", got.Email)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		claims := NewSessionClaims(
			"acct-1", "sess-1", "",
			time.Hour, "portal-identity",
			time.Now().UTC().Add(-2*time.Hour),
		)

		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("rejects issuer mismatch", func(t *testing.T) {
		claims := NewSessionClaims(
			"acct-1", "sess-1", "",
			time.Hour, "someone-else", time.Now().UTC(),
		)

		token, err := signer.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("rejects tokens from a different key", func(t *testing.T) {
		other, _, err := GenerateEdDSASigner()
		require.NoError(t, err)

		claims := NewSessionClaims(
			"acct-1", "sess-1", "",
			time.Hour, "portal-identity", time.Now().UTC(),
		)

		token, err := other.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects unexpected signing methods", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, NewSessionClaims(
			"acct-1", "sess-1", "",
			time.Hour, "portal-identity", time.Now().UTC(),
		))
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})
}

func TestParsePublicKeyPEM(t *testing.T) {
	t.Parallel()

	t.Run("parses a PKIX Ed25519 key", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		der, err := x509.MarshalPKIXPublicKey(pub)
		require.NoError(t, err)
		raw := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

		parsed, err := ParsePublicKeyPEM(raw)
		require.NoError(t, err)
		require.Equal(t, pub, parsed)
	})

	t.Run("rejects non-PEM input", func(t *testing.T) {
		_, err := ParsePublicKeyPEM([]byte("garbage"))
		require.ErrorIs(t, err, ErrInvalidKey)
	})
}
