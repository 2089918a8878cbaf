package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewTokenThenAuthenticatedIDRoundTrip(t *testing.T) {
	v := NewVerifier([]byte("test-key"))

	token, err := v.NewToken(42, time.Minute)
	require.NoError(t, err)

	id, err := v.AuthenticatedID(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

func TestAuthenticatedIDRejectsExpiredToken(t *testing.T) {
	v := NewVerifier([]byte("test-key"))

	token, err := v.NewToken(1, -time.Minute)
	require.NoError(t, err)

	_, err = v.AuthenticatedID(token)
	require.Error(t, err)
}

func TestAuthenticatedIDRejectsWrongKey(t *testing.T) {
	issuer := NewVerifier([]byte("issuer-key"))
	verifier := NewVerifier([]byte("different-key"))

	token, err := issuer.NewToken(7, time.Minute)
	require.NoError(t, err)

	_, err = verifier.AuthenticatedID(token)
	require.Error(t, err)
}

func TestAuthenticatedIDRejectsNonHMACSigningMethod(t *testing.T) {
	v := NewVerifier([]byte("test-key"))

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.AuthenticatedID(signed)
	require.Error(t, err)
}

func TestAuthenticatedIDRejectsNonNumericSubject(t *testing.T) {
	issuer := NewVerifier([]byte("test-key"))
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "not-a-number",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	_, err = issuer.AuthenticatedID(signed)
	require.Error(t, err)
}
