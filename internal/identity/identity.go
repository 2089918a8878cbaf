// Package identity extracts the authenticated_id spec §1 says the core
// only ever consumes, never produces itself: it decodes a bearer token
// handed in by the login handler and hands back the numeric id dispatch
// stores on the connection. Credential checking beyond signature
// verification (is this id allowed to log in at all) is a game-rules
// concern outside this core's scope.
package identity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the minimal claim set a login token carries: a subject holding
// the numeric authenticated id, matching cc-backend's JWTAuthenticator
// convention of storing the principal id as the JWT subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens against a single HMAC key, the simplest of
// the signing modes cc-backend's auth.JWTAuthenticator supports.
type Verifier struct {
	key []byte
}

// NewVerifier returns a Verifier using key for HS256 validation.
func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// AuthenticatedID validates token and returns the numeric id carried in its
// subject claim.
func (v *Verifier) AuthenticatedID(token string) (uint64, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return 0, fmt.Errorf("identity: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, fmt.Errorf("identity: invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("identity: subject %q is not a numeric id", claims.Subject)
	}
	return id, nil
}

// NewToken issues a signed token for id, expiring after ttl. Used by tests
// and by any node acting as its own issuer.
func (v *Verifier) NewToken(id uint64, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}
