package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by API tokens. Tokens are minted by the external
// identity service; this core only verifies them. Actor is the
// human-readable identity recorded on acknowledge and resolve actions.
type Claims struct {
	Actor string `json:"actor"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims verifies the token signature and expiry and returns the
// embedded claims
func ParseClaims(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if c.Actor == "" {
		c.Actor = c.Subject
	}
	return c, nil
}

// MintToken issues a short-lived HS256 token. Used by the dev CLI and
// tests; production tokens come from the identity service.
func MintToken(actor, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Actor: actor,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString([]byte(secret))
}
