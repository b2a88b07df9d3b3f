package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned for opaque tokens that are not compact JWTs.
var ErrNotJWT = errors.New("token is not a jwt")

// Claims is the advisory view of a decoded token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return c != nil && !c.ExpiresAt.IsZero()
}

var parser = jwt.NewParser()

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotJWT
	}

	var rc jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(raw, &rc); err != nil {
		return nil, err
	}

	out := &Claims{
		Subject:  rc.Subject,
		Issuer:   rc.Issuer,
		Audience: []string(rc.Audience),
	}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	return out, nil
}

// Expired reports whether raw is a JWT whose exp claim is before now minus
// leeway. Opaque tokens, undecodable tokens and tokens without exp are never
// considered expired.
func Expired(raw string, now time.Time, leeway time.Duration) bool {
	claims, err := Inspect(raw)
	if err != nil || !claims.HasExpiry() {
		return false
	}
	return claims.ExpiresAt.Add(leeway).Before(now)
}
