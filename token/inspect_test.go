package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return tok
}

func TestInspectReadsRegisteredClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signed(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "account-api",
		Audience:  jwt.ClaimStrings{"web"},
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	claims, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.Issuer != "account-api" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "web" {
		t.Fatalf("unexpected audience %v", claims.Audience)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("expected exp %v, got %v", exp, claims.ExpiresAt)
	}
}

func TestInspectRejectsOpaqueTokens(t *testing.T) {
	if _, err := Inspect("abc123"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
	if _, err := Inspect("a.b.c"); err == nil {
		t.Fatal("expected decode error for garbage segments")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})
	future := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))})
	noExp := signed(t, jwt.RegisteredClaims{Subject: "u"})

	if !Expired(past, now, 0) {
		t.Fatal("expected past token to be expired")
	}
	if Expired(past, now, 2*time.Minute) {
		t.Fatal("leeway should cover a recently expired token")
	}
	if Expired(future, now, 0) {
		t.Fatal("future token must not be expired")
	}
	if Expired(noExp, now, 0) {
		t.Fatal("token without exp must not be expired")
	}
	if Expired("abc123", now, 0) {
		t.Fatal("opaque token must not be expired")
	}
}
