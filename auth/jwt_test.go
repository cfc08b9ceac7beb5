package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParseClaims(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "user-42",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseClaims(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := DisplayNameFromClaims(claims); got != "alice" {
		t.Errorf("expected alice, got %q", got)
	}
	if got := SubjectFromClaims(claims); got != "user-42" {
		t.Errorf("expected user-42, got %q", got)
	}
	if Expired(claims, time.Now()) {
		t.Error("token should not be expired")
	}
	if !Expired(claims, time.Now().Add(2*time.Hour)) {
		t.Error("token should be expired in two hours")
	}
}

func TestParseClaimsRejectsGarbage(t *testing.T) {
	if _, err := ParseClaims("not-a-token"); err == nil {
		t.Error("expected an error")
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	if got := DisplayNameFromClaims(jwt.MapClaims{"name": "Bob Builder"}); got != "Bob" {
		t.Errorf("expected first word of name, got %q", got)
	}
	if got := DisplayNameFromClaims(jwt.MapClaims{}); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := SubjectFromClaims(jwt.MapClaims{"userId": "u1"}); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
}

func TestValidateToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "OKP",
			"crv": "Ed25519",
			"kid": "k1",
			"alg": "EdDSA",
			"use": "sig",
			"x":   base64.RawURLEncoding.EncodeToString(pub),
		}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}))
	defer server.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "user-7", "username": "carol"})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(server.URL, signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if SubjectFromClaims(claims) != "user-7" {
		t.Errorf("unexpected claims %v", claims)
	}

	if _, err := ValidateToken("", signed); err == nil {
		t.Error("expected an error without a JWKS URL")
	}
}
