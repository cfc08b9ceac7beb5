package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ParseClaims reads the claims of a login token without checking its
// signature. The client only uses them for display; the server verifies.
func ParseClaims(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// ValidateToken verifies a login token against the JWKS at jwksURL and
// returns its claims.
func ValidateToken(jwksURL, tokenString string) (jwt.MapClaims, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("POKER_AUTH_JWKS_URL is not set")
	}
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithValidMethods([]string{"EdDSA", "RS256", "ES256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// DisplayNameFromClaims returns the "username" claim, else the first word of
// "name", else "".
func DisplayNameFromClaims(claims jwt.MapClaims) string {
	if u, ok := claims["username"].(string); ok && strings.TrimSpace(u) != "" {
		return strings.TrimSpace(u)
	}
	name, _ := claims["name"].(string)
	if parts := strings.Fields(name); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// SubjectFromClaims returns the user id from claims ("sub", "id" or "userId").
func SubjectFromClaims(claims jwt.MapClaims) string {
	for _, k := range []string{"sub", "id", "userId"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Expired reports whether claims carry an expiry at or before now.
func Expired(claims jwt.MapClaims, now time.Time) bool {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
