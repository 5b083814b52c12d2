package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "bridge_token"

var (
	ErrMissingToken = errors.New("missing access token")
	ErrNoSecret     = errors.New("bridge secret is not set")
)

// BridgeClaims identifies a caller of the bridge, usually one device or
// point-of-sale terminal.
type BridgeClaims struct {
	jwt.RegisteredClaims
}

// ExtractAccessToken reads the token from the bridge cookie, then from the
// Authorization header.
func ExtractAccessToken(r *http.Request) string {
	// embedded views can only set cookies on some platforms
	if cookie, err := r.Cookie(CookieName); err == nil {
		if cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// IssueToken signs an HS256 token for subject, valid for ttl from now.
func IssueToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	claims := BridgeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies tokenStr against secret. Only HS256 is accepted.
func ParseToken(secret, tokenStr string) (*BridgeClaims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	claims := &BridgeClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
