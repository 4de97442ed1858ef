package reportservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidShareToken indicates the share token is missing, malformed or expired.
var ErrInvalidShareToken = errors.New("invalid share token")

// ShareClaims carries the report a share link grants access to.
type ShareClaims struct {
	ReportID string `json:"report_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed share links for reports.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a share token issuer. TTL defaults to 7 days.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token granting read access to one report.
func (t *TokenIssuer) Issue(publicID string) (string, error) {
	now := time.Now()
	claims := ShareClaims{
		ReportID: publicID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, nil
}

// Verify parses a share token and returns the report it grants access to.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &ShareClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid || claims.ReportID == "" {
		return "", ErrInvalidShareToken
	}
	return claims.ReportID, nil
}
