package api

import (
	"alcyxob/training-service/internal/domain"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrTokenGeneration = errors.New("failed to generate authentication token")

// IssueToken signs a token AuthMiddleware accepts. Staff tokens come from the identity
// service; this is for service accounts and local tooling.
func IssueToken(secret, userID string, role domain.Role, organizationID string, ttl time.Duration) (string, error) {
	if secret == "" || userID == "" || role == "" || organizationID == "" {
		return "", ErrTokenGeneration
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := &jwtClaims{
		UserID:         userID,
		Role:           role,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "training-service",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}
