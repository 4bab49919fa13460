package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/finadmin-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTypeAccess is the only token type accepted on /v1.
const tokenTypeAccess = "access"

// JWTClaims represents the custom claims in access tokens issued by the
// auth service.
type JWTClaims struct {
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator verifies HS256 access tokens. Tokens are issued elsewhere;
// this BFA only checks them.
type TokenValidator struct {
	secret []byte
	leeway time.Duration
}

// NewTokenValidator creates a validator for the shared secret.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret), leeway: 30 * time.Second}
}

// ValidateAccessToken parses and verifies tokenString.
func (v *TokenValidator) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway), jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != tokenTypeAccess {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}

	return claims, nil
}
