// Package auth verifies the HS256 access tokens issued by the identity
// service. Sign exists for local tooling and tests sharing the secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var (
	ErrMissingSecret  = errors.New("jwt secret is required")
	ErrMissingUser    = errors.New("token missing user_id")
	ErrVendorRequired = errors.New("vendor role requires vendor_id")
)

// Principal is who a token speaks for. VendorID names the vendor a vendor
// staff member acts for.
type Principal struct {
	UserID   uuid.UUID      `json:"user_id"`
	Role     enums.UserRole `json:"role"`
	VendorID *uuid.UUID     `json:"vendor_id,omitempty"`
}

func (p Principal) check() error {
	switch {
	case p.UserID == uuid.Nil:
		return ErrMissingUser
	case !p.Role.IsValid():
		return fmt.Errorf("invalid user role %q", p.Role)
	case p.Role == enums.UserRoleVendor && (p.VendorID == nil || *p.VendorID == uuid.Nil):
		return ErrVendorRequired
	}
	return nil
}

// Claims is the decoded token body.
type Claims struct {
	Principal
	jwt.RegisteredClaims
}

// Sign issues a token for p valid for cfg.ExpirationMinutes from now.
func Sign(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	if cfg.Secret == "" {
		return "", ErrMissingSecret
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if err := p.check(); err != nil {
		return "", err
	}
	claims := Claims{
		Principal: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func Verify(cfg config.JWTConfig, token string) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if err := claims.check(); err != nil {
		return nil, err
	}
	return claims, nil
}
