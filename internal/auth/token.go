package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/punchcard/punchcard/internal/model"
)

const tokenIssuer = "punchcard"

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmptySecret  = errors.New("token secret must not be empty")
)

// VendorClaims are the JWT claims carried by a vendor access token.
type VendorClaims struct {
	VendorID string `json:"vendor_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 vendor access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. ttl is the access token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for vendor. It returns the token and its expiry.
func (i *TokenIssuer) Issue(vendor *model.Vendor) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := &VendorClaims{
		VendorID: vendor.ID,
		Email:    vendor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        model.NewID(),
			Subject:   vendor.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and returns the authenticated vendor identity
// together with the token expiry.
func (i *TokenIssuer) Verify(token string) (*model.AuthContext, time.Time, error) {
	claims := &VendorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, time.Time{}, ErrInvalidToken
	}
	if claims.VendorID == "" || claims.ExpiresAt == nil {
		return nil, time.Time{}, ErrInvalidToken
	}

	return &model.AuthContext{
		VendorID: claims.VendorID,
		Email:    claims.Email,
		TokenID:  claims.ID,
	}, claims.ExpiresAt.Time, nil
}
