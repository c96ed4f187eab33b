// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tokens.go - HS256 session token minting and verification.
//
// Session tokens are signed JWTs so they are unguessable and carry the
// principal identity, but the registry remains the source of truth: a
// verified signature on a revoked session is still a dead session.
package authority

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jeranaias/fleetwatch/internal/api"
)

// SigningKeySize is the HMAC key length in bytes.
const SigningKeySize = 32

// ErrBadToken is returned when a token fails signature or claims
// validation.
var ErrBadToken = errors.New("invalid session token")

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	Username string   `json:"username"`
	Role     api.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies HS256 session tokens.
type TokenSigner struct {
	key   []byte
	clock func() time.Time
}

// NewTokenSigner creates a TokenSigner with the given HMAC key. A nil key
// generates a random per-process key, which is the normal dev-stub mode:
// restarting the authority invalidates all outstanding tokens.
func NewTokenSigner(key []byte, clock func() time.Time) (*TokenSigner, error) {
	if key == nil {
		key = make([]byte, SigningKeySize)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	if len(key) != SigningKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", SigningKeySize, len(key))
	}
	if clock == nil {
		clock = time.Now
	}
	return &TokenSigner{key: key, clock: clock}, nil
}

// Mint creates a signed session token for the principal, expiring at
// expiresAt.
func (s *TokenSigner) Mint(p api.Principal, expiresAt time.Time) (string, error) {
	now := s.clock()
	claims := SessionClaims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "fleetwatch-authd",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and registered claims and returns
// the embedded session claims.
//
// Expiry is deliberately NOT validated here: refresh extends a session's
// registry expiry past the JWT's original exp, so the registry's clock is
// authoritative and the claim is advisory. Signature and algorithm are
// strictly enforced.
func (s *TokenSigner) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.Subject == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrBadToken)
	}
	return claims, nil
}
