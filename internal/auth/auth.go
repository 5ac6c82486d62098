// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package auth provides the default ports.Auth implementation: a
// JWT-backed bearer token validator, following the same
// jwt.ParseWithClaims/RegisteredClaims shape used for the pack's user
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails parsing,
// signature verification, or expiry.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Claims is the payload this service expects in a bearer token minted by
// the external identity service. Auth is an abstract collaborator
// elsewhere in this service; this is the default wiring for running
// standalone.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuth validates tokens signed with a shared HMAC secret.
type JWTAuth struct {
	secret []byte
}

// New constructs a JWTAuth. secret must be non-empty.
func New(secret string) (*JWTAuth, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: secret must not be empty")
	}
	return &JWTAuth{secret: []byte(secret)}, nil
}

// Validate parses and verifies tokenString, returning the user id encoded
// in its claims. Callers must close the WebSocket with 1008 on failure,
// before any message is exchanged.
func (a *JWTAuth) Validate(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// Issue mints a short-lived token for userID, used by tests and local
// tooling that need to exercise the WebSocket endpoint without a full
// external identity service.
func (a *JWTAuth) Issue(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
