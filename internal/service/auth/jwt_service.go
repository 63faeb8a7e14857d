// Package auth validates the bearer tokens that callers present to the engine.
//
// Tokens are HS256 JWTs issued with the secret shared with the collaborator;
// the subject claim carries the user id. The same token is forwarded to the
// collaborator on every study call, so a token the collaborator rejects is
// revoked here as well and the caller is sent back to login.
package auth

import (
	"context"
	"time"
)

// JWTService defines operations for validating and minting bearer tokens.
type JWTService interface {
	// GenerateToken creates a signed token for userID. The collaborator is the
	// usual issuer; this exists for local tooling and tests.
	GenerateToken(ctx context.Context, userID string) (string, error)

	// ValidateToken validates the token and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrRevokedToken or ErrInvalidToken.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated content of a bearer token.
type Claims struct {
	// UserID is the subject of the token.
	UserID    string    `json:"sub"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
