// Package auth verifies player credentials and looks up display names.
//
// The game only trusts the player id taken from a verified credential.
// Display names and roles are cosmetic and never decide game outcomes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("credential is required")
	ErrInvalidCredential = errors.New("credential is invalid")
	ErrExpiredCredential = errors.New("credential is expired")
)

// Identity is what a verified credential tells us about the caller
type Identity struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Verifier turns a credential into a stable player identity
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// Directory maps player ids to display names
type Directory interface {
	DisplayName(ctx context.Context, playerID string) (string, error)
}

// claims is the token payload; the subject is the player id
type claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// JWTVerifier checks HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier creates a verifier. An empty issuer accepts any issuer.
func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify validates a token and returns the identity in it
func (v *JWTVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	credential = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if credential == "" {
		return Identity{}, ErrMissingCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(credential, &parsed, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: subject is required", ErrInvalidCredential)
	}
	return Identity{PlayerID: subject, Name: parsed.Name, Role: parsed.Role}, nil
}

// Issue signs a token for playerID valid for ttl
func (v *JWTVerifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id.PlayerID) == "" {
		return "", fmt.Errorf("player id is required")
	}
	now := v.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.PlayerID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: id.Name,
		Role: id.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// mapJWTError translates jwt library errors to auth errors
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredCredential
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
}
