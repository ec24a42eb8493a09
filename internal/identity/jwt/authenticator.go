// Package jwt implements identity.Authenticator with HS256 access tokens and
// opaque refresh tokens persisted in the database.
package jwt

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/identity"
)

const issuer = "forestgate"

// Config configures token lifetimes and the signing key.
type Config struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// TokenStore persists refresh tokens.
type TokenStore interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// Authenticator issues and validates tokens.
type Authenticator struct {
	config Config
	store  TokenStore
	now    func() time.Time
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(config Config, store TokenStore) *Authenticator {
	return &Authenticator{config: config, store: store, now: time.Now}
}

// Type returns the authenticator name.
func (a *Authenticator) Type() string {
	return "jwt"
}

// GenerateTokens issues an access token for user and persists a new refresh
// token. Only the hash of the refresh token is stored.
func (a *Authenticator) GenerateTokens(ctx context.Context, user *domain.User) (*identity.TokenPair, error) {
	now := a.now()

	claims := gojwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(a.config.AccessTokenDuration)),
	}
	access, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := a.store.SaveRefreshToken(ctx, &domain.RefreshToken{
		UserID:    user.ID,
		Token:     hashToken(refresh),
		ExpiresAt: now.Add(a.config.RefreshTokenDuration),
	}); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &identity.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.config.AccessTokenDuration.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccessToken verifies signature, issuer and expiry, and returns the
// subject.
func (a *Authenticator) ValidateAccessToken(_ context.Context, token string) (string, error) {
	var claims gojwt.RegisteredClaims
	parsed, err := gojwt.ParseWithClaims(token, &claims, func(*gojwt.Token) (any, error) {
		return []byte(a.config.SecretKey), nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", identity.ErrInvalidToken
	}
	return claims.Subject, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The presented token
// is consumed whether or not it has expired.
func (a *Authenticator) RefreshTokens(ctx context.Context, refreshToken string) (*identity.TokenPair, error) {
	hashed := hashToken(refreshToken)

	stored, err := a.store.GetRefreshToken(ctx, hashed)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	if err := a.store.DeleteRefreshToken(ctx, hashed); err != nil {
		return nil, fmt.Errorf("delete refresh token: %w", err)
	}

	if a.now().After(stored.ExpiresAt) {
		return nil, identity.ErrInvalidToken
	}

	user, err := a.store.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return a.GenerateTokens(ctx, user)
}

// RevokeRefreshToken deletes a refresh token. Unknown tokens are ignored.
func (a *Authenticator) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if err := a.store.DeleteRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
