// Package identity manages user accounts, sessions and role assignment. It is
// also the profile store the access evaluator resolves roles from.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Identity errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidRole        = errors.New("invalid role")
	ErrOwnRole            = errors.New("cannot change own role")
)

// Repository defines the interface for identity storage.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	ListUserIDsByRoles(ctx context.Context, roles []domain.Role) ([]string, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}

// TokenPair is an access token with its refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Authenticator issues and validates session tokens.
type Authenticator interface {
	GenerateTokens(ctx context.Context, user *domain.User) (*TokenPair, error)
	ValidateAccessToken(ctx context.Context, token string) (userID string, err error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	Type() string
}

// ActivityRecorder receives an entry per mutation.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// RegisterInput contains data for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

// LoginInput contains credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Service implements identity business logic.
type Service struct {
	repo          Repository
	authenticator Authenticator
	activity      ActivityRecorder
}

// NewService creates a new identity service.
func NewService(repo Repository, authenticator Authenticator, activity ActivityRecorder) *Service {
	return &Service{
		repo:          repo,
		authenticator: authenticator,
		activity:      activity,
	}
}

// Register creates an account. Accounts default to the viewer role.
func (s *Service) Register(ctx context.Context, input RegisterInput, actorID string) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleViewer
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.record(ctx, "user.created", user.ID, actorID, map[string]any{"role": string(role)})
	return user, nil
}

// EnsureAdmin creates an admin account for email unless one with that email
// already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.Register(ctx, RegisterInput{
		Email:    email,
		Password: password,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	}, "")
	if errors.Is(err, ErrEmailExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Login verifies credentials and issues tokens.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.authenticator.GenerateTokens(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	return user, tokens, nil
}

// RefreshTokens rotates a refresh token.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.authenticator.RefreshTokens(ctx, refreshToken)
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.authenticator.RevokeRefreshToken(ctx, refreshToken)
}

// ValidateToken returns the user id carried by an access token.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	return s.authenticator.ValidateAccessToken(ctx, token)
}

// GetUserByID returns a user by id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// GetRole returns the current role of a user. It is read from storage on
// every call.
func (s *Service) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// ListUserIDsByRoles returns the ids of all users holding one of roles.
func (s *Service) ListUserIDsByRoles(ctx context.Context, roles []domain.Role) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	return s.repo.ListUserIDsByRoles(ctx, roles)
}

// ListUsers returns a page of users ordered by email.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	users, total, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// UpdateRole assigns role to a user. Administrators cannot change their own
// role. The new role applies to the next request since roles are never
// cached in tokens.
func (s *Service) UpdateRole(ctx context.Context, userID string, role domain.Role, actorID string) (*domain.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if userID == actorID {
		return nil, ErrOwnRole
	}

	user, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.record(ctx, "user.role_changed", userID, actorID, map[string]any{"role": string(role)})
	return user, nil
}

func (s *Service) record(ctx context.Context, action, userID, actorID string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceKind: "user",
		ResourceID:   userID,
		Details:      details,
	})
}
