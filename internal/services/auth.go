package services

import (
	"context"
	"errors"
	"strings"

	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/store"
	"github.com/itparc/inventory/types"
)

// Session is returned by Register and Login.
type Session struct {
	ID       int        `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     types.Role `json:"role"`
	Token    string     `json:"token"`
}

// AuthService issues tokens for credentials and resolves tokens back to users.
type AuthService struct {
	users *UserService
	repo  UserRepository
	creds *auth.Credentials
}

func NewAuthService(users *UserService, repo UserRepository, creds *auth.Credentials) *AuthService {
	return &AuthService{users: users, repo: repo, creds: creds}
}

// Register creates an account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in NewUser) (Session, error) {
	user, err := s.users.Create(ctx, 0, in)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login checks the password of username. Unknown usernames still cost one
// hash comparison.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, invalid("username and password are required")
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.creds.BurnVerification(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !s.creds.VerifySecret(password, user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

// Authenticate resolves a bearer token to the current state of its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	if strings.TrimSpace(token) == "" {
		return types.User{}, ErrUnauthenticated
	}
	claims, err := s.creds.VerifyToken(token)
	if err != nil {
		return types.User{}, ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user.Sanitized(), nil
}

func (s *AuthService) session(user types.User) (Session, error) {
	token, err := s.creds.IssueToken(user.ID, user.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Token:    token,
	}, nil
}
