package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"glucoplate"
	"glucoplate/store"
)

const minPasswordLength = 6

// Service logs users in. An unknown username is registered on first login.
type Service struct {
	users store.UserRepository
	jwt   *JWTManager
}

func NewService(users store.UserRepository, jwt *JWTManager) *Service {
	return &Service{users: users, jwt: jwt}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string          `json:"token"`
	User    glucoplate.User `json:"user"`
	Created bool            `json:"-"`
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, glucoplate.NewValidationError("username", "Username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	created := false
	switch {
	case errors.Is(err, glucoplate.ErrNotFound):
		user, err = s.register(ctx, username, password)
		if err != nil {
			return LoginResult{}, err
		}
		created = true
	case err != nil:
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	default:
		ok, err := CheckPassword(user.PasswordHash, password)
		if err != nil {
			return LoginResult{}, err
		}
		if !ok {
			slog.Warn("AUTH: Password mismatch", "username", username)
			return LoginResult{}, fmt.Errorf("invalid credentials: %w", glucoplate.ErrUnauthorized)
		}
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return LoginResult{}, err
	}

	slog.Info("AUTH: Logged in", "user_id", user.ID, "created", created)
	return LoginResult{Token: token, User: user, Created: created}, nil
}

func (s *Service) register(ctx context.Context, username, password string) (glucoplate.User, error) {
	if len(password) < minPasswordLength {
		return glucoplate.User{}, glucoplate.NewValidationError("password", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return glucoplate.User{}, err
	}

	user, err := s.users.Create(ctx, glucoplate.User{
		Username:     username,
		PasswordHash: hash,
		Name:         username,
		DiabetesType: "type2",
		Language:     glucoplate.Arabic,
	})
	if err != nil {
		return glucoplate.User{}, fmt.Errorf("register user: %w", err)
	}
	return user, nil
}

// Logout revokes the token. It always succeeds.
func (s *Service) Logout(token string) {
	s.jwt.Revoke(token)
}

// Authenticate returns the user a token was issued to.
func (s *Service) Authenticate(ctx context.Context, token string) (glucoplate.User, error) {
	id, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return glucoplate.User{}, fmt.Errorf("%w: %v", glucoplate.ErrUnauthorized, err)
	}

	user, err := s.users.Get(ctx, id)
	if errors.Is(err, glucoplate.ErrNotFound) {
		return glucoplate.User{}, fmt.Errorf("%w: unknown user", glucoplate.ErrUnauthorized)
	}
	return user, err
}
