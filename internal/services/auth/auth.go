// Package auth содержит логику регистрации и входа пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/lib/password"
	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя. Занятый email даёт models.ErrEmailTaken.
	CreateUser(ctx context.Context, user models.User) error
	// GetUserByEmail возвращает пользователя по email или models.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenMaker выпускает токены доступа.
type TokenMaker interface {
	GenerateToken(userID, email string) (string, error)
}

// Service отвечает за регистрацию и вход.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenMaker
	log    *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenMaker, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

// Register создает пользователя и возвращает его ID.
//
// Email проверяется заранее, но окончательно уникальность гарантирует индекс в хранилище.
func (s *Service) Register(ctx context.Context, name, email, rawPassword string) (string, error) {
	const op = "auth.Register"

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return "", fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
	case !errors.Is(err, models.ErrUserNotFound):
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user registered", slog.String("user_id", user.ID))
	return user.ID, nil
}

// Login проверяет пароль и возвращает ID пользователя и токен доступа.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (userID, token string, err error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return "", "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	token, err = s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return user.ID, token, nil
}
