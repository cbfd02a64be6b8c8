package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
)

type Service interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	Authenticate(ctx context.Context, login, password string) (*User, error)
	GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*User, bool, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, user *User) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateUser ожидает сырой пароль в user.PasswordHash и заменяет его bcrypt-хешем.
// Email используется как username.
func (s *service) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.PasswordHash == "" {
		return nil, ErrEmptyPassword
	}
	hashPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return nil, fmt.Errorf("internal error hashing password: %w", err)
	}
	user.PasswordHash = string(hashPasswordBytes)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = user.Email

	createdID, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	user.ID = createdID
	log.Info().Stringer("user_id", user.ID).Msg("service: user registered")

	return user, nil
}

func (s *service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	found, err := s.repo.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to get user for authentication")
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		log.Warn().Stringer("user_id", found.ID).Msg("service: password mismatch")
		return nil, ErrInvalidCredentials
	}

	return found, nil
}

// GetOrCreateByEmail возвращает пользователя с этим email или создает нового
// со случайным паролем, которым нельзя войти. Второе значение true, если пользователь создан.
func (s *service) GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Error().Err(err).Msg("service: failed to get user by email")
		return nil, false, fmt.Errorf("failed to get user by email: %w", err)
	}

	password, err := randomPassword()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate password: %w", err)
	}

	created, err := s.CreateUser(ctx, &User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: password,
	})
	if errors.Is(err, ErrEmailExists) {
		// параллельный запрос успел создать пользователя
		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get user by email: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Msg("service: failed to get user by id in repository")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}

	return found, nil
}

// UpdateProfile обновляет имя и email; пароль меняется, только если передан.
func (s *service) UpdateProfile(ctx context.Context, user *User) (*User, error) {
	if user.PasswordHash != "" {
		newPassword, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to generate password hash")
			return nil, fmt.Errorf("failed to generate hash password: %w", err)
		}
		user.PasswordHash = string(newPassword)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrNotFound) {
			return nil, err
		}

		log.Error().Err(err).Msg("service: failed to update user")
		return nil, fmt.Errorf("failed to update user by id '%s': %w", user.ID.String(), err)
	}

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
