package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

// Session возвращается после регистрации и входа через Google.
type Session struct {
	User *user.User `json:"user"`
	TokenPair
}

type Service interface {
	Register(ctx context.Context, newUser *user.User) (*Session, error)
	Login(ctx context.Context, login, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	GoogleLogin(ctx context.Context, token string) (*Session, error)
}

type service struct {
	users    user.Service
	tokens   *TokenManager
	verifier IdentityVerifier
	metrics  *metrics.Metrics
}

func NewService(users user.Service, tokens *TokenManager, verifier IdentityVerifier, m *metrics.Metrics) Service {
	return &service{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		metrics:  m,
	}
}

func (s *service) Register(ctx context.Context, newUser *user.User) (*Session, error) {
	created, err := s.users.CreateUser(ctx, newUser)
	if err != nil {
		return nil, err
	}
	return s.session(created)
}

func (s *service) Login(ctx context.Context, login, password string) (TokenPair, error) {
	found, err := s.users.Authenticate(ctx, login, password)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(found.ID, found.IsStaff)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", found.ID).Msg("service: failed to issue tokens")
		return TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return pair, nil
}

// Refresh выдает новый access token. Флаг staff берется из базы, а не из refresh-токена.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, RefreshToken)
	if err != nil {
		return "", err
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidToken
	}

	found, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	access, err := s.tokens.IssueAccess(found.ID, found.IsStaff)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return access, nil
}

func (s *service) GoogleLogin(ctx context.Context, token string) (*Session, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrTokenRequired) {
			s.metrics.IdentityVerifications.WithLabelValues(metrics.OutcomeFailure).Inc()
		}
		return nil, err
	}
	s.metrics.IdentityVerifications.WithLabelValues(identity.Source).Inc()

	if identity.Email == "" {
		return nil, ErrEmailMissing
	}

	account, created, err := s.users.GetOrCreateByEmail(ctx, identity.Email, identity.GivenName, identity.FamilyName)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to resolve google account")
		return nil, err
	}
	log.Info().
		Stringer("user_id", account.ID).
		Bool("created", created).
		Str("verified_by", identity.Source).
		Msg("service: google login")

	return s.session(account)
}

func (s *service) session(u *user.User) (*Session, error) {
	pair, err := s.tokens.IssuePair(u.ID, u.IsStaff)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to issue tokens")
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &Session{User: u, TokenPair: pair}, nil
}
