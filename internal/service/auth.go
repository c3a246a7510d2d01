// Package service holds the storefront and back-office business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/atinyakov/fasogadget/internal/metrics"
	"github.com/atinyakov/fasogadget/internal/models"
	"github.com/atinyakov/fasogadget/internal/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ConfigRepository defines the persistence operations on the AdminConfig
// singleton.
type ConfigRepository interface {
	// GetAdminConfig returns the stored credentials or models.ErrNotFound.
	GetAdminConfig(ctx context.Context) (*models.AdminConfig, error)
	// SaveAdminConfig replaces the stored credentials.
	SaveAdminConfig(ctx context.Context, cfg models.AdminConfig) error
}

// AuthService checks back-office credentials and manages sessions.
type AuthService struct {
	repo     ConfigRepository
	sessions session.Store
	log      *zap.Logger
	metrics  *metrics.Metrics
	cost     int
}

// NewAuthService constructs an AuthService. log and m may be nil.
func NewAuthService(repo ConfigRepository, sessions session.Store, log *zap.Logger, m *metrics.Metrics) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		log:      log,
		metrics:  m,
		cost:     bcrypt.DefaultCost,
	}
}

// Authenticate opens a session when username and password match the stored
// credentials. Any mismatch yields models.ErrAuthFailure without telling
// which field was wrong.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*session.Session, error) {
	cfg, err := s.repo.GetAdminConfig(ctx)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.Login(metrics.LoginFailure)
		return nil, models.ErrAuthFailure
	}
	if err != nil {
		s.metrics.Login(metrics.LoginError)
		return nil, fmt.Errorf("load admin config: %w", err)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1
	passOK, legacy := s.checkPassword(cfg, password)
	if !userOK || !passOK {
		s.metrics.Login(metrics.LoginFailure)
		s.log.Warn("admin login rejected")
		return nil, models.ErrAuthFailure
	}

	if legacy {
		s.upgradeLegacy(ctx, *cfg, password)
	}

	sess, err := s.sessions.Create(ctx, cfg.Username)
	if err != nil {
		s.metrics.Login(metrics.LoginError)
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.metrics.Login(metrics.LoginSuccess)
	s.log.Info("admin logged in", zap.String("username", sess.Username))
	return sess, nil
}

// checkPassword reports whether password matches cfg and whether the match
// was made against a plain-text password.
func (s *AuthService) checkPassword(cfg *models.AdminConfig, password string) (ok, legacy bool) {
	switch {
	case cfg.PasswordHash != "":
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(password)) == nil, false
	case cfg.LegacyPassword != "":
		return subtle.ConstantTimeCompare([]byte(password), []byte(cfg.LegacyPassword)) == 1, true
	default:
		return false, false
	}
}

func (s *AuthService) upgradeLegacy(ctx context.Context, cfg models.AdminConfig, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		s.log.Error("failed to hash legacy password", zap.Error(err))
		return
	}
	cfg.PasswordHash = string(hash)
	cfg.LegacyPassword = ""
	if err := s.repo.SaveAdminConfig(ctx, cfg); err != nil {
		s.log.Error("failed to upgrade legacy password", zap.Error(err))
		return
	}
	s.log.Info("legacy admin password hashed")
}

// IsAuthenticated returns the session bound to token, if any.
func (s *AuthService) IsAuthenticated(ctx context.Context, token string) (*session.Session, bool) {
	if token == "" {
		return nil, false
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("failed to load session", zap.Error(err))
		}
		return nil, false
	}
	return sess, true
}

// Logout destroys the session bound to token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, token)
}

// Username returns the stored admin username, empty when none is stored.
func (s *AuthService) Username(ctx context.Context) (string, error) {
	cfg, err := s.repo.GetAdminConfig(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cfg.Username, nil
}

// UpdateCredentials overwrites the username when non-empty and re-hashes the
// password when non-empty.
func (s *AuthService) UpdateCredentials(ctx context.Context, username, password string) error {
	cfg, err := s.repo.GetAdminConfig(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		cfg = &models.AdminConfig{}
	case err != nil:
		return fmt.Errorf("load admin config: %w", err)
	}

	if username != "" {
		cfg.Username = username
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		cfg.PasswordHash = string(hash)
		cfg.LegacyPassword = ""
	}
	if err := s.repo.SaveAdminConfig(ctx, *cfg); err != nil {
		return fmt.Errorf("save admin config: %w", err)
	}
	s.log.Info("admin credentials updated",
		zap.String("username", cfg.Username),
		zap.Bool("password_changed", password != ""))
	return nil
}

// EnsureAdmin stores the given credentials when no AdminConfig exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.repo.GetAdminConfig(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("load admin config: %w", err)
	}
	if username == "" || password == "" {
		return errors.New("initial admin credentials must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.SaveAdminConfig(ctx, models.AdminConfig{Username: username, PasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("save admin config: %w", err)
	}
	s.log.Info("default admin account created", zap.String("username", username))
	return nil
}
