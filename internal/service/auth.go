package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/ratelimit"
)

// Limiter throttles attempts per key.
type Limiter interface {
	Allow(key string) bool
}

// AuthService handles operator login and session lookup.
type AuthService struct {
	operator   *auth.Operator
	credential *auth.SessionCredential
	limiter    Limiter
	logger     *slog.Logger
}

// NewAuthService creates an authentication service. A nil limiter disables
// login throttling.
func NewAuthService(
	operator *auth.Operator,
	credential *auth.SessionCredential,
	limiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &AuthService{
		operator:   operator,
		credential: credential,
		logger:     logger,
	}
	if limiter != nil {
		s.limiter = limiter
	}
	return s
}

// LoginRequest contains the operator credentials.
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	IPAddress string `json:"-"` // Extracted from request by handler
}

// Session is an issued session token.
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// Login checks the credentials and issues a session token.
// Which field was wrong is never reported.
func (s *AuthService) Login(_ context.Context, req LoginRequest) (*Session, error) {
	if s.limiter != nil && !s.limiter.Allow(req.IPAddress) {
		s.logger.Warn("login rate limited", "ip", req.IPAddress)
		return nil, domainerrors.ErrRateLimited
	}

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)

	ok, err := s.operator.Check(username, password)
	if err != nil {
		s.logger.Error("login unavailable", "error", err)
		return nil, err
	}
	if !ok {
		s.logger.Info("login failed", "ip", req.IPAddress)
		return nil, domainerrors.Unauthenticated("Invalid username or password.")
	}

	token, expiresAt, err := s.credential.Issue(username)
	if err != nil {
		s.logger.Error("failed to issue session", "error", err)
		return nil, err
	}

	s.logger.Info("operator logged in", "ip", req.IPAddress)
	return &Session{Token: token, Subject: username, ExpiresAt: expiresAt}, nil
}

// Verify returns the principal for a session token.
func (s *AuthService) Verify(token string) (*domain.Principal, bool) {
	return s.credential.Verify(token)
}
