package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/metrics"
	"github.com/prn-tf/sigil/internal/session"
)

// SessionService handles admin login and session checks.
// Sessions are stateless: logging out only clears the client's cookie.
type SessionService struct {
	verifier *session.Verifier
	codec    *session.Codec
	logger   zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	verifier *session.Verifier,
	codec *session.Codec,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		verifier: verifier,
		codec:    codec,
		logger:   logger.With().Str("service", "session").Logger(),
	}
}

// LoginInput contains the submitted credential.
type LoginInput struct {
	Password string
}

// LoginOutput contains the issued session.
type LoginOutput struct {
	Token string
	Claim domain.AdminClaim
}

// Login checks the password and issues a session token.
// It returns domain.ErrNotConfigured when no admin secret is set and
// ErrInvalidCredentials when the password is wrong.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := s.verifier.Configured(); err != nil {
		metrics.RecordLogin("unconfigured")
		s.logger.Warn().Msg("login attempted but no admin password is configured")
		return nil, err
	}

	if !s.verifier.Verify(input.Password) {
		metrics.RecordLogin("invalid")
		s.logger.Info().Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	claim := domain.NewAdminClaim()
	token, err := s.codec.Encode(claim)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, err
	}

	metrics.RecordLogin("success")
	s.logger.Info().Msg("admin logged in")

	return &LoginOutput{Token: token, Claim: claim}, nil
}

// GetAdminSession returns the claim carried by token, or nil when the token
// is missing, malformed or forged.
func (s *SessionService) GetAdminSession(token string) *domain.AdminClaim {
	if token == "" {
		return nil
	}
	claim, ok := s.codec.Decode(token)
	if !ok {
		return nil
	}
	return &claim
}
