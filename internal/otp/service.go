// AngelaMos | 2026
// service.go

package otp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/mail"
)

type Service struct {
	repo     Repository
	mailer   mail.Sender
	throttle Throttle
	ttl      time.Duration
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	mailer mail.Sender,
	throttle Throttle,
	ttl time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		throttle: throttle,
		ttl:      ttl,
		logger:   logger.With("component", "otp"),
	}
}

// Issue generates a fresh code for the email and replaces any prior
// challenge before the mail goes out. The code is durably stored first:
// a send failure is reported to the caller but does not roll the
// challenge back, so a resend after a flaky SMTP hop still verifies.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, email); err != nil {
			return "", err
		}
	}

	code, err := core.GenerateOTPCode()
	if err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	challenge := &Challenge{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	if err := s.repo.Replace(ctx, challenge); err != nil {
		return "", fmt.Errorf("issue otp: %w", err)
	}

	body := mail.OTPBody(code, s.ttl)
	if err := s.mailer.Send(ctx, email, mail.OTPSubject, body); err != nil {
		s.logger.Error("otp email send failed",
			"email", email,
			"error", err,
		)
		return "", core.TransientError(
			"could not send the verification email, please try again",
		)
	}

	s.logger.Info("otp issued", "email", email)

	return code, nil
}

// Verify consumes the challenge on success. Failure reveals nothing
// about whether the code was wrong, expired, or never issued.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	valid, err := s.repo.ConsumeValid(ctx, email, code)
	if err != nil {
		return false, fmt.Errorf("verify otp: %w", err)
	}

	return valid, nil
}

// PurgeExpired removes stale challenges; wired to a background ticker.
func (s *Service) PurgeExpired(ctx context.Context) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Warn("otp purge failed", "error", err)
		return
	}

	if removed > 0 {
		s.logger.Debug("expired otps purged", "count", removed)
	}
}
