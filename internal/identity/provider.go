// AngelaMos | 2026
// provider.go

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/diplomate/backend/internal/core"
)

// Provider owns credentials. Everything above it (sessions, device
// binding, profiles) treats it as an opaque authority: its errors are
// surfaced to the caller as-is.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(
		ctx context.Context,
		email, password string,
		md Metadata,
	) (*Identity, error)
	SignOut(ctx context.Context, userID string) error
	Lookup(ctx context.Context, userID string) (*Identity, error)
	ChangePassword(
		ctx context.Context,
		userID, currentPassword, newPassword string,
	) error
}

type localProvider struct {
	repo   Repository
	logger *slog.Logger
}

func NewLocalProvider(repo Repository, logger *slog.Logger) Provider {
	return &localProvider{
		repo:   repo,
		logger: logger.With("component", "identity"),
	}
}

func (p *localProvider) SignIn(
	ctx context.Context,
	email, password string,
) (*Identity, error) {
	user, err := p.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Burn a hash compare anyway so a missing account is not
		// distinguishable from a bad password by timing.
		_, _, _ = core.VerifyPasswordTimingSafe(password, nil) //nolint:errcheck // timing equalizer only
		return nil, core.UnauthorizedError("invalid email or password")
	}

	valid, _, err := core.VerifyPasswordTimingSafe(password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, core.UnauthorizedError("invalid email or password")
	}

	return p.toIdentity(user), nil
}

func (p *localProvider) SignUp(
	ctx context.Context,
	email, password string,
	md Metadata,
) (*Identity, error) {
	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	user := &authUser{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Metadata:     raw,
	}

	if err := p.repo.Create(ctx, user); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("an account with this email")
		}
		return nil, err
	}

	return p.toIdentity(user), nil
}

func (p *localProvider) SignOut(ctx context.Context, userID string) error {
	// Credential store holds no session state; revocation happens in
	// the auth layer.
	return nil
}

func (p *localProvider) Lookup(
	ctx context.Context,
	userID string,
) (*Identity, error) {
	user, err := p.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return p.toIdentity(user), nil
}

func (p *localProvider) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := p.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, _, err := core.VerifyPasswordTimingSafe(
		currentPassword,
		&user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return core.UnauthorizedError("current password is incorrect")
	}

	hash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return p.repo.UpdatePassword(ctx, userID, hash)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *localProvider) toIdentity(user *authUser) *Identity {
	var md Metadata
	if len(user.Metadata) > 0 {
		if err := json.Unmarshal(user.Metadata, &md); err != nil {
			p.logger.Warn("corrupt identity metadata",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return &Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Metadata: md,
	}
}
