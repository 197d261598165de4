// AngelaMos | 2026
// repository.go

package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/diplomate/backend/internal/core"
)

type Repository interface {
	Replace(ctx context.Context, challenge *Challenge) error
	Get(ctx context.Context, email string) (*Challenge, error)
	// ConsumeValid deletes the challenge only when the code matches and
	// has not expired, and reports whether it did. A wrong or expired
	// code leaves the row untouched.
	ConsumeValid(ctx context.Context, email, code string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Replace(ctx context.Context, challenge *Challenge) error {
	query := `
		INSERT INTO email_otps (email, otp, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET otp = EXCLUDED.otp,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()`

	_, err := r.db.ExecContext(
		ctx,
		query,
		challenge.Email,
		challenge.Code,
		challenge.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("replace otp challenge: %w", err)
	}

	return nil
}

func (r *repository) Get(
	ctx context.Context,
	email string,
) (*Challenge, error) {
	query := `
		SELECT email, otp, expires_at, created_at
		FROM email_otps
		WHERE email = $1`

	var challenge Challenge
	err := r.db.GetContext(ctx, &challenge, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get otp challenge: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get otp challenge: %w", err)
	}

	return &challenge, nil
}

func (r *repository) ConsumeValid(
	ctx context.Context,
	email, code string,
) (bool, error) {
	query := `
		DELETE FROM email_otps
		WHERE email = $1 AND otp = $2 AND expires_at > NOW()`

	result, err := r.db.ExecContext(ctx, query, email, code)
	if err != nil {
		return false, fmt.Errorf("consume otp challenge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume otp challenge: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM email_otps WHERE expires_at <= $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}

	return rows, nil
}
