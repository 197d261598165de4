// AngelaMos | 2026
// repository.go

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/diplomate/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *authUser) error
	GetByEmail(ctx context.Context, email string) (*authUser, error)
	GetByID(ctx context.Context, id string) (*authUser, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *authUser) error {
	query := `
		INSERT INTO auth_users (id, email, password_hash, metadata)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Metadata,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return core.ErrDuplicateKey
		}
		return fmt.Errorf("create auth user: %w", err)
	}

	return nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*authUser, error) {
	var user authUser

	query := `
		SELECT id, email, password_hash, metadata, created_at
		FROM auth_users
		WHERE email = $1`

	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get auth user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*authUser, error) {
	var user authUser

	query := `
		SELECT id, email, password_hash, metadata, created_at
		FROM auth_users
		WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get auth user by id: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE auth_users
		SET password_hash = $2
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}
