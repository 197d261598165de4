// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/diplomate/backend/internal/core"
)

type Repository interface {
	Upsert(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	BindDevice(ctx context.Context, id, deviceID string) (bool, error)
	ResetDevice(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string) error
	List(ctx context.Context, params ListAccountsParams) ([]Account, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context, role string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Upsert writes the profile row keyed by the credential id. Registration
// uses it for the initial insert; sign-in uses it to repair a profile
// that a partial registration failed to write.
func (r *repository) Upsert(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, role, department, semester)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    department = EXCLUDED.department,
		    semester = EXCLUDED.semester,
		    updated_at = NOW()
		RETURNING device_id, verified_at, created_at, updated_at`

	err := r.db.GetContext(ctx, account, query,
		account.ID,
		account.Email,
		account.FullName,
		account.Role,
		account.Department,
		account.Semester,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("upsert account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("upsert account: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Account, error) {
	query := `
		SELECT id, email, full_name, role, department, semester,
		       device_id, verified_at, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	var account Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	if !ValidRole(account.Role) {
		return nil, fmt.Errorf(
			"get account: unknown role %q: %w",
			account.Role,
			core.ErrInvalidInput,
		)
	}

	return &account, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	query := `
		SELECT id, email, full_name, role, department, semester,
		       device_id, verified_at, created_at, updated_at
		FROM accounts
		WHERE email = $1`

	var account Account
	err := r.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &account, nil
}

// BindDevice claims the device slot only when it is still empty. The
// WHERE clause makes the claim atomic: under concurrent first sign-ins
// exactly one caller sees rows == 1.
func (r *repository) BindDevice(
	ctx context.Context,
	id, deviceID string,
) (bool, error) {
	query := `
		UPDATE accounts
		SET device_id = $2, updated_at = NOW()
		WHERE id = $1 AND device_id IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, deviceID)
	if err != nil {
		return false, fmt.Errorf("bind device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("bind device: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) ResetDevice(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET device_id = NULL, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset device: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("reset device: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET verified_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND verified_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListAccountsParams,
) ([]Account, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR full_name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM accounts WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, email, full_name, role, department, semester,
		       device_id, verified_at, created_at, updated_at
		FROM accounts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var accounts []Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) Count(
	ctx context.Context,
	role string,
) (int, error) {
	query := `SELECT COUNT(*) FROM accounts`
	args := []any{}

	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return total, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
