// AngelaMos | 2026
// repository.go

package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/diplomate/backend/internal/core"
)

type Repository interface {
	// Create inserts a fresh pending order, deleting any rejected order
	// for the same (user, folder) in the same transaction so a
	// resubmission replaces its rejected predecessor atomically.
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListForUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, params ListOrdersParams) ([]Order, int, error)
	Approve(ctx context.Context, id, reviewerID string) (*Order, error)
	Reject(ctx context.Context, id, reviewerID, reason string) (*Order, error)
	HasApproved(ctx context.Context, userID, folderID string) (bool, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, user_id, folder_id, status, amount, proof_url, proof_path,
	buyer_name, phone, account_holder_name, reviewed_by, reviewed_at,
	rejection_reason, created_at`

func (r *repository) Create(ctx context.Context, order *Order) error {
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		deleteQuery := `
			DELETE FROM purchases
			WHERE user_id = $1 AND folder_id = $2 AND status = 'rejected'`

		if _, err := tx.ExecContext(
			ctx,
			deleteQuery,
			order.UserID,
			order.FolderID,
		); err != nil {
			return fmt.Errorf("clear rejected order: %w", err)
		}

		insertQuery := `
			INSERT INTO purchases (
				id, user_id, folder_id, status, amount, proof_url,
				proof_path, buyer_name, phone, account_holder_name
			) VALUES (
				$1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9
			)
			RETURNING created_at`

		return tx.GetContext(ctx, &order.CreatedAt, insertQuery,
			order.ID,
			order.UserID,
			order.FolderID,
			order.Amount,
			order.ProofURL,
			order.ProofPath,
			order.BuyerName,
			order.Phone,
			order.AccountHolderName,
		)
	})
	if err != nil {
		// The partial unique index over live orders turns a concurrent
		// or repeated submission into a unique violation.
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create order: %w", core.ErrDuplicatePurchase)
		}
		return fmt.Errorf("create order: %w", err)
	}

	order.Status = StatusPending

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM purchases WHERE id = $1`,
		orderColumns,
	)

	var order Order
	err := r.db.GetContext(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	return &order, nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
) ([]Order, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		orderColumns,
	)

	var orders []Order
	if err := r.db.SelectContext(ctx, &orders, query, userID); err != nil {
		return nil, fmt.Errorf("list orders for user: %w", err)
	}

	return orders, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListOrdersParams,
) ([]Order, int, error) {
	params.Normalize()

	where := "TRUE"
	args := []any{}
	argIdx := 1

	if params.Status != "" {
		where = fmt.Sprintf("status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM purchases WHERE %s",
		where,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM purchases
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var orders []Order
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// Approve is idempotent: approving an already-approved order is a
// no-op that returns the row. Only a rejected order refuses.
func (r *repository) Approve(
	ctx context.Context,
	id, reviewerID string,
) (*Order, error) {
	query := fmt.Sprintf(`
		UPDATE purchases
		SET status = 'approved',
		    reviewed_by = CASE WHEN status = 'pending' THEN $2 ELSE reviewed_by END,
		    reviewed_at = CASE WHEN status = 'pending' THEN NOW() ELSE reviewed_at END,
		    rejection_reason = NULL
		WHERE id = $1 AND status IN ('pending', 'approved')
		RETURNING %s`,
		orderColumns,
	)

	var order Order
	err := r.db.GetContext(ctx, &order, query, id, reviewerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.reviewConflict(ctx, id, "approve")
	}
	if err != nil {
		return nil, fmt.Errorf("approve order: %w", err)
	}

	return &order, nil
}

func (r *repository) Reject(
	ctx context.Context,
	id, reviewerID, reason string,
) (*Order, error) {
	query := fmt.Sprintf(`
		UPDATE purchases
		SET status = 'rejected',
		    reviewed_by = $2,
		    reviewed_at = NOW(),
		    rejection_reason = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING %s`,
		orderColumns,
	)

	var order Order
	err := r.db.GetContext(ctx, &order, query, id, reviewerID, reason)
	if errors.Is(err, sql.ErrNoRows) {
		// Idempotent for an already-rejected order.
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.IsRejected() {
			return existing, nil
		}
		return nil, r.reviewConflict(ctx, id, "reject")
	}
	if err != nil {
		return nil, fmt.Errorf("reject order: %w", err)
	}

	return &order, nil
}

func (r *repository) reviewConflict(
	ctx context.Context,
	id, verb string,
) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return core.NewAppError(
		core.ErrInvalidInput,
		fmt.Sprintf("cannot %s a %s purchase", verb, existing.Status),
		409,
		"INVALID_STATUS_TRANSITION",
	)
}

func (r *repository) CountByStatus(
	ctx context.Context,
	status string,
) (int, error) {
	query := `SELECT COUNT(*) FROM purchases WHERE status = $1`

	var total int
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}

	return total, nil
}

// HasApproved is the access gate. It always hits the database: approval
// state is authoritative there and is never cached.
func (r *repository) HasApproved(
	ctx context.Context,
	userID, folderID string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM purchases
			WHERE user_id = $1 AND folder_id = $2 AND status = 'approved'
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, folderID); err != nil {
		return false, fmt.Errorf("check approved purchase: %w", err)
	}

	return exists, nil
}
