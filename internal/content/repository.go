// AngelaMos | 2026
// repository.go

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/diplomate/backend/internal/core"
)

type Repository interface {
	ListFolders(ctx context.Context, params ListFoldersParams) ([]Folder, error)
	GetFolder(ctx context.Context, id string) (*Folder, error)
	CreateFolder(ctx context.Context, folder *Folder) error
	ListNotes(ctx context.Context, folderID string) ([]Note, error)
	CreateNote(ctx context.Context, note *Note) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListFolders(
	ctx context.Context,
	params ListFoldersParams,
) ([]Folder, error) {
	query := `
		SELECT id, name, description, department, semester, subject,
		       price, is_active, created_at
		FROM folders
		WHERE is_active = TRUE`
	args := []any{}
	argIdx := 1

	for _, filter := range []struct {
		column, value string
	}{
		{"department", params.Department},
		{"semester", params.Semester},
		{"subject", params.Subject},
	} {
		if filter.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND %s = $%d", filter.column, argIdx)
		args = append(args, filter.value)
		argIdx++
	}

	query += " ORDER BY department, semester, subject, name"

	var folders []Folder
	if err := r.db.SelectContext(ctx, &folders, query, args...); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	return folders, nil
}

func (r *repository) GetFolder(
	ctx context.Context,
	id string,
) (*Folder, error) {
	query := `
		SELECT id, name, description, department, semester, subject,
		       price, is_active, created_at
		FROM folders
		WHERE id = $1 AND is_active = TRUE`

	var folder Folder
	err := r.db.GetContext(ctx, &folder, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get folder: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

func (r *repository) CreateFolder(ctx context.Context, folder *Folder) error {
	query := `
		INSERT INTO folders (
			id, name, description, department, semester, subject, price
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_active, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		folder.ID,
		folder.Name,
		folder.Description,
		folder.Department,
		folder.Semester,
		folder.Subject,
		folder.Price,
	).Scan(&folder.IsActive, &folder.CreatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create folder: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// ListNotes returns the active notes of a folder in upload order, the
// order the reader pages through them.
func (r *repository) ListNotes(
	ctx context.Context,
	folderID string,
) ([]Note, error) {
	query := `
		SELECT id, folder_id, title, file_url, file_path, file_name,
		       file_size, is_active, created_at
		FROM notes
		WHERE folder_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC`

	var notes []Note
	if err := r.db.SelectContext(ctx, &notes, query, folderID); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	return notes, nil
}

func (r *repository) CreateNote(ctx context.Context, note *Note) error {
	query := `
		INSERT INTO notes (
			id, folder_id, title, file_url, file_path, file_name, file_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING is_active, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		note.ID,
		note.FolderID,
		note.Title,
		note.FileURL,
		note.FilePath,
		note.FileName,
		note.FileSize,
	).Scan(&note.IsActive, &note.CreatedAt)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}

	return nil
}
