// AngelaMos | 2026
// service.go

package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/storage"
)

// AccessGate decides whether a user may open a folder's notes. The
// purchase ledger implements it; the answer is authoritative per
// request and never cached here.
type AccessGate interface {
	CanAccess(ctx context.Context, userID, folderID string) (bool, error)
}

type Service struct {
	repo         Repository
	gate         AccessGate
	uploader     storage.Uploader
	defaultPrice int
	logger       *slog.Logger
}

func NewService(
	repo Repository,
	gate AccessGate,
	uploader storage.Uploader,
	defaultPrice int,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		gate:         gate,
		uploader:     uploader,
		defaultPrice: defaultPrice,
		logger:       logger.With("component", "content"),
	}
}

func (s *Service) ListFolders(
	ctx context.Context,
	params ListFoldersParams,
) ([]Folder, error) {
	return s.repo.ListFolders(ctx, params)
}

func (s *Service) GetFolder(ctx context.Context, id string) (*Folder, error) {
	return s.repo.GetFolder(ctx, id)
}

// ListNotes gates every request on an approved purchase. Admins read
// everything.
func (s *Service) ListNotes(
	ctx context.Context,
	userID, folderID string,
	isAdmin bool,
) ([]Note, error) {
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}

	if !isAdmin {
		allowed, err := s.gate.CanAccess(ctx, userID, folderID)
		if err != nil {
			return nil, fmt.Errorf("check folder access: %w", err)
		}
		if !allowed {
			return nil, core.ForbiddenError(
				"you do not have access to these notes; purchase this folder first",
			)
		}
	}

	return s.repo.ListNotes(ctx, folderID)
}

func (s *Service) CreateFolder(
	ctx context.Context,
	req CreateFolderRequest,
) (*Folder, error) {
	price := req.Price
	if price == 0 {
		price = s.defaultPrice
	}

	folder := &Folder{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Department:  req.Department,
		Semester:    req.Semester,
		Subject:     req.Subject,
		Price:       price,
	}

	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"folder_id", folder.ID,
		"subject", folder.Subject,
	)

	return folder, nil
}

// UploadNote stores the document blob and records the note row. A
// failed insert reaps the blob so storage does not accumulate
// unreferenced files.
func (s *Service) UploadNote(
	ctx context.Context,
	folderID string,
	req UploadNoteRequest,
	file io.Reader,
	filename string,
	size int64,
	contentType string,
) (*Note, error) {
	if _, err := s.repo.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	filePath := fmt.Sprintf(
		"notes/%s/%d%s",
		folderID,
		time.Now().UnixMilli(),
		ext,
	)

	fileURL, err := s.uploader.Upload(ctx, filePath, file, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload note: %w", err)
	}

	note := &Note{
		ID:       uuid.New().String(),
		FolderID: folderID,
		Title:    req.Title,
		FileURL:  fileURL,
		FilePath: filePath,
		FileName: filename,
		FileSize: size,
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		if delErr := s.uploader.Delete(ctx, filePath); delErr != nil {
			s.logger.Warn("orphaned note blob",
				"path", filePath,
				"error", delErr,
			)
		}
		return nil, err
	}

	s.logger.Info("note uploaded",
		"note_id", note.ID,
		"folder_id", folderID,
	)

	return note, nil
}
