// AngelaMos | 2026
// service.go

package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diplomate/backend/internal/config"
	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/storage"
)

type Service struct {
	repo     Repository
	uploader storage.Uploader
	cfg      config.PurchaseConfig
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	uploader storage.Uploader,
	cfg config.PurchaseConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger.With("component", "purchase"),
	}
}

// Submit uploads the payment proof and creates a pending order priced at
// the configured bundle amount. A rejected predecessor for the same
// folder is replaced; a live order makes this a duplicate.
func (s *Service) Submit(
	ctx context.Context,
	userID string,
	req SubmitRequest,
	proof io.Reader,
	filename string,
	size int64,
	contentType string,
) (*Order, error) {
	if size > int64(s.cfg.MaxProofBytes) {
		return nil, core.ValidationError(fmt.Sprintf(
			"proof image must be at most %d MB",
			s.cfg.MaxProofBytes/(1024*1024),
		))
	}

	proofPath := s.proofPath(userID, req.FolderID, filename)

	proofURL, err := s.uploader.Upload(ctx, proofPath, proof, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload proof: %w", err)
	}

	order := &Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		FolderID:          req.FolderID,
		Amount:            s.cfg.BundlePrice,
		ProofURL:          proofURL,
		ProofPath:         proofPath,
		BuyerName:         req.BuyerName,
		Phone:             req.Phone,
		AccountHolderName: req.AccountHolderName,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		// The blob is already up; try to reap it, tolerate failure.
		if delErr := s.uploader.Delete(ctx, proofPath); delErr != nil {
			s.logger.Warn("orphaned proof blob",
				"path", proofPath,
				"error", delErr,
			)
		}

		if errors.Is(err, core.ErrDuplicatePurchase) {
			return nil, core.DuplicatePurchaseError()
		}
		return nil, err
	}

	s.logger.Info("purchase submitted",
		"order_id", order.ID,
		"user_id", userID,
		"folder_id", req.FolderID,
	)

	return order, nil
}

func (s *Service) proofPath(userID, folderID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}

	return fmt.Sprintf(
		"proofs/%s/%s/%d%s",
		userID,
		folderID,
		time.Now().UnixMilli(),
		ext,
	)
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListMine(
	ctx context.Context,
	userID string,
) ([]Order, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) ListOrders(
	ctx context.Context,
	params ListOrdersParams,
) ([]Order, int, error) {
	if params.Status != "" && !ValidStatus(params.Status) {
		return nil, 0, core.ValidationError(
			"status must be one of: pending, approved, rejected",
		)
	}

	return s.repo.List(ctx, params)
}

func (s *Service) Approve(
	ctx context.Context,
	id, reviewerID string,
) (*Order, error) {
	order, err := s.repo.Approve(ctx, id, reviewerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase approved",
		"order_id", order.ID,
		"reviewer_id", reviewerID,
	)

	return order, nil
}

func (s *Service) Reject(
	ctx context.Context,
	id, reviewerID, reason string,
) (*Order, error) {
	if reason == "" {
		reason = DefaultRejectionReason
	}

	order, err := s.repo.Reject(ctx, id, reviewerID, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase rejected",
		"order_id", order.ID,
		"reviewer_id", reviewerID,
	)

	return order, nil
}

func (s *Service) CountByStatus(
	ctx context.Context,
	status string,
) (int, error) {
	if !ValidStatus(status) {
		return 0, core.ValidationError(
			"status must be one of: pending, approved, rejected",
		)
	}

	return s.repo.CountByStatus(ctx, status)
}

// CanAccess reports whether the user holds an approved order for the
// folder. Every content request re-asks the database; revoking an
// approval takes effect immediately.
func (s *Service) CanAccess(
	ctx context.Context,
	userID, folderID string,
) (bool, error) {
	return s.repo.HasApproved(ctx, userID, folderID)
}
