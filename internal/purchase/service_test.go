// AngelaMos | 2026
// service_test.go

package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diplomate/backend/internal/config"
	"github.com/diplomate/backend/internal/core"
)

// fakeRepo mirrors the live-order uniqueness the partial index enforces.
type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]*Order)}
}

func (f *fakeRepo) Create(_ context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, o := range f.orders {
		if o.UserID != order.UserID || o.FolderID != order.FolderID {
			continue
		}
		if o.IsRejected() {
			delete(f.orders, id)
			continue
		}
		return fmt.Errorf("create order: %w", core.ErrDuplicatePurchase)
	}

	order.Status = StatusPending
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) ListForUser(
	_ context.Context,
	userID string,
) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(
	_ context.Context,
	params ListOrdersParams,
) ([]Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Order
	for _, o := range f.orders {
		if params.Status == "" || o.Status == params.Status {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Approve(
	_ context.Context,
	id, reviewerID string,
) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if o.IsRejected() {
		return nil, core.NewAppError(
			core.ErrInvalidInput,
			"cannot approve a rejected purchase",
			409,
			"INVALID_STATUS_TRANSITION",
		)
	}
	if o.IsPending() {
		now := time.Now()
		o.Status = StatusApproved
		o.ReviewedBy = &reviewerID
		o.ReviewedAt = &now
		o.RejectionReason = nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) Reject(
	_ context.Context,
	id, reviewerID, reason string,
) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	if o.IsApproved() {
		return nil, core.NewAppError(
			core.ErrInvalidInput,
			"cannot reject an approved purchase",
			409,
			"INVALID_STATUS_TRANSITION",
		)
	}
	if o.IsPending() {
		now := time.Now()
		o.Status = StatusRejected
		o.ReviewedBy = &reviewerID
		o.ReviewedAt = &now
		o.RejectionReason = &reason
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) CountByStatus(
	_ context.Context,
	status string,
) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var total int
	for _, o := range f.orders {
		if o.Status == status {
			total++
		}
	}
	return total, nil
}

func (f *fakeRepo) HasApproved(
	_ context.Context,
	userID, folderID string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.orders {
		if o.UserID == userID && o.FolderID == folderID && o.IsApproved() {
			return true, nil
		}
	}
	return false, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
}

func (f *fakeUploader) Upload(
	_ context.Context,
	path string,
	_ io.Reader,
	_ string,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	return "https://cdn.example.com/" + path, nil
}

func (f *fakeUploader) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, path)
	return nil
}

func testConfig() config.PurchaseConfig {
	return config.PurchaseConfig{
		BundlePrice:   199,
		MaxProofBytes: 5 * 1024 * 1024,
	}
}

func newTestService(repo Repository, up *fakeUploader) *Service {
	return NewService(repo, up, testConfig(), slog.Default())
}

func submit(svc *Service, userID, folderID string) (*Order, error) {
	return svc.Submit(
		context.Background(),
		userID,
		SubmitRequest{
			FolderID:          folderID,
			BuyerName:         "A. Student",
			Phone:             "0123456789",
			AccountHolderName: "A. Parent",
		},
		strings.NewReader("fake-image-bytes"),
		"proof.png",
		1024,
		"image/png",
	)
}

func TestSubmitCreatesPendingOrder(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{}
	svc := newTestService(repo, up)

	order, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if order.Status != StatusPending {
		t.Fatalf("status = %q, want pending", order.Status)
	}
	if order.Amount != 199 {
		t.Fatalf("amount = %d, want 199", order.Amount)
	}
	if order.ProofURL == "" {
		t.Fatal("proof URL not set")
	}
	if len(up.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(up.uploads))
	}
}

func TestSubmitRejectsOversizedProof(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{}
	svc := newTestService(repo, up)

	_, err := svc.Submit(
		context.Background(),
		"user-1",
		SubmitRequest{
			FolderID:          "folder-B1",
			BuyerName:         "A. Student",
			Phone:             "0123456789",
			AccountHolderName: "A. Parent",
		},
		strings.NewReader("x"),
		"proof.png",
		6*1024*1024,
		"image/png",
	)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if len(up.uploads) != 0 {
		t.Fatal("oversized proof was uploaded")
	}
}

func TestSubmitDuplicateWhilePending(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{}
	svc := newTestService(repo, up)

	if _, err := submit(svc, "user-1", "folder-B1"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := submit(svc, "user-1", "folder-B1")
	if !errors.Is(err, core.ErrDuplicatePurchase) {
		t.Fatalf("error = %v, want ErrDuplicatePurchase", err)
	}

	// The duplicate's blob should have been reaped.
	if len(up.deletes) != 1 {
		t.Fatalf("deletes = %d, want 1", len(up.deletes))
	}
}

func TestResubmitAfterRejection(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	first, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	rejected, err := svc.Reject(
		context.Background(),
		first.ID,
		"admin-1",
		"Screenshot unreadable",
	)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.RejectionReason == nil ||
		*rejected.RejectionReason != "Screenshot unreadable" {
		t.Fatalf("rejection reason = %v", rejected.RejectionReason)
	}

	second, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("resubmit error = %v", err)
	}

	// The rejected row is gone; exactly one order remains and it is
	// the fresh pending one.
	orders, err := svc.ListMine(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("order count = %d, want 1", len(orders))
	}
	if orders[0].ID != second.ID || !orders[0].IsPending() {
		t.Fatalf("surviving order = %+v", orders[0])
	}
}

func TestRejectDefaultsReason(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	order, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	rejected, err := svc.Reject(context.Background(), order.ID, "admin-1", "")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.RejectionReason == nil ||
		*rejected.RejectionReason != DefaultRejectionReason {
		t.Fatalf("reason = %v, want default", rejected.RejectionReason)
	}
}

func TestApproveIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	order, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	first, err := svc.Approve(context.Background(), order.ID, "admin-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	second, err := svc.Approve(context.Background(), order.ID, "admin-2")
	if err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}

	if second.ReviewedBy == nil || *second.ReviewedBy != "admin-1" {
		t.Fatalf("reviewer overwritten: %v", second.ReviewedBy)
	}
	if !first.ReviewedAt.Equal(*second.ReviewedAt) {
		t.Fatal("review timestamp changed on repeat approval")
	}
}

func TestRejectApprovedOrderFails(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	order, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := svc.Approve(context.Background(), order.ID, "admin-1"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if _, err := svc.Reject(context.Background(), order.ID, "admin-1", "nope"); err == nil {
		t.Fatal("Reject() of approved order succeeded")
	}
}

func TestAccessGateFollowsLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	ok, err := svc.CanAccess(context.Background(), "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("CanAccess() error = %v", err)
	}
	if ok {
		t.Fatal("access granted with no order")
	}

	order, err := submit(svc, "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ok, _ = svc.CanAccess(context.Background(), "user-1", "folder-B1")
	if ok {
		t.Fatal("access granted while pending")
	}

	if _, err := svc.Approve(context.Background(), order.ID, "admin-1"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	ok, err = svc.CanAccess(context.Background(), "user-1", "folder-B1")
	if err != nil {
		t.Fatalf("CanAccess() error = %v", err)
	}
	if !ok {
		t.Fatal("access denied despite approval")
	}

	// Approval is folder-scoped.
	ok, _ = svc.CanAccess(context.Background(), "user-1", "folder-B2")
	if ok {
		t.Fatal("approval leaked to another folder")
	}
}

func TestConcurrentSubmitsOneWins(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeUploader{})

	const attempts = 8

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = submit(svc, "user-1", "folder-B1")
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, core.ErrDuplicatePurchase):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if duplicates != attempts-1 {
		t.Fatalf("duplicates = %d, want %d", duplicates, attempts-1)
	}
}
