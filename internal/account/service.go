// AngelaMos | 2026
// service.go

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/diplomate/backend/internal/auth"
	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/identity"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.AccountInfo, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toAccountInfo(account), nil
}

func (s *Service) BindDevice(
	ctx context.Context,
	id, deviceID string,
) (bool, error) {
	return s.repo.BindDevice(ctx, id, deviceID)
}

func (s *Service) MarkVerified(ctx context.Context, id string) error {
	return s.repo.MarkVerified(ctx, id)
}

// EnsureProfile writes the profile row for a signed-in identity,
// synthesizing the fields from credential metadata. It is the repair
// path for registrations that created the credential but failed the
// profile write.
func (s *Service) EnsureProfile(
	ctx context.Context,
	ident *identity.Identity,
) (*auth.AccountInfo, error) {
	role := ident.Metadata.Role
	if !ValidRole(role) {
		role = RoleStudent
	}

	account := &Account{
		ID:         ident.UserID,
		Email:      strings.ToLower(ident.Email),
		FullName:   ident.Metadata.FullName,
		Role:       role,
		Department: optional(ident.Metadata.Department),
		Semester:   optional(ident.Metadata.Semester),
	}

	if err := s.repo.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	return toAccountInfo(account), nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAccounts(
	ctx context.Context,
	params ListAccountsParams,
) ([]Account, int, error) {
	return s.repo.List(ctx, params)
}

// ResetDevice clears the device binding so the student's next sign-in
// binds whatever device they use. Admin-only; there is deliberately no
// self-service rebind.
func (s *Service) ResetDevice(ctx context.Context, id string) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if account.IsAdmin() {
		return fmt.Errorf(
			"reset device: admin accounts carry no binding: %w",
			core.ErrInvalidInput,
		)
	}

	return s.repo.ResetDevice(ctx, id)
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.repo.ExistsByEmail(ctx, strings.ToLower(email))
}

func (s *Service) CountAccounts(
	ctx context.Context,
	role string,
) (int, error) {
	return s.repo.Count(ctx, role)
}

func toAccountInfo(a *Account) *auth.AccountInfo {
	return &auth.AccountInfo{
		ID:         a.ID,
		Email:      a.Email,
		FullName:   a.FullName,
		Role:       a.Role,
		Department: a.Department,
		Semester:   a.Semester,
		DeviceID:   a.DeviceID,
		Verified:   a.IsVerified(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ auth.AccountStore = (*Service)(nil)
