// AngelaMos | 2026
// dto.go

package account

import (
	"time"
)

type AccountResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	Department *string    `json:"department,omitempty"`
	Semester   *string    `json:"semester,omitempty"`
	DeviceID   *string    `json:"device_id,omitempty"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type ListAccountsParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListAccountsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListAccountsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Email:      a.Email,
		FullName:   a.FullName,
		Role:       a.Role,
		Department: a.Department,
		Semester:   a.Semester,
		DeviceID:   a.DeviceID,
		Verified:   a.IsVerified(),
		VerifiedAt: a.VerifiedAt,
		CreatedAt:  a.CreatedAt,
	}
}

func ToAccountResponseList(accounts []Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		responses = append(responses, ToAccountResponse(&a))
	}
	return responses
}
