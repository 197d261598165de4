// AngelaMos | 2026
// dto.go

package purchase

import (
	"time"
)

type SubmitRequest struct {
	FolderID          string `json:"folder_id"           validate:"required,uuid"`
	BuyerName         string `json:"buyer_name"          validate:"required,min=1,max=100"`
	Phone             string `json:"phone"               validate:"required,len=10,numeric"`
	AccountHolderName string `json:"account_holder_name" validate:"required,min=1,max=100"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type OrderResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	FolderID          string     `json:"folder_id"`
	Status            string     `json:"status"`
	Amount            int        `json:"amount"`
	ProofURL          string     `json:"proof_url"`
	BuyerName         string     `json:"buyer_name"`
	Phone             string     `json:"phone"`
	AccountHolderName string     `json:"account_holder_name"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type ListOrdersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Status   string `json:"status"`
}

func (p *ListOrdersParams) Normalize() {
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

func (p *ListOrdersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		FolderID:          o.FolderID,
		Status:            o.Status,
		Amount:            o.Amount,
		ProofURL:          o.ProofURL,
		BuyerName:         o.BuyerName,
		Phone:             o.Phone,
		AccountHolderName: o.AccountHolderName,
		ReviewedAt:        o.ReviewedAt,
		RejectionReason:   o.RejectionReason,
		CreatedAt:         o.CreatedAt,
	}
}

func ToOrderResponseList(orders []Order) []OrderResponse {
	responses := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, ToOrderResponse(&o))
	}
	return responses
}
