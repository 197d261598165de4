// AngelaMos | 2026
// entity.go

package purchase

import (
	"time"
)

// Order is one payment submission for a folder. A user can hold at most
// one live (pending or approved) order per folder; rejected orders pile
// up only until the next resubmission deletes them.
type Order struct {
	ID                string     `db:"id"`
	UserID            string     `db:"user_id"`
	FolderID          string     `db:"folder_id"`
	Status            string     `db:"status"`
	Amount            int        `db:"amount"`
	ProofURL          string     `db:"proof_url"`
	ProofPath         string     `db:"proof_path"`
	BuyerName         string     `db:"buyer_name"`
	Phone             string     `db:"phone"`
	AccountHolderName string     `db:"account_holder_name"`
	ReviewedBy        *string    `db:"reviewed_by"`
	ReviewedAt        *time.Time `db:"reviewed_at"`
	RejectionReason   *string    `db:"rejection_reason"`
	CreatedAt         time.Time  `db:"created_at"`
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// DefaultRejectionReason is used when a reviewer rejects without a note.
const DefaultRejectionReason = "Payment could not be verified"

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

func (o *Order) IsApproved() bool {
	return o.Status == StatusApproved
}

func (o *Order) IsRejected() bool {
	return o.Status == StatusRejected
}
