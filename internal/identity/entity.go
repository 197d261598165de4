// AngelaMos | 2026
// entity.go

package identity

import (
	"time"
)

// Metadata travels with the credential record so a profile can be
// synthesized when the profiles row is missing (see account.Service).
type Metadata struct {
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Semester   string `json:"semester,omitempty"`
}

type Identity struct {
	UserID   string
	Email    string
	Metadata Metadata
}

type authUser struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
}
