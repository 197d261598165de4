// AngelaMos | 2026
// entity.go

package account

import (
	"time"
)

// Account is the profile row for a credential. DeviceID is nil until the
// first student sign-in binds one; it only returns to nil through an
// admin reset.
type Account struct {
	ID         string     `db:"id"`
	Email      string     `db:"email"`
	FullName   string     `db:"full_name"`
	Role       string     `db:"role"`
	Department *string    `db:"department"`
	Semester   *string    `db:"semester"`
	DeviceID   *string    `db:"device_id"`
	VerifiedAt *time.Time `db:"verified_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAdmin
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsVerified() bool {
	return a.VerifiedAt != nil
}

func (a *Account) HasDevice() bool {
	return a.DeviceID != nil && *a.DeviceID != ""
}
