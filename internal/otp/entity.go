// AngelaMos | 2026
// entity.go

package otp

import (
	"time"
)

// Challenge is the single live verification code for an email. The table
// keys on email, so issuing a new code atomically replaces the old one.
type Challenge struct {
	Email     string    `db:"email"`
	Code      string    `db:"otp"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
