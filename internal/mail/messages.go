// AngelaMos | 2026
// messages.go

package mail

import (
	"fmt"
	"time"
)

const OTPSubject = "DiploMate - Email Verification Code"

// OTPBody renders the verification email. Plain text on purpose: it has
// to survive aggressive campus mail filters.
func OTPBody(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())

	return fmt.Sprintf(
		"Your DiploMate verification code is: %s\r\n\r\n"+
			"This code expires in %d minutes.\r\n\r\n"+
			"If you did not request this code, you can safely ignore this email.",
		code,
		minutes,
	)
}
