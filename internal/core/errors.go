// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")

	ErrDeviceConflict    = errors.New("device conflict")
	ErrOTPInvalid        = errors.New("otp invalid or expired")
	ErrDuplicatePurchase = errors.New("purchase already submitted")
	ErrTransient         = errors.New("transient failure")
)

// DeviceConflictMessage is the exact user-facing text shown when a student
// account is bound to a different device. Client apps match on it; do not
// reword without coordinating a release.
const DeviceConflictMessage = "This account is already registered on another device. Please contact admin to reset."

type AppError struct {
	Err     error
	Message string
	Status  int
	Code    string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "application error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func ValidationError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"UNAUTHORIZED",
	)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(resource string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		resource+" already exists",
		http.StatusConflict,
		"DUPLICATE",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

func DeviceConflictError() *AppError {
	return NewAppError(
		ErrDeviceConflict,
		DeviceConflictMessage,
		http.StatusForbidden,
		"DEVICE_CONFLICT",
	)
}

// OTPInvalidError deliberately does not distinguish a wrong code from an
// expired one.
func OTPInvalidError() *AppError {
	return NewAppError(
		ErrOTPInvalid,
		"verification code is invalid or has expired",
		http.StatusBadRequest,
		"OTP_INVALID",
	)
}

func DuplicatePurchaseError() *AppError {
	return NewAppError(
		ErrDuplicatePurchase,
		"you have already submitted payment for this folder",
		http.StatusConflict,
		"DUPLICATE_PURCHASE",
	)
}

func TransientError(message string) *AppError {
	if message == "" {
		message = "temporary failure, please try again"
	}
	return NewAppError(
		ErrTransient,
		message,
		http.StatusServiceUnavailable,
		"TRANSIENT",
	)
}
