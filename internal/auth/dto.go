// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type SignInRequest struct {
	Email    string `json:"email"     validate:"required,email,max=255"`
	Password string `json:"password"  validate:"required,min=6,max=128"`
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

type RegisterStartRequest struct {
	Email      string `json:"email"      validate:"required,email,max=255"`
	Password   string `json:"password"   validate:"required,min=6,max=128"`
	FullName   string `json:"full_name"  validate:"required,min=1,max=100"`
	Department string `json:"department" validate:"omitempty,max=100"`
	Semester   string `json:"semester"   validate:"omitempty,max=20"`
}

type RegisterCompleteRequest struct {
	Email      string `json:"email"      validate:"required,email,max=255"`
	Password   string `json:"password"   validate:"required,min=6,max=128"`
	FullName   string `json:"full_name"  validate:"required,min=1,max=100"`
	Department string `json:"department" validate:"omitempty,max=100"`
	Semester   string `json:"semester"   validate:"omitempty,max=20"`
	Code       string `json:"code"       validate:"required,len=6,numeric"`
	DeviceID   string `json:"device_id"  validate:"required,max=255"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	Department *string `json:"department,omitempty"`
	Semester   *string `json:"semester,omitempty"`
	Verified   bool    `json:"verified"`
}

type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6,max=128"`
}
