package dto

import "strings"

// -------- Core auth --------

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,password_strength"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// -------- Email verification --------

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *VerifyEmailRequest) Normalize() {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
}

// -------- Password change --------

type PasswordChangeRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=12,password_strength"`
}

// -------- Admin --------

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}
