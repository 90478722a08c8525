package domain

import "time"

type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`
	Username      string    `json:"username" dynamodbav:"username"`
	Name          string    `json:"name" dynamodbav:"name"`
	Email         string    `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Phone         string    `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`
	Role          string    `json:"role" dynamodbav:"role"`
	AccountStatus int       `json:"account_status" dynamodbav:"account_status"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

func (u *User) Enabled() bool { return u.AccountStatus == AccountEnabled }

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,cnphone"`
}

// UpdateProfileRequest edits the caller's own account. Nil fields are left
// as they are; an empty email or phone clears it.
type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50,alphanum"`
	Name     *string `json:"name" validate:"omitnil,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,cnphone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

type AccountStatusRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN USER"`
}
