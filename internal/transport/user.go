package transport

import "github.com/google/uuid"

type RegisterRequest struct {
	FirstName   string `json:"firstName"   validate:"required,max=50"`
	LastName    string `json:"lastName"    validate:"required,max=50"`
	Email       string `json:"email"       validate:"required,email,max=255"`
	Password    string `json:"password"    validate:"required,min=8,max=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UserAddressRequest struct {
	Street     string `json:"street"     validate:"max=200"`
	City       string `json:"city"       validate:"max=100"`
	State      string `json:"state"      validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country"    validate:"max=100"`
}

type CreateUserRequest struct {
	FirstName   string              `json:"firstName"   validate:"required,max=50"`
	LastName    string              `json:"lastName"    validate:"required,max=50"`
	Email       string              `json:"email"       validate:"required,email,max=255"`
	Password    string              `json:"password"    validate:"required,min=8,max=72"`
	Role        string              `json:"role"        validate:"omitempty,oneof=customer admin super-admin"`
	Status      string              `json:"status"      validate:"omitempty,oneof=Active Inactive Suspended"`
	PhoneNumber string              `json:"phoneNumber" validate:"omitempty,max=30"`
	Address     *UserAddressRequest `json:"address"`
}

type UpdateUserRequest struct {
	FirstName     *string             `json:"firstName"     validate:"omitempty,max=50"`
	LastName      *string             `json:"lastName"      validate:"omitempty,max=50"`
	Email         *string             `json:"email"         validate:"omitempty,email,max=255"`
	Role          *string             `json:"role"          validate:"omitempty,oneof=customer admin super-admin"`
	Status        *string             `json:"status"        validate:"omitempty,oneof=Active Inactive Suspended"`
	PhoneNumber   *string             `json:"phoneNumber"   validate:"omitempty,max=30"`
	Avatar        *string             `json:"avatar"        validate:"omitempty,max=500"`
	EmailVerified *bool               `json:"emailVerified"`
	Address       *UserAddressRequest `json:"address"`
}

type UpdateProfileRequest struct {
	FirstName   *string             `json:"firstName"   validate:"omitempty,max=50"`
	LastName    *string             `json:"lastName"    validate:"omitempty,max=50"`
	PhoneNumber *string             `json:"phoneNumber" validate:"omitempty,max=30"`
	Avatar      *string             `json:"avatar"      validate:"omitempty,max=500"`
	Address     *UserAddressRequest `json:"address"`
}

type WishlistRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

type UserQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Search string `query:"search"`
	Role   string `query:"role"   validate:"omitempty,oneof=customer admin super-admin"`
	Status string `query:"status" validate:"omitempty,oneof=Active Inactive Suspended"`
	Sort   string `query:"sort"`
}
