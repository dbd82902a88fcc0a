package models

import "time"

// Role is the authorization role carried in access tokens
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWaiter Role = "waiter"
)

// User is an administrative account
type User struct {
	ID           string    `json:"id" db:"id"`
	UserName     string    `json:"userName" db:"user_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Waiter is a staff member who takes orders
type Waiter struct {
	ID                   string    `json:"id" db:"id"`
	FirstName            string    `json:"firstName" db:"first_name"`
	LastName             string    `json:"lastName" db:"last_name"`
	IdentificationNumber string    `json:"identificationNumber" db:"identification_number"`
	PhoneNumber          string    `json:"phoneNumber" db:"phone_number"`
	UserName             string    `json:"userName" db:"user_name"`
	PasswordHash         string    `json:"-" db:"password_hash"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns "first last"
func (w *Waiter) FullName() string {
	return w.FirstName + " " + w.LastName
}

type CreateWaiterRequest struct {
	FirstName            string `json:"firstName" binding:"required,max=50"`
	LastName             string `json:"lastName" binding:"required,max=50"`
	IdentificationNumber string `json:"identificationNumber" binding:"required,max=30"`
	PhoneNumber          string `json:"phoneNumber" binding:"required,max=20"`
}

type UpdateWaiterRequest struct {
	FirstName   *string `json:"firstName,omitempty" binding:"omitempty,min=1,max=50"`
	LastName    *string `json:"lastName,omitempty" binding:"omitempty,min=1,max=50"`
	PhoneNumber *string `json:"phoneNumber,omitempty" binding:"omitempty,min=1,max=20"`
}

// WaiterCredentials is returned once, when the waiter is created
type WaiterCredentials struct {
	Waiter   *Waiter `json:"waiter"`
	UserName string  `json:"userName"`
	Password string  `json:"password"`
}

type LoginRequest struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
