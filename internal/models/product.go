package models

import "time"

// Category groups menu products
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Product is a menu entry that order items snapshot at creation time
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	CategoryID  string    `json:"categoryId" db:"category_id"`
	Price       float64   `json:"price" db:"price"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description string  `json:"description" binding:"max=500"`
	ImageURL    string  `json:"imageUrl" binding:"omitempty,url"`
	CategoryID  string  `json:"categoryId" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description,omitempty" binding:"omitempty,max=500"`
	ImageURL    *string  `json:"imageUrl,omitempty" binding:"omitempty,url"`
	CategoryID  *string  `json:"categoryId,omitempty" binding:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"isActive,omitempty"`
}
