package models

import (
	"fmt"
	"time"
)

// TableStatus represents the occupancy of a table
type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
)

func (s TableStatus) Valid() bool {
	return s == TableFree || s == TableOccupied
}

// ParseTableStatus validates a status received from a client
func ParseTableStatus(s string) (TableStatus, error) {
	status := TableStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: status must be one of: free, occupied", ErrInvalidInput)
	}
	return status, nil
}

// Table represents a dining table
type Table struct {
	ID        string      `json:"id" db:"id"`
	Number    int         `json:"number" db:"number"`
	Status    TableStatus `json:"status" db:"status"`
	IsActive  bool        `json:"isActive" db:"is_active"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

type CreateTableRequest struct {
	Number int `json:"number" binding:"required,min=1"`
}

type UpdateTableRequest struct {
	Number   *int         `json:"number,omitempty" binding:"omitempty,min=1"`
	Status   *TableStatus `json:"status,omitempty" binding:"omitempty,oneof=free occupied"`
	IsActive *bool        `json:"isActive,omitempty"`
}

type UpdateTableStatusRequest struct {
	Status TableStatus `json:"status" binding:"required,oneof=free occupied"`
}
