package models

import (
	"fmt"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusInKitchen OrderStatus = "in_kitchen"
	StatusDelivered OrderStatus = "delivered"
	StatusBilled    OrderStatus = "billed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusInKitchen, StatusDelivered, StatusBilled:
		return true
	}
	return false
}

// Active reports whether the order still holds its table
func (s OrderStatus) Active() bool {
	return s == StatusInKitchen || s == StatusDelivered
}

// ParseOrderStatus validates a status received from a client
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: status must be one of: in_kitchen, delivered, billed", ErrInvalidInput)
	}
	return status, nil
}

// TipChoice is the yes/no flag accepted when billing an order
type TipChoice string

const (
	WithTip    TipChoice = "yes"
	WithoutTip TipChoice = "no"
)

// ParseTipChoice validates the withTip flag
func ParseTipChoice(s string) (TipChoice, error) {
	switch TipChoice(s) {
	case WithTip, WithoutTip:
		return TipChoice(s), nil
	default:
		return "", fmt.Errorf("%w: withTip must be 'yes' or 'no'", ErrInvalidInput)
	}
}

// OrderItem is a line of an order. Name, price and image are copied from the
// product when the line is created.
type OrderItem struct {
	ID           string  `json:"id" db:"id"`
	ProductID    string  `json:"productId" db:"product_id"`
	ProductName  string  `json:"productName" db:"product_name"`
	Quantity     int     `json:"quantity" db:"quantity"`
	UnitPrice    float64 `json:"unitPrice" db:"unit_price"`
	TotalPrice   float64 `json:"totalPrice" db:"total_price"`
	Notes        string  `json:"notes" db:"notes"`
	ProductImage string  `json:"productImage,omitempty" db:"product_image"`
}

// Order represents a customer order bound to a table
type Order struct {
	ID        string      `json:"id" db:"id"`
	TableID   string      `json:"tableId" db:"table_id"`
	WaiterID  string      `json:"waiterId" db:"waiter_id"`
	Status    OrderStatus `json:"status" db:"status"`
	Items     []OrderItem `json:"items"`
	Subtotal  float64     `json:"subtotal" db:"subtotal"`
	Tip       float64     `json:"tip" db:"tip"`
	Total     float64     `json:"total" db:"total"`
	Notes     string      `json:"notes" db:"notes"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
	ClosedAt  *time.Time  `json:"closedAt,omitempty" db:"closed_at"`
}

// FindItem returns the item with the given id
func (o *Order) FindItem(itemID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// OrderTotals is the priced summary of an item list
type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
}

// OrderPatch carries the fields an update may change; nil fields are left untouched
type OrderPatch struct {
	Subtotal *float64
	Tip      *float64
	Total    *float64
	Notes    *string
}

// ItemPatch carries the item fields an update may change
type ItemPatch struct {
	Quantity   *int
	TotalPrice *float64
	Notes      *string
}

type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1,max=100"`
	Notes     string `json:"notes" validate:"max=200"`
}

type CreateOrderRequest struct {
	TableID  string             `json:"tableId" validate:"required"`
	WaiterID string             `json:"waiterId" validate:"required"`
	Items    []OrderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	Notes    string             `json:"notes" validate:"max=500"`
}

type AddOrderItemsRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type UpdateOrderItemRequest struct {
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,min=1,max=100"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=200"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type BillRequest struct {
	WithTip string `json:"withTip" validate:"required,oneof=yes no"`
}

// Bill is the printable view of an order; IsPreBill is true until the order is billed
type Bill struct {
	OrderID       string      `json:"orderId"`
	TableNumber   int         `json:"tableNumber"`
	WaiterName    string      `json:"waiterName"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tip           float64     `json:"tip"`
	Total         float64     `json:"total"`
	TipPercentage float64     `json:"tipPercentage"`
	CreatedAt     time.Time   `json:"createdAt"`
	IsPreBill     bool        `json:"isPreBill"`
}
