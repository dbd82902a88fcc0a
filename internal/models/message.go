package models

import "time"

// EventType is the routing key of a change event
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderItemsChanged  EventType = "order.items_changed"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderClosed        EventType = "order.closed"
	EventOrderDeleted       EventType = "order.deleted"
	EventTableChanged       EventType = "table.changed"
	EventWaiterChanged      EventType = "waiter.changed"
	EventProductChanged     EventType = "product.changed"
)

// ChangeEvent is emitted after a committed write. Families lists the cached
// metric groups the write made stale.
type ChangeEvent struct {
	Type      EventType      `json:"type"`
	EntityID  string         `json:"entity_id"`
	TableID   string         `json:"table_id,omitempty"`
	WaiterID  string         `json:"waiter_id,omitempty"`
	Status    string         `json:"status,omitempty"`
	Total     float64        `json:"total,omitempty"`
	Families  []MetricFamily `json:"families"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewOrderEvent creates a ChangeEvent describing an order write
func NewOrderEvent(eventType EventType, order *Order, families ...MetricFamily) *ChangeEvent {
	return &ChangeEvent{
		Type:      eventType,
		EntityID:  order.ID,
		TableID:   order.TableID,
		WaiterID:  order.WaiterID,
		Status:    string(order.Status),
		Total:     order.Total,
		Families:  families,
		Timestamp: time.Now().UTC(),
	}
}

// NewEntityEvent creates a ChangeEvent for tables, waiters and products
func NewEntityEvent(eventType EventType, entityID string, families ...MetricFamily) *ChangeEvent {
	return &ChangeEvent{
		Type:      eventType,
		EntityID:  entityID,
		Families:  families,
		Timestamp: time.Now().UTC(),
	}
}
