// Package repository declares the storage contracts used by the services.
// Lookups of a missing entity return an error wrapping models.ErrNotFound;
// uniqueness violations return an error wrapping models.ErrConflict.
package repository

import (
	"context"
	"time"

	"restaurant-system/internal/models"
)

type TableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	FindAll(ctx context.Context) ([]models.Table, error)
	FindByID(ctx context.Context, id string) (*models.Table, error)
	FindByNumber(ctx context.Context, number int) (*models.Table, error)
	FindByStatus(ctx context.Context, status models.TableStatus) ([]models.Table, error)
	FindActive(ctx context.Context) ([]models.Table, error)
	Update(ctx context.Context, table *models.Table) error
	UpdateStatus(ctx context.Context, id string, status models.TableStatus) (*models.Table, error)
	Delete(ctx context.Context, id string) error
	ExistsByNumber(ctx context.Context, number int) (bool, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindAll(ctx context.Context) ([]models.Category, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context) ([]models.Product, error)
	FindByCategoryID(ctx context.Context, categoryID string) ([]models.Product, error)
	FindActive(ctx context.Context) ([]models.Product, error)
	// FindByName matches case-insensitively on a substring of the name
	FindByName(ctx context.Context, name string) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

type WaiterRepository interface {
	Create(ctx context.Context, waiter *models.Waiter) error
	FindAll(ctx context.Context) ([]models.Waiter, error)
	FindByID(ctx context.Context, id string) (*models.Waiter, error)
	FindByUserName(ctx context.Context, userName string) (*models.Waiter, error)
	FindByIdentificationNumber(ctx context.Context, identificationNumber string) (*models.Waiter, error)
	Update(ctx context.Context, waiter *models.Waiter) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	FindByUserName(ctx context.Context, userName string) (*models.User, error)
}

type OrderRepository interface {
	// Create persists the order and its items. A second active order on the
	// same table fails with models.ErrConflict.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByTableID(ctx context.Context, tableID string) ([]models.Order, error)
	FindActiveByTableID(ctx context.Context, tableID string) (*models.Order, error)
	FindByWaiterID(ctx context.Context, waiterID string) ([]models.Order, error)
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	FindActive(ctx context.Context) ([]models.Order, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Order, error)
	FindByWaiterAndDateRange(ctx context.Context, waiterID string, start, end time.Time) ([]models.Order, error)

	// The writes below lock the order and fail with models.ErrConflict once
	// it is billed. Item writes reprice the order from its stored items with
	// the given tip percentage in the same transaction.
	Update(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
	// AddItems stores every item or none of them
	AddItems(ctx context.Context, id string, items []models.OrderItem, tipPercentage float64) (*models.Order, error)
	// RemoveItem returns the unchanged order when the item does not exist
	RemoveItem(ctx context.Context, id, itemID string, tipPercentage float64) (*models.Order, error)
	UpdateItem(ctx context.Context, id, itemID string, patch models.ItemPatch, tipPercentage float64) (*models.Order, error)
	// CloseOrder prices the stored items, tip included only when withTip is
	// set, and bills the order with those totals
	CloseOrder(ctx context.Context, id string, tipPercentage float64, withTip bool) (*models.Order, error)
	Delete(ctx context.Context, id string) error
	// CalculateTotals sums the persisted items with the given tip percentage
	CalculateTotals(ctx context.Context, id string, tipPercentage float64) (models.OrderTotals, error)
}
