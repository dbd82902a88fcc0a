package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/database"
	"restaurant-system/internal/models"
	"restaurant-system/internal/pricing"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func scanOrder(row pgx.CollectableRow) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.TableID, &o.WaiterID, &o.Status, &o.Subtotal, &o.Tip, &o.Total,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt, &o.ClosedAt)
	return o, err
}

// Create inserts the order and its items in one transaction. The partial
// unique index on active orders turns a second open order into a Conflict.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	order.ID = newID(order.ID)
	for i := range order.Items {
		order.Items[i].ID = newID(order.Items[i].ID)
	}

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, database.InsertOrderSQL,
			order.ID, order.TableID, order.WaiterID, order.Status,
			order.Subtotal, order.Tip, order.Total, order.Notes,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := insertItem(ctx, tx, order.ID, item); err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err, "order", order.ID)
}

func insertItem(ctx context.Context, q querier, orderID string, item models.OrderItem) error {
	_, err := q.Exec(ctx, database.InsertOrderItemSQL,
		item.ID, orderID, item.ProductID, item.ProductName, item.ProductImage,
		item.Quantity, item.UnitPrice, item.TotalPrice, item.Notes,
	)
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	if !validID(id) {
		return nil, notFound("order", id)
	}
	return r.one(ctx, r.pool, "order", id, database.SelectOrderByIDSQL, id)
}

func (r *OrderRepository) FindByTableID(ctx context.Context, tableID string) ([]models.Order, error) {
	if !validID(tableID) {
		return []models.Order{}, nil
	}
	return r.list(ctx, database.SelectOrdersByTableSQL, tableID)
}

func (r *OrderRepository) FindActiveByTableID(ctx context.Context, tableID string) (*models.Order, error) {
	if !validID(tableID) {
		return nil, notFound("active order for table", tableID)
	}
	return r.one(ctx, r.pool, "active order for table", tableID, database.SelectActiveOrderByTableSQL, tableID)
}

func (r *OrderRepository) FindByWaiterID(ctx context.Context, waiterID string) ([]models.Order, error) {
	if !validID(waiterID) {
		return []models.Order{}, nil
	}
	return r.list(ctx, database.SelectOrdersByWaiterSQL, waiterID)
}

func (r *OrderRepository) FindByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, database.SelectOrdersByStatusSQL, status)
}

func (r *OrderRepository) FindActive(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, database.SelectActiveOrdersSQL)
}

func (r *OrderRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	return r.list(ctx, database.SelectOrdersByDateRangeSQL, start, end)
}

func (r *OrderRepository) FindByWaiterAndDateRange(ctx context.Context, waiterID string, start, end time.Time) ([]models.Order, error) {
	if !validID(waiterID) {
		return []models.Order{}, nil
	}
	return r.list(ctx, database.SelectOrdersByWaiterAndDateRangeSQL, waiterID, start, end)
}

func (r *OrderRepository) Update(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error) {
	return r.mutate(ctx, id, func(tx pgx.Tx, _ *models.Order) error {
		tag, err := tx.Exec(ctx, database.UpdateOrderSQL, id, patch.Subtotal, patch.Tip, patch.Total, patch.Notes)
		if err != nil {
			return err
		}
		return stillOpen(tag, id)
	})
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return r.mutate(ctx, id, func(tx pgx.Tx, _ *models.Order) error {
		tag, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, id, status)
		if err != nil {
			return err
		}
		return stillOpen(tag, id)
	})
}

// AddItems inserts the batch and reprices the order in one transaction, so a
// failed insert leaves neither items nor totals behind
func (r *OrderRepository) AddItems(ctx context.Context, id string, items []models.OrderItem, tipPercentage float64) (*models.Order, error) {
	batch := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = newID(item.ID)
		batch[i] = item
	}
	return r.mutate(ctx, id, func(tx pgx.Tx, locked *models.Order) error {
		for _, item := range batch {
			if err := insertItem(ctx, tx, id, item); err != nil {
				return err
			}
		}
		return reprice(ctx, tx, locked, tipPercentage)
	})
}

func (r *OrderRepository) RemoveItem(ctx context.Context, id, itemID string, tipPercentage float64) (*models.Order, error) {
	return r.mutate(ctx, id, func(tx pgx.Tx, locked *models.Order) error {
		if !validID(itemID) {
			return nil
		}
		tag, err := tx.Exec(ctx, database.DeleteOrderItemSQL, id, itemID)
		if err != nil || tag.RowsAffected() == 0 {
			return err
		}
		return reprice(ctx, tx, locked, tipPercentage)
	})
}

func (r *OrderRepository) UpdateItem(ctx context.Context, id, itemID string, patch models.ItemPatch, tipPercentage float64) (*models.Order, error) {
	return r.mutate(ctx, id, func(tx pgx.Tx, locked *models.Order) error {
		if !validID(itemID) {
			return notFound("order item", itemID)
		}
		tag, err := tx.Exec(ctx, database.UpdateOrderItemSQL, id, itemID, patch.Quantity, patch.TotalPrice, patch.Notes)
		if err != nil {
			return err
		}
		if err := affected(tag, "order item", itemID); err != nil {
			return err
		}
		return reprice(ctx, tx, locked, tipPercentage)
	})
}

// CloseOrder bills the order with totals computed from the items held under
// the row lock, so items added by a concurrent request are either billed or
// rejected
func (r *OrderRepository) CloseOrder(ctx context.Context, id string, tipPercentage float64, withTip bool) (*models.Order, error) {
	return r.mutate(ctx, id, func(tx pgx.Tx, locked *models.Order) error {
		totals := pricing.Totals(locked.Items, tipPercentage, withTip)
		tag, err := tx.Exec(ctx, database.CloseOrderSQL, id, totals.Subtotal, totals.Tip, totals.Total)
		if err != nil {
			return err
		}
		return stillOpen(tag, id)
	})
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("order", id)
	}
	tag, err := r.pool.Exec(ctx, database.DeleteOrderSQL, id)
	if err != nil {
		return mapError(err, "order", id)
	}
	return affected(tag, "order", id)
}

func (r *OrderRepository) CalculateTotals(ctx context.Context, id string, tipPercentage float64) (models.OrderTotals, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return models.OrderTotals{}, err
	}
	return pricing.Totals(order.Items, tipPercentage, true), nil
}

// mutate locks the order row, rejects billed orders, applies change and
// returns the order as committed
func (r *OrderRepository) mutate(ctx context.Context, id string, change func(pgx.Tx, *models.Order) error) (*models.Order, error) {
	if !validID(id) {
		return nil, notFound("order", id)
	}

	var order *models.Order
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		locked, err := r.one(ctx, tx, "order", id, database.SelectOrderForUpdateSQL, id)
		if err != nil {
			return err
		}
		if locked.Status == models.StatusBilled {
			return billed(id)
		}
		if err := change(tx, locked); err != nil {
			return err
		}
		order, err = r.one(ctx, tx, "order", id, database.SelectOrderByIDSQL, id)
		return err
	})
	if err != nil {
		return nil, mapError(err, "order", id)
	}
	return order, nil
}

// reprice recomputes the totals of the locked order from its current items
func reprice(ctx context.Context, tx pgx.Tx, locked *models.Order, tipPercentage float64) error {
	current := []models.Order{{ID: locked.ID}}
	if err := loadItems(ctx, tx, current); err != nil {
		return err
	}
	totals := pricing.Totals(current[0].Items, tipPercentage, true)
	tag, err := tx.Exec(ctx, database.RepriceOrderSQL, locked.ID, totals.Subtotal, totals.Tip, totals.Total)
	if err != nil {
		return err
	}
	return stillOpen(tag, locked.ID)
}

func billed(id string) error {
	return fmt.Errorf("%w: order %s is already billed", models.ErrConflict, id)
}

// stillOpen maps a guarded order update that touched no row to a Conflict
func stillOpen(tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() == 0 {
		return billed(id)
	}
	return nil
}

func (r *OrderRepository) one(ctx context.Context, q querier, entity, key, sql string, args ...any) (*models.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	order, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	orders := []models.Order{order}
	if err := loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "orders", "")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, mapError(err, "orders", "")
	}
	if err := loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills the items of every order with a single query
func loadItems(ctx context.Context, q querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		orders[i].Items = []models.OrderItem{}
		index[orders[i].ID] = i
		id, err := uuid.Parse(orders[i].ID)
		if err != nil {
			return mapError(err, "order", orders[i].ID)
		}
		ids = append(ids, id)
	}

	rows, err := q.Query(ctx, database.SelectOrderItemsSQL, ids)
	if err != nil {
		return mapError(err, "order items", "")
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderItem
		err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.ProductImage,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.Notes)
		if err != nil {
			return mapError(err, "order items", orderID)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return mapError(err, "order items", "")
	}
	return nil
}
