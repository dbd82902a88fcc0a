package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/monitoring"
	"restaurant-system/internal/pricing"
	"restaurant-system/internal/repository"
)

// Metric families made stale by each kind of order write
var (
	createdFamilies = []models.MetricFamily{
		models.FamilyTables, models.FamilyRealtime, models.FamilySales, models.FamilyWaiter,
		models.FamilyProducts, models.FamilyPeakHours, models.FamilyFinancial, models.FamilyReports,
	}
	itemsFamilies = []models.MetricFamily{
		models.FamilyRealtime, models.FamilySales, models.FamilyWaiter, models.FamilyProducts,
		models.FamilyPeakHours, models.FamilyFinancial, models.FamilyReports,
	}
	statusFamilies = []models.MetricFamily{models.FamilyRealtime, models.FamilyReports}
	closedFamilies = []models.MetricFamily{
		models.FamilyTables, models.FamilyRealtime, models.FamilySales, models.FamilyWaiter,
		models.FamilyFinancial, models.FamilyReports,
	}
	deletedFamilies = []models.MetricFamily{models.FamilyAll}
)

type Repositories struct {
	Orders   repository.OrderRepository
	Tables   repository.TableRepository
	Products repository.ProductRepository
	Waiters  repository.WaiterRepository
}

// Service owns the order lifecycle: item pricing, totals, status transitions,
// billing and the table occupancy side effects.
type Service struct {
	orders        repository.OrderRepository
	tables        repository.TableRepository
	products      repository.ProductRepository
	waiters       repository.WaiterRepository
	notifier      events.Notifier
	logger        *logger.Logger
	tipPercentage float64

	tableLocks sync.Map
}

func NewService(repos Repositories, notifier events.Notifier, log *logger.Logger, tipPercentage float64) *Service {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Service{
		orders:        repos.Orders,
		tables:        repos.Tables,
		products:      repos.Products,
		waiters:       repos.Waiters,
		notifier:      notifier,
		logger:        log,
		tipPercentage: tipPercentage,
	}
}

// TipPercentage returns the configured tip rate
func (s *Service) TipPercentage() float64 {
	return s.tipPercentage
}

// lockTable serializes the check-then-create sequence for one table within
// this process; the partial unique index covers concurrent processes. Only
// ids of stored tables are locked, so the lock set stays bounded by the
// floor plan.
func (s *Service) lockTable(tableID string) func() {
	m, _ := s.tableLocks.LoadOrStore(tableID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Create opens an order on a free table
func (s *Service) Create(ctx context.Context, req *models.CreateOrderRequest, requestID string) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", models.ErrInvalidInput)
	}

	table, err := s.tables.FindByID(ctx, req.TableID)
	if err != nil {
		return nil, fmt.Errorf("find table: %w", err)
	}

	unlock := s.lockTable(table.ID)
	defer unlock()

	// re-read under the lock; a concurrent create may have occupied it
	table, err = s.tables.FindByID(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("find table: %w", err)
	}
	if !table.IsActive {
		return nil, fmt.Errorf("%w: table %d is inactive", models.ErrConflict, table.Number)
	}
	if table.Status != models.TableFree {
		return nil, fmt.Errorf("%w: table %d is not free", models.ErrConflict, table.Number)
	}

	if _, err := s.waiters.FindByID(ctx, req.WaiterID); err != nil {
		return nil, fmt.Errorf("find waiter: %w", err)
	}

	active, err := s.orders.FindActiveByTableID(ctx, req.TableID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("find active order: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: table %d already has an active order", models.ErrConflict, table.Number)
	}

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	totals := pricing.Totals(items, s.tipPercentage, true)
	order := &models.Order{
		TableID:  req.TableID,
		WaiterID: req.WaiterID,
		Status:   models.StatusInKitchen,
		Items:    items,
		Subtotal: totals.Subtotal,
		Tip:      totals.Tip,
		Total:    totals.Total,
		Notes:    req.Notes,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if _, err := s.tables.UpdateStatus(ctx, req.TableID, models.TableOccupied); err != nil {
		s.logger.Error("table_occupy_failed", "Order created but table status was not updated", requestID, err, map[string]interface{}{
			"order_id": order.ID,
			"table_id": req.TableID,
		})
		return nil, fmt.Errorf("%w: order %s created but table %s not marked occupied: %v",
			models.ErrInconsistentState, order.ID, req.TableID, err)
	}

	monitoring.OrdersTotal.WithLabelValues(string(models.StatusInKitchen)).Inc()
	s.logger.Info("order_created", "Order created", requestID, map[string]interface{}{
		"order_id":  order.ID,
		"table_id":  order.TableID,
		"waiter_id": order.WaiterID,
		"items":     len(order.Items),
		"total":     order.Total,
	})
	s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderCreated, order, createdFamilies...))

	return order, nil
}

// buildItems resolves products and snapshots name, price and image
func (s *Service) buildItems(ctx context.Context, reqs []models.OrderItemRequest) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be at least 1", models.ErrInvalidInput, r.ProductID)
		}
		product, err := s.products.FindByID(ctx, r.ProductID)
		if err != nil {
			return nil, fmt.Errorf("find product: %w", err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not available", models.ErrInvalidInput, product.Name)
		}
		items = append(items, models.OrderItem{
			ID:           uuid.NewString(),
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     r.Quantity,
			UnitPrice:    product.Price,
			TotalPrice:   pricing.LineTotal(product.Price, r.Quantity),
			Notes:        r.Notes,
			ProductImage: product.ImageURL,
		})
	}
	return items, nil
}

// AddItems appends items to an open order
func (s *Service) AddItems(ctx context.Context, id string, reqs []models.OrderItemRequest, requestID string) (*models.Order, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", models.ErrInvalidInput)
	}
	if _, err := s.openOrder(ctx, id); err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, reqs)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.AddItems(ctx, id, items, s.tipPercentage)
	if err != nil {
		return nil, fmt.Errorf("add items: %w", err)
	}

	s.itemsChanged(ctx, order, requestID)
	return order, nil
}

// RemoveItem deletes an item; an unknown item id leaves the order unchanged
func (s *Service) RemoveItem(ctx context.Context, id, itemID, requestID string) (*models.Order, error) {
	order, err := s.openOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := order.FindItem(itemID); !ok {
		return order, nil
	}

	order, err = s.orders.RemoveItem(ctx, id, itemID, s.tipPercentage)
	if err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	s.itemsChanged(ctx, order, requestID)
	return order, nil
}

// UpdateItem changes quantity and/or notes of an item
func (s *Service) UpdateItem(ctx context.Context, id, itemID string, req *models.UpdateOrderItemRequest, requestID string) (*models.Order, error) {
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrInvalidInput)
	}

	order, err := s.openOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	item, ok := order.FindItem(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: item %s in order %s", models.ErrNotFound, itemID, id)
	}

	patch := models.ItemPatch{Notes: req.Notes}
	if req.Quantity != nil {
		lineTotal := pricing.LineTotal(item.UnitPrice, *req.Quantity)
		patch.Quantity = req.Quantity
		patch.TotalPrice = &lineTotal
	}

	order, err = s.orders.UpdateItem(ctx, id, itemID, patch, s.tipPercentage)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.itemsChanged(ctx, order, requestID)
	return order, nil
}

// itemsChanged reports an item write. The repository has already repriced
// the order in the same transaction.
func (s *Service) itemsChanged(ctx context.Context, order *models.Order, requestID string) {
	s.logger.Debug("order_items_changed", "Order items changed", requestID, map[string]interface{}{
		"order_id": order.ID,
		"items":    len(order.Items),
		"subtotal": order.Subtotal,
		"total":    order.Total,
	})
	s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderItemsChanged, order, itemsFamilies...))
}

// openOrder loads an order and rejects billed ones. The repository repeats
// the check under its row lock.
func (s *Service) openOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.Status == models.StatusBilled {
		return nil, fmt.Errorf("%w: order %s is already billed", models.ErrConflict, id)
	}
	return order, nil
}

// UpdateStatus moves an open order between in_kitchen and delivered
func (s *Service) UpdateStatus(ctx context.Context, id, status, requestID string) (*models.Order, error) {
	target, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.Status == models.StatusBilled {
		return nil, fmt.Errorf("%w: order %s is billed", models.ErrInvalidStateTransition, id)
	}
	if target == models.StatusBilled {
		return nil, fmt.Errorf("%w: orders are billed by closing them", models.ErrInvalidStateTransition)
	}

	previous := order.Status
	order, err = s.orders.UpdateStatus(ctx, id, target)
	if errors.Is(err, models.ErrConflict) {
		return nil, fmt.Errorf("%w: order %s is billed", models.ErrInvalidStateTransition, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	monitoring.OrdersTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("order_status_changed", "Order status changed", requestID, map[string]interface{}{
		"order_id":   id,
		"old_status": previous,
		"new_status": target,
	})
	s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderStatusChanged, order, statusFamilies...))

	return order, nil
}

// Close bills the order and releases its table. A failure after the order is
// billed is reported as models.ErrInconsistentState.
func (s *Service) Close(ctx context.Context, id, withTip, requestID string) (*models.Order, error) {
	choice, err := models.ParseTipChoice(withTip)
	if err != nil {
		return nil, err
	}

	if _, err := s.openOrder(ctx, id); err != nil {
		return nil, err
	}

	closed, err := s.orders.CloseOrder(ctx, id, s.tipPercentage, choice == models.WithTip)
	if err != nil {
		return nil, fmt.Errorf("close order: %w", err)
	}

	if _, err := s.tables.UpdateStatus(ctx, closed.TableID, models.TableFree); err != nil {
		s.logger.Error("table_release_failed", "Order billed but table was not released", requestID, err, map[string]interface{}{
			"order_id": id,
			"table_id": closed.TableID,
		})
		s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderClosed, closed, closedFamilies...))
		return closed, fmt.Errorf("%w: order %s billed but table %s not released: %v",
			models.ErrInconsistentState, id, closed.TableID, err)
	}

	monitoring.OrdersTotal.WithLabelValues(string(models.StatusBilled)).Inc()
	monitoring.BilledAmount.Observe(closed.Total)
	s.logger.Info("order_closed", "Order billed and table released", requestID, map[string]interface{}{
		"order_id": id,
		"table_id": closed.TableID,
		"with_tip": choice,
		"subtotal": closed.Subtotal,
		"tip":      closed.Tip,
		"total":    closed.Total,
	})
	s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderClosed, closed, closedFamilies...))

	return closed, nil
}

// GenerateBill prices the order without changing it. Billed orders keep their
// stored amounts; open orders are priced with the requested tip choice.
func (s *Service) GenerateBill(ctx context.Context, id, withTip string) (*models.Bill, error) {
	choice, err := models.ParseTipChoice(withTip)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	table, err := s.tables.FindByID(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("find table: %w", err)
	}
	waiter, err := s.waiters.FindByID(ctx, order.WaiterID)
	if err != nil {
		return nil, fmt.Errorf("find waiter: %w", err)
	}

	bill := &models.Bill{
		OrderID:     order.ID,
		TableNumber: table.Number,
		WaiterName:  waiter.FullName(),
		Items:       order.Items,
		CreatedAt:   order.CreatedAt,
		IsPreBill:   order.Status != models.StatusBilled,
	}

	if bill.IsPreBill {
		totals := pricing.Totals(order.Items, s.tipPercentage, choice == models.WithTip)
		bill.Subtotal, bill.Tip, bill.Total = totals.Subtotal, totals.Tip, totals.Total
		if choice == models.WithTip {
			bill.TipPercentage = s.tipPercentage
		}
	} else {
		bill.Subtotal, bill.Tip, bill.Total = order.Subtotal, order.Tip, order.Total
		if order.Tip > 0 {
			bill.TipPercentage = s.tipPercentage
		}
	}

	return bill, nil
}

// Delete purges a billed order
func (s *Service) Delete(ctx context.Context, id, requestID string) error {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find order: %w", err)
	}
	if order.Status != models.StatusBilled {
		return fmt.Errorf("%w: only billed orders can be deleted", models.ErrConflict)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.Info("order_deleted", "Order deleted", requestID, map[string]interface{}{
		"order_id": id,
	})
	s.emit(ctx, requestID, models.NewOrderEvent(models.EventOrderDeleted, order, deletedFamilies...))

	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *Service) ListByTable(ctx context.Context, tableID string) ([]models.Order, error) {
	return s.orders.FindByTableID(ctx, tableID)
}

// ActiveByTable returns the open order of a table with item images taken
// from the current products where the snapshot has none
func (s *Service) ActiveByTable(ctx context.Context, tableID string) (*models.Order, error) {
	order, err := s.orders.FindActiveByTableID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for i := range order.Items {
		if order.Items[i].ProductImage != "" {
			continue
		}
		product, err := s.products.FindByID(ctx, order.Items[i].ProductID)
		if err != nil {
			continue
		}
		order.Items[i].ProductImage = product.ImageURL
	}
	return order, nil
}

func (s *Service) ListByWaiter(ctx context.Context, waiterID string) ([]models.Order, error) {
	return s.orders.FindByWaiterID(ctx, waiterID)
}

func (s *Service) ListByStatus(ctx context.Context, status string) ([]models.Order, error) {
	st, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.orders.FindByStatus(ctx, st)
}

func (s *Service) ListActive(ctx context.Context) ([]models.Order, error) {
	return s.orders.FindActive(ctx)
}

func (s *Service) emit(ctx context.Context, requestID string, event *models.ChangeEvent) {
	event.RequestID = requestID
	event.Timestamp = time.Now().UTC()
	s.notifier.Notify(ctx, event)
}
