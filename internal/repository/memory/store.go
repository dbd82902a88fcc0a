// Package memory implements the repository contracts in process memory.
// It backs the service tests and mirrors the Postgres constraints that the
// services rely on (unique table numbers, one active order per table).
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"restaurant-system/internal/models"
	"restaurant-system/internal/pricing"
	"restaurant-system/internal/repository"
)

var (
	_ repository.TableRepository    = (*TableRepository)(nil)
	_ repository.CategoryRepository = (*CategoryRepository)(nil)
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.WaiterRepository   = (*WaiterRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.OrderRepository    = (*OrderRepository)(nil)
)

// Store holds every entity; the repository types are views over it
type Store struct {
	mu         sync.RWMutex
	now        func() time.Time
	tables     map[string]models.Table
	categories map[string]models.Category
	products   map[string]models.Product
	waiters    map[string]models.Waiter
	users      map[string]models.User
	orders     map[string]models.Order

	// FailNext, when set, is returned by the next write and then cleared
	FailNext error
}

func NewStore() *Store {
	return &Store{
		now:        time.Now,
		tables:     make(map[string]models.Table),
		categories: make(map[string]models.Category),
		products:   make(map[string]models.Product),
		waiters:    make(map[string]models.Waiter),
		users:      make(map[string]models.User),
		orders:     make(map[string]models.Order),
	}
}

// SetClock replaces the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Tables() *TableRepository       { return &TableRepository{s} }
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s} }
func (s *Store) Products() *ProductRepository   { return &ProductRepository{s} }
func (s *Store) Waiters() *WaiterRepository     { return &WaiterRepository{s} }
func (s *Store) Users() *UserRepository         { return &UserRepository{s} }
func (s *Store) Orders() *OrderRepository       { return &OrderRepository{s} }

// PutCategory seeds a category
func (s *Store) PutCategory(c models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.categories[c.ID] = c
}

// PutUser seeds an administrative user
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
}

// PutOrder stores an order as-is, bypassing constraints
func (s *Store) PutOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = cloneOrder(o)
}

func (s *Store) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", models.ErrNotFound, entity, id)
}

// TableRepository

type TableRepository struct{ s *Store }

func (r *TableRepository) Create(_ context.Context, table *models.Table) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	for _, t := range r.s.tables {
		if t.Number == table.Number {
			return fmt.Errorf("%w: table number %d already exists", models.ErrConflict, table.Number)
		}
	}
	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	now := r.s.now()
	table.CreatedAt, table.UpdatedAt = now, now
	r.s.tables[table.ID] = *table
	return nil
}

func (r *TableRepository) FindAll(_ context.Context) ([]models.Table, error) {
	return r.filter(func(models.Table) bool { return true }), nil
}

func (r *TableRepository) FindByID(_ context.Context, id string) (*models.Table, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tables[id]
	if !ok {
		return nil, notFound("table", id)
	}
	return &t, nil
}

func (r *TableRepository) FindByNumber(_ context.Context, number int) (*models.Table, error) {
	found := r.filter(func(t models.Table) bool { return t.Number == number })
	if len(found) == 0 {
		return nil, notFound("table number", fmt.Sprint(number))
	}
	return &found[0], nil
}

func (r *TableRepository) FindByStatus(_ context.Context, status models.TableStatus) ([]models.Table, error) {
	return r.filter(func(t models.Table) bool { return t.Status == status && t.IsActive }), nil
}

func (r *TableRepository) FindActive(_ context.Context) ([]models.Table, error) {
	return r.filter(func(t models.Table) bool { return t.IsActive }), nil
}

func (r *TableRepository) Update(_ context.Context, table *models.Table) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.tables[table.ID]; !ok {
		return notFound("table", table.ID)
	}
	for _, t := range r.s.tables {
		if t.Number == table.Number && t.ID != table.ID {
			return fmt.Errorf("%w: table number %d already exists", models.ErrConflict, table.Number)
		}
	}
	table.UpdatedAt = r.s.now()
	r.s.tables[table.ID] = *table
	return nil
}

func (r *TableRepository) UpdateStatus(_ context.Context, id string, status models.TableStatus) (*models.Table, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	t, ok := r.s.tables[id]
	if !ok {
		return nil, notFound("table", id)
	}
	t.Status = status
	t.UpdatedAt = r.s.now()
	r.s.tables[id] = t
	return &t, nil
}

func (r *TableRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.tables[id]; !ok {
		return notFound("table", id)
	}
	delete(r.s.tables, id)
	return nil
}

func (r *TableRepository) ExistsByNumber(_ context.Context, number int) (bool, error) {
	return len(r.filter(func(t models.Table) bool { return t.Number == number })) > 0, nil
}

func (r *TableRepository) filter(keep func(models.Table) bool) []models.Table {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Table, 0, len(r.s.tables))
	for _, t := range r.s.tables {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// CategoryRepository

type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) FindByID(_ context.Context, id string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (r *CategoryRepository) FindAll(_ context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ProductRepository

type ProductRepository struct{ s *Store }

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := r.s.now()
	product.CreatedAt, product.UpdatedAt = now, now
	r.s.products[product.ID] = *product
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (r *ProductRepository) FindAll(_ context.Context) ([]models.Product, error) {
	return r.filter(func(models.Product) bool { return true }), nil
}

func (r *ProductRepository) FindByCategoryID(_ context.Context, categoryID string) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool { return p.CategoryID == categoryID }), nil
}

func (r *ProductRepository) FindActive(_ context.Context) ([]models.Product, error) {
	return r.filter(func(p models.Product) bool { return p.IsActive }), nil
}

func (r *ProductRepository) FindByName(_ context.Context, name string) ([]models.Product, error) {
	needle := strings.ToLower(name)
	return r.filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}), nil
}

func (r *ProductRepository) Update(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.products[product.ID]; !ok {
		return notFound("product", product.ID)
	}
	product.UpdatedAt = r.s.now()
	r.s.products[product.ID] = *product
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.products[id]; !ok {
		return notFound("product", id)
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) filter(keep func(models.Product) bool) []models.Product {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WaiterRepository

type WaiterRepository struct{ s *Store }

func (r *WaiterRepository) Create(_ context.Context, waiter *models.Waiter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	for _, w := range r.s.waiters {
		if w.UserName == waiter.UserName || w.IdentificationNumber == waiter.IdentificationNumber {
			return fmt.Errorf("%w: waiter already exists", models.ErrConflict)
		}
	}
	if waiter.ID == "" {
		waiter.ID = uuid.NewString()
	}
	now := r.s.now()
	waiter.CreatedAt, waiter.UpdatedAt = now, now
	r.s.waiters[waiter.ID] = *waiter
	return nil
}

func (r *WaiterRepository) FindAll(_ context.Context) ([]models.Waiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Waiter, 0, len(r.s.waiters))
	for _, w := range r.s.waiters {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID) })
	return out, nil
}

func (r *WaiterRepository) FindByID(_ context.Context, id string) (*models.Waiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.waiters[id]
	if !ok {
		return nil, notFound("waiter", id)
	}
	return &w, nil
}

func (r *WaiterRepository) FindByUserName(_ context.Context, userName string) (*models.Waiter, error) {
	return r.findOne(func(w models.Waiter) bool { return w.UserName == userName }, "waiter username", userName)
}

func (r *WaiterRepository) FindByIdentificationNumber(_ context.Context, identificationNumber string) (*models.Waiter, error) {
	return r.findOne(func(w models.Waiter) bool { return w.IdentificationNumber == identificationNumber }, "waiter identification", identificationNumber)
}

func (r *WaiterRepository) Update(_ context.Context, waiter *models.Waiter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.waiters[waiter.ID]; !ok {
		return notFound("waiter", waiter.ID)
	}
	waiter.UpdatedAt = r.s.now()
	r.s.waiters[waiter.ID] = *waiter
	return nil
}

func (r *WaiterRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.waiters[id]; !ok {
		return notFound("waiter", id)
	}
	delete(r.s.waiters, id)
	return nil
}

func (r *WaiterRepository) findOne(match func(models.Waiter) bool, entity, key string) (*models.Waiter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.waiters {
		if match(w) {
			return &w, nil
		}
	}
	return nil, notFound(entity, key)
}

// UserRepository

type UserRepository struct{ s *Store }

func (r *UserRepository) FindByUserName(_ context.Context, userName string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.UserName == userName {
			return &u, nil
		}
	}
	return nil, notFound("user", userName)
}

// OrderRepository

type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	for _, o := range r.s.orders {
		if o.TableID == order.TableID && o.Status.Active() {
			return fmt.Errorf("%w: table %s already has an active order", models.ErrConflict, order.TableID)
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.NewString()
		}
	}
	now := r.s.now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *OrderRepository) FindByTableID(_ context.Context, tableID string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.TableID == tableID }), nil
}

func (r *OrderRepository) FindActiveByTableID(_ context.Context, tableID string) (*models.Order, error) {
	found := r.filter(func(o models.Order) bool { return o.TableID == tableID && o.Status.Active() })
	if len(found) == 0 {
		return nil, notFound("active order for table", tableID)
	}
	return &found[0], nil
}

func (r *OrderRepository) FindByWaiterID(_ context.Context, waiterID string) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.WaiterID == waiterID }), nil
}

func (r *OrderRepository) FindByStatus(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.Status == status }), nil
}

func (r *OrderRepository) FindActive(_ context.Context) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.Status.Active() }), nil
}

func (r *OrderRepository) FindByDateRange(_ context.Context, start, end time.Time) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return inRange(o.CreatedAt, start, end) }), nil
}

func (r *OrderRepository) FindByWaiterAndDateRange(_ context.Context, waiterID string, start, end time.Time) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool {
		return o.WaiterID == waiterID && inRange(o.CreatedAt, start, end)
	}), nil
}

func (r *OrderRepository) Update(_ context.Context, id string, patch models.OrderPatch) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		if patch.Subtotal != nil {
			o.Subtotal = *patch.Subtotal
		}
		if patch.Tip != nil {
			o.Tip = *patch.Tip
		}
		if patch.Total != nil {
			o.Total = *patch.Total
		}
		if patch.Notes != nil {
			o.Notes = *patch.Notes
		}
		return nil
	})
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		o.Status = status
		return nil
	})
}

// AddItems appends the batch or, when any line breaks the quantity or price
// constraints, nothing at all
func (r *OrderRepository) AddItems(_ context.Context, id string, items []models.OrderItem, tipPercentage float64) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		for _, item := range items {
			if item.Quantity < 1 || item.UnitPrice < 0 || item.TotalPrice < 0 {
				return fmt.Errorf("%w: order item %s violates item constraints", models.ErrInvalidInput, item.ProductID)
			}
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			o.Items = append(o.Items, item)
		}
		reprice(o, tipPercentage)
		return nil
	})
}

func (r *OrderRepository) RemoveItem(_ context.Context, id, itemID string, tipPercentage float64) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		kept := make([]models.OrderItem, 0, len(o.Items))
		for _, item := range o.Items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		if len(kept) != len(o.Items) {
			o.Items = kept
			reprice(o, tipPercentage)
		}
		return nil
	})
}

func (r *OrderRepository) UpdateItem(_ context.Context, id, itemID string, patch models.ItemPatch, tipPercentage float64) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		item, ok := o.FindItem(itemID)
		if !ok {
			return notFound("order item", itemID)
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.TotalPrice != nil {
			item.TotalPrice = *patch.TotalPrice
		}
		if patch.Notes != nil {
			item.Notes = *patch.Notes
		}
		reprice(o, tipPercentage)
		return nil
	})
}

func (r *OrderRepository) CloseOrder(_ context.Context, id string, tipPercentage float64, withTip bool) (*models.Order, error) {
	return r.mutate(id, func(o *models.Order) error {
		totals := pricing.Totals(o.Items, tipPercentage, withTip)
		closedAt := r.s.now()
		o.Subtotal, o.Tip, o.Total = totals.Subtotal, totals.Tip, totals.Total
		o.Status = models.StatusBilled
		o.ClosedAt = &closedAt
		return nil
	})
}

func (r *OrderRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.s.orders[id]; !ok {
		return notFound("order", id)
	}
	delete(r.s.orders, id)
	return nil
}

func (r *OrderRepository) CalculateTotals(ctx context.Context, id string, tipPercentage float64) (models.OrderTotals, error) {
	o, err := r.FindByID(ctx, id)
	if err != nil {
		return models.OrderTotals{}, err
	}
	return pricing.Totals(o.Items, tipPercentage, true), nil
}

// mutate applies the change to a copy under the write lock and stores it only
// when apply succeeds. Billed orders are rejected.
func (r *OrderRepository) mutate(id string, apply func(*models.Order) error) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	stored, ok := r.s.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	if stored.Status == models.StatusBilled {
		return nil, fmt.Errorf("%w: order %s is already billed", models.ErrConflict, id)
	}
	o := cloneOrder(stored)
	if err := apply(&o); err != nil {
		return nil, err
	}
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) filter(keep func(models.Order) bool) []models.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func reprice(o *models.Order, tipPercentage float64) {
	totals := pricing.Totals(o.Items, tipPercentage, true)
	o.Subtotal, o.Tip, o.Total = totals.Subtotal, totals.Tip, totals.Total
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	if o.ClosedAt != nil {
		closedAt := *o.ClosedAt
		o.ClosedAt = &closedAt
	}
	return o
}
