package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/models"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_one_active_per_table"}, models.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}, models.ErrInvalidInput},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "order_items_quantity_check"}, models.ErrInvalidInput},
		{"already mapped", fmt.Errorf("%w: order item x", models.ErrNotFound), models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapError(tt.err, "order", "1"); !errors.Is(got, tt.want) {
				t.Fatalf("mapError() = %v, want %v", got, tt.want)
			}
		})
	}

	if mapError(nil, "order", "1") != nil {
		t.Fatal("nil error should stay nil")
	}

	other := errors.New("connection reset")
	got := mapError(other, "order", "1")
	if !errors.Is(got, other) || errors.Is(got, models.ErrNotFound) {
		t.Fatalf("unexpected mapping of unknown error: %v", got)
	}
}

func TestValidID(t *testing.T) {
	if validID("not-a-uuid") || validID("") {
		t.Fatal("malformed ids must be rejected")
	}
	if !validID("6f1c1e4e-5b36-4d55-9c2b-6c1f3f6a0c11") {
		t.Fatal("uuid rejected")
	}
}

// newTestPool connects to POS_TEST_DATABASE_URL, a migrated and disposable
// database. The test is skipped when the variable is unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("POS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POS_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestOrderRepositoryLifecycle(t *testing.T) {
	pool := newTestPool(t)
	repos := New(pool)
	ctx := context.Background()

	table := &models.Table{Number: int(time.Now().UnixNano()%1_000_000) + 1000, Status: models.TableFree, IsActive: true}
	if err := repos.Tables.Create(ctx, table); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repos.Tables.Delete(ctx, table.ID) })

	order := &models.Order{
		TableID:  table.ID,
		WaiterID: "6f1c1e4e-5b36-4d55-9c2b-6c1f3f6a0c11",
		Status:   models.StatusInKitchen,
		Items: []models.OrderItem{
			{ProductID: "0b8f7c59-3f8a-4c43-a7f1-0f8d3c5f8f10", ProductName: "Burger", Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		},
		Subtotal: 20, Tip: 2, Total: 22,
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repos.Orders.Delete(ctx, order.ID) })

	second := &models.Order{TableID: table.ID, WaiterID: order.WaiterID, Status: models.StatusInKitchen}
	if err := repos.Orders.Create(ctx, second); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second active order error = %v, want ErrConflict", err)
	}

	fries := models.OrderItem{
		ProductID: "0b8f7c59-3f8a-4c43-a7f1-0f8d3c5f8f11", ProductName: "Fries", Quantity: 1, UnitPrice: 5, TotalPrice: 5,
	}
	updated, err := repos.Orders.AddItems(ctx, order.ID, []models.OrderItem{fries}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Items) != 2 || updated.Items[0].ProductName != "Burger" {
		t.Fatalf("items = %+v", updated.Items)
	}
	if updated.Subtotal != 25 || updated.Tip != 2.5 || updated.Total != 27.5 {
		t.Fatalf("stored totals = %v/%v/%v", updated.Subtotal, updated.Tip, updated.Total)
	}

	// the second line violates the quantity check, so neither line is stored
	broken := []models.OrderItem{fries, {ProductID: fries.ProductID, ProductName: "Fries", Quantity: 0, UnitPrice: 5}}
	if _, err := repos.Orders.AddItems(ctx, order.ID, broken, 10); err == nil {
		t.Fatal("expected batch insert to fail")
	}

	totals, err := repos.Orders.CalculateTotals(ctx, order.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Subtotal != 25 || totals.Tip != 2.5 || totals.Total != 27.5 {
		t.Fatalf("totals = %+v", totals)
	}

	if _, err := repos.Orders.UpdateItem(ctx, order.ID, "6f1c1e4e-0000-4d55-9c2b-6c1f3f6a0c11", models.ItemPatch{}, 10); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("update missing item error = %v", err)
	}

	closed, err := repos.Orders.CloseOrder(ctx, order.ID, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != models.StatusBilled || closed.ClosedAt == nil {
		t.Fatalf("closed = %+v", closed)
	}
	if closed.Subtotal != 25 || closed.Tip != 0 || closed.Total != 25 {
		t.Fatalf("closed totals = %v/%v/%v", closed.Subtotal, closed.Tip, closed.Total)
	}
	if _, err := repos.Orders.FindActiveByTableID(ctx, table.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("active after close error = %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"close", func() error { _, err := repos.Orders.CloseOrder(ctx, order.ID, 10, true); return err }},
		{"add items", func() error { _, err := repos.Orders.AddItems(ctx, order.ID, []models.OrderItem{fries}, 10); return err }},
		{"status", func() error { _, err := repos.Orders.UpdateStatus(ctx, order.ID, models.StatusDelivered); return err }},
	}
	for _, tt := range tests {
		t.Run("billed order rejects "+tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, models.ErrConflict) {
				t.Fatalf("error = %v, want ErrConflict", err)
			}
		})
	}
	again, err := repos.Orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Total != 25 || len(again.Items) != 2 {
		t.Fatalf("billed order changed: total %v, %d items", again.Total, len(again.Items))
	}
}
