package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/pricing"
	"restaurant-system/internal/repository"
	"restaurant-system/internal/repository/memory"
)

type fixture struct {
	store    *memory.Store
	service  *Service
	recorder *events.Recorder
	table    *models.Table
	waiter   *models.Waiter
	burger   *models.Product
	fries    *models.Product
	retired  *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	f := &fixture{store: store, recorder: &events.Recorder{}}

	f.table = &models.Table{Number: 5, Status: models.TableFree, IsActive: true}
	mustNoErr(t, store.Tables().Create(ctx, f.table))

	f.waiter = &models.Waiter{FirstName: "Ana", LastName: "Lopez", IdentificationNumber: "100", UserName: "ana.lopez1"}
	mustNoErr(t, store.Waiters().Create(ctx, f.waiter))

	f.burger = &models.Product{Name: "Burger", Price: 10, IsActive: true, ImageURL: "https://img/burger.png"}
	f.fries = &models.Product{Name: "Fries", Price: 5, IsActive: true}
	f.retired = &models.Product{Name: "Old Soup", Price: 7, IsActive: false}
	for _, p := range []*models.Product{f.burger, f.fries, f.retired} {
		mustNoErr(t, store.Products().Create(ctx, p))
	}

	f.service = NewService(Repositories{
		Orders:   store.Orders(),
		Tables:   store.Tables(),
		Products: store.Products(),
		Waiters:  store.Waiters(),
	}, f.recorder, logger.Discard(), 10)

	return f
}

func (f *fixture) create(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.service.Create(context.Background(), &models.CreateOrderRequest{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items: []models.OrderItemRequest{
			{ProductID: f.burger.ID, Quantity: 2},
			{ProductID: f.fries.ID, Quantity: 1},
		},
	}, "test")
	mustNoErr(t, err)
	return order
}

func (f *fixture) tableStatus(t *testing.T) models.TableStatus {
	t.Helper()
	table, err := f.store.Tables().FindByID(context.Background(), f.table.ID)
	mustNoErr(t, err)
	return table.Status
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertTotals(t *testing.T, o *models.Order, subtotal, tip, total float64) {
	t.Helper()
	if o.Subtotal != subtotal || o.Tip != tip || o.Total != total {
		t.Fatalf("totals = %v/%v/%v, want %v/%v/%v", o.Subtotal, o.Tip, o.Total, subtotal, tip, total)
	}
	if got := pricing.Subtotal(o.Items); got != o.Subtotal {
		t.Fatalf("subtotal %v does not match item sum %v", o.Subtotal, got)
	}
	if pricing.Sum(o.Subtotal, o.Tip) != o.Total {
		t.Fatalf("total %v != subtotal %v + tip %v", o.Total, o.Subtotal, o.Tip)
	}
}

func TestOrderLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.create(t)
	assertTotals(t, order, 25, 2.5, 27.5)
	if order.Status != models.StatusInKitchen {
		t.Fatalf("status = %s, want in_kitchen", order.Status)
	}
	if f.tableStatus(t) != models.TableOccupied {
		t.Fatalf("table should be occupied after create")
	}
	if order.Items[0].ProductName != "Burger" || order.Items[0].UnitPrice != 10 || order.Items[0].ProductImage != "https://img/burger.png" {
		t.Fatalf("item snapshot not captured: %+v", order.Items[0])
	}

	order, err := f.service.AddItems(ctx, order.ID, []models.OrderItemRequest{{ProductID: f.fries.ID, Quantity: 1}}, "test")
	mustNoErr(t, err)
	assertTotals(t, order, 30, 3, 33)

	order, err = f.service.Close(ctx, order.ID, "no", "test")
	mustNoErr(t, err)
	assertTotals(t, order, 30, 0, 30)
	if order.Status != models.StatusBilled || order.ClosedAt == nil {
		t.Fatalf("order not billed: status=%s closedAt=%v", order.Status, order.ClosedAt)
	}
	if f.tableStatus(t) != models.TableFree {
		t.Fatalf("table should be free after close")
	}

	if _, err := f.service.Close(ctx, order.ID, "no", "test"); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second close error = %v, want ErrConflict", err)
	}
}

func TestSnapshotSurvivesMenuChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	f.burger.Price = 99
	f.burger.Name = "Deluxe Burger"
	mustNoErr(t, f.store.Products().Update(ctx, f.burger))

	got, err := f.service.Get(ctx, order.ID)
	mustNoErr(t, err)
	if got.Items[0].UnitPrice != 10 || got.Items[0].ProductName != "Burger" {
		t.Fatalf("historical item changed with the menu: %+v", got.Items[0])
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, req *models.CreateOrderRequest)
		wantErr error
	}{
		{
			name: "table not found",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.TableID = "missing"
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "waiter not found",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.WaiterID = "missing"
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "product not found",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.Items = append(req.Items, models.OrderItemRequest{ProductID: "missing", Quantity: 1})
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "inactive product",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.Items = []models.OrderItemRequest{{ProductID: f.retired.ID, Quantity: 1}}
			},
			wantErr: models.ErrInvalidInput,
		},
		{
			name: "zero quantity",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.Items = []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 0}}
			},
			wantErr: models.ErrInvalidInput,
		},
		{
			name: "no items",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				req.Items = nil
			},
			wantErr: models.ErrInvalidInput,
		},
		{
			name: "table occupied",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				_, _ = f.store.Tables().UpdateStatus(context.Background(), f.table.ID, models.TableOccupied)
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "inactive table",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				retired := *f.table
				retired.IsActive = false
				_ = f.store.Tables().Update(context.Background(), &retired)
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "table free but active order exists",
			mutate: func(f *fixture, req *models.CreateOrderRequest) {
				f.store.PutOrder(models.Order{ID: "stale", TableID: f.table.ID, WaiterID: f.waiter.ID, Status: models.StatusDelivered})
			},
			wantErr: models.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := &models.CreateOrderRequest{
				TableID:  f.table.ID,
				WaiterID: f.waiter.ID,
				Items:    []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 1}},
			}
			tt.mutate(f, req)

			_, err := f.service.Create(context.Background(), req, "test")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.recorder.Events) != 0 {
				t.Fatalf("no event expected on failure, got %d", len(f.recorder.Events))
			}
		})
	}
}

func TestCreateOnOccupiedTableAfterCreate(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	_, err := f.service.Create(context.Background(), &models.CreateOrderRequest{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items:    []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 1}},
	}, "test")
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	f := newFixture(t)
	req := &models.CreateOrderRequest{
		TableID:  f.table.ID,
		WaiterID: f.waiter.ID,
		Items:    []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 1}},
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), req, "test")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("successes=%d conflicts=%d, want 1/%d", ok, conflicts, workers-1)
	}

	active, err := f.store.Orders().FindActive(context.Background())
	mustNoErr(t, err)
	if len(active) != 1 {
		t.Fatalf("active orders = %d, want 1", len(active))
	}
}

func TestCreateLocksOnlyStoredTables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"missing", "table-404", "6f1c1e4e-5b36-4d55-9c2b-6c1f3f6a0c11"} {
		_, err := f.service.Create(ctx, &models.CreateOrderRequest{
			TableID:  id,
			WaiterID: f.waiter.ID,
			Items:    []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 1}},
		}, "test")
		if !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("table %q error = %v, want ErrNotFound", id, err)
		}
	}
	if n := countLocks(f.service); n != 0 {
		t.Fatalf("unknown tables left %d locks", n)
	}

	f.create(t)
	if n := countLocks(f.service); n != 1 {
		t.Fatalf("locks = %d, want 1", n)
	}
}

func countLocks(s *Service) int {
	var n int
	s.tableLocks.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func TestItemMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)
	burgerLine := order.Items[0].ID

	three := 3
	order, err := f.service.UpdateItem(ctx, order.ID, burgerLine, &models.UpdateOrderItemRequest{Quantity: &three}, "test")
	mustNoErr(t, err)
	item, _ := order.FindItem(burgerLine)
	if item.TotalPrice != 30 {
		t.Fatalf("line total = %v, want 30", item.TotalPrice)
	}
	assertTotals(t, order, 35, 3.5, 38.5)

	notes := "no pickles"
	order, err = f.service.UpdateItem(ctx, order.ID, burgerLine, &models.UpdateOrderItemRequest{Notes: &notes}, "test")
	mustNoErr(t, err)
	item, _ = order.FindItem(burgerLine)
	if item.Notes != notes || item.Quantity != 3 {
		t.Fatalf("notes update changed item unexpectedly: %+v", item)
	}

	unchanged, err := f.service.RemoveItem(ctx, order.ID, "missing-item", "test")
	mustNoErr(t, err)
	if len(unchanged.Items) != 2 {
		t.Fatalf("removing an unknown item changed the order")
	}

	order, err = f.service.RemoveItem(ctx, order.ID, burgerLine, "test")
	mustNoErr(t, err)
	assertTotals(t, order, 5, 0.5, 5.5)

	if _, err := f.service.UpdateItem(ctx, order.ID, "missing-item", &models.UpdateOrderItemRequest{Notes: &notes}, "test"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("update unknown item error = %v, want ErrNotFound", err)
	}

	zero := 0
	if _, err := f.service.UpdateItem(ctx, order.ID, order.Items[0].ID, &models.UpdateOrderItemRequest{Quantity: &zero}, "test"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("zero quantity error = %v, want ErrInvalidInput", err)
	}

	if _, err := f.service.AddItems(ctx, order.ID, []models.OrderItemRequest{{ProductID: f.retired.ID, Quantity: 1}}, "test"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("add inactive product error = %v, want ErrInvalidInput", err)
	}
}

func TestBilledOrderIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)
	_, err := f.service.Close(ctx, order.ID, "yes", "test")
	mustNoErr(t, err)

	one := 1
	checks := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"add items", func() error {
			_, err := f.service.AddItems(ctx, order.ID, []models.OrderItemRequest{{ProductID: f.fries.ID, Quantity: 1}}, "test")
			return err
		}, models.ErrConflict},
		{"remove item", func() error {
			_, err := f.service.RemoveItem(ctx, order.ID, order.Items[0].ID, "test")
			return err
		}, models.ErrConflict},
		{"update item", func() error {
			_, err := f.service.UpdateItem(ctx, order.ID, order.Items[0].ID, &models.UpdateOrderItemRequest{Quantity: &one}, "test")
			return err
		}, models.ErrConflict},
		{"update status", func() error {
			_, err := f.service.UpdateStatus(ctx, order.ID, "delivered", "test")
			return err
		}, models.ErrInvalidStateTransition},
		{"close", func() error {
			_, err := f.service.Close(ctx, order.ID, "yes", "test")
			return err
		}, models.ErrConflict},
	}

	for _, tt := range checks {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	stored, err := f.service.Get(ctx, order.ID)
	mustNoErr(t, err)
	assertTotals(t, stored, 25, 2.5, 27.5)
}

func TestAddItemsFailureLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)
	events := len(f.recorder.Events)

	diskFull := errors.New("disk full")
	f.store.FailNext = diskFull
	_, err := f.service.AddItems(ctx, order.ID, []models.OrderItemRequest{
		{ProductID: f.burger.ID, Quantity: 1},
		{ProductID: f.fries.ID, Quantity: 4},
	}, "test")
	if !errors.Is(err, diskFull) {
		t.Fatalf("error = %v, want %v", err, diskFull)
	}

	stored, err := f.service.Get(ctx, order.ID)
	mustNoErr(t, err)
	if len(stored.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(stored.Items))
	}
	assertTotals(t, stored, 25, 2.5, 27.5)
	if len(f.recorder.Events) != events {
		t.Fatal("failed write must not emit an event")
	}

	added, err := f.service.AddItems(ctx, order.ID, []models.OrderItemRequest{
		{ProductID: f.burger.ID, Quantity: 1},
		{ProductID: f.fries.ID, Quantity: 4},
	}, "test")
	mustNoErr(t, err)
	if len(added.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(added.Items))
	}
	assertTotals(t, added, 55, 5.5, 60.5)
}

// racingOrders bills the order right after the service has read it, as a
// concurrent close on another request would
type racingOrders struct {
	repository.OrderRepository
	once sync.Once
}

func (r *racingOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.OrderRepository.FindByID(ctx, id)
	r.once.Do(func() {
		_, _ = r.OrderRepository.CloseOrder(ctx, id, 10, false)
	})
	return order, err
}

func TestWritesRacingCloseAreRejected(t *testing.T) {
	one := 1
	tests := []struct {
		name    string
		call    func(ctx context.Context, s *Service, f *fixture, order *models.Order) error
		wantErr error
	}{
		{"add items", func(ctx context.Context, s *Service, f *fixture, order *models.Order) error {
			_, err := s.AddItems(ctx, order.ID, []models.OrderItemRequest{{ProductID: f.burger.ID, Quantity: 3}}, "test")
			return err
		}, models.ErrConflict},
		{"update item", func(ctx context.Context, s *Service, f *fixture, order *models.Order) error {
			_, err := s.UpdateItem(ctx, order.ID, order.Items[0].ID, &models.UpdateOrderItemRequest{Quantity: &one}, "test")
			return err
		}, models.ErrConflict},
		{"remove item", func(ctx context.Context, s *Service, f *fixture, order *models.Order) error {
			_, err := s.RemoveItem(ctx, order.ID, order.Items[0].ID, "test")
			return err
		}, models.ErrConflict},
		{"update status", func(ctx context.Context, s *Service, f *fixture, order *models.Order) error {
			_, err := s.UpdateStatus(ctx, order.ID, "delivered", "test")
			return err
		}, models.ErrInvalidStateTransition},
		{"second close", func(ctx context.Context, s *Service, f *fixture, order *models.Order) error {
			_, err := s.Close(ctx, order.ID, "yes", "test")
			return err
		}, models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			order := f.create(t)

			racing := NewService(Repositories{
				Orders:   &racingOrders{OrderRepository: f.store.Orders()},
				Tables:   f.store.Tables(),
				Products: f.store.Products(),
				Waiters:  f.store.Waiters(),
			}, f.recorder, logger.Discard(), 10)

			if err := tt.call(ctx, racing, f, order); !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}

			// the concurrent close without tip is what stays billed
			stored, err := f.store.Orders().FindByID(ctx, order.ID)
			mustNoErr(t, err)
			if stored.Status != models.StatusBilled || len(stored.Items) != 2 {
				t.Fatalf("status = %s, items = %d", stored.Status, len(stored.Items))
			}
			assertTotals(t, stored, 25, 0, 25)
			if last := f.recorder.Last(); last.Type != models.EventOrderCreated {
				t.Fatalf("rejected write emitted %s", last.Type)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{"to delivered", "delivered", nil},
		{"back to kitchen", "in_kitchen", nil},
		{"billed only through close", "billed", models.ErrInvalidStateTransition},
		{"unknown status", "served", models.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.service.UpdateStatus(ctx, order.ID, tt.status, "test")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			mustNoErr(t, err)
			if string(got.Status) != tt.status {
				t.Fatalf("status = %s, want %s", got.Status, tt.status)
			}
		})
	}

	if _, err := f.service.UpdateStatus(ctx, "missing", "delivered", "test"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing order error = %v, want ErrNotFound", err)
	}
}

func TestCloseWithTipAndBadFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	if _, err := f.service.Close(ctx, order.ID, "maybe", "test"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}

	closed, err := f.service.Close(ctx, order.ID, "yes", "test")
	mustNoErr(t, err)
	assertTotals(t, closed, 25, 2.5, 27.5)
}

type failingTables struct {
	repository.TableRepository
	err error
}

func (f failingTables) UpdateStatus(context.Context, string, models.TableStatus) (*models.Table, error) {
	return nil, f.err
}

func TestCloseSurfacesTableReleaseFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	broken := NewService(Repositories{
		Orders:   f.store.Orders(),
		Tables:   failingTables{TableRepository: f.store.Tables(), err: errors.New("connection reset")},
		Products: f.store.Products(),
		Waiters:  f.store.Waiters(),
	}, f.recorder, logger.Discard(), 10)

	closed, err := broken.Close(ctx, order.ID, "no", "test")
	if !errors.Is(err, models.ErrInconsistentState) {
		t.Fatalf("error = %v, want ErrInconsistentState", err)
	}
	if closed == nil || closed.Status != models.StatusBilled {
		t.Fatalf("expected the billed order alongside the error")
	}
	if f.tableStatus(t) != models.TableOccupied {
		t.Fatalf("table status should be unchanged when release fails")
	}
}

func TestGenerateBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	bill, err := f.service.GenerateBill(ctx, order.ID, "yes")
	mustNoErr(t, err)
	if !bill.IsPreBill || bill.Tip != 2.5 || bill.Total != 27.5 || bill.TipPercentage != 10 {
		t.Fatalf("unexpected pre-bill: %+v", bill)
	}
	if bill.TableNumber != 5 || bill.WaiterName != "Ana Lopez" {
		t.Fatalf("unexpected bill header: %+v", bill)
	}

	bill, err = f.service.GenerateBill(ctx, order.ID, "no")
	mustNoErr(t, err)
	if bill.Tip != 0 || bill.Total != 25 || bill.TipPercentage != 0 {
		t.Fatalf("unexpected pre-bill without tip: %+v", bill)
	}

	stored, err := f.service.Get(ctx, order.ID)
	mustNoErr(t, err)
	if stored.Status != models.StatusInKitchen || stored.Tip != 2.5 {
		t.Fatalf("GenerateBill mutated the order: %+v", stored)
	}

	_, err = f.service.Close(ctx, order.ID, "no", "test")
	mustNoErr(t, err)
	bill, err = f.service.GenerateBill(ctx, order.ID, "yes")
	mustNoErr(t, err)
	if bill.IsPreBill || bill.Tip != 0 || bill.Total != 25 {
		t.Fatalf("final bill should reflect stored amounts: %+v", bill)
	}

	if _, err := f.service.GenerateBill(ctx, "missing", "yes"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing order error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	if err := f.service.Delete(ctx, order.ID, "test"); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("delete open order error = %v, want ErrConflict", err)
	}

	_, err := f.service.Close(ctx, order.ID, "yes", "test")
	mustNoErr(t, err)
	mustNoErr(t, f.service.Delete(ctx, order.ID, "test"))

	if _, err := f.service.Get(ctx, order.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("deleted order still found: %v", err)
	}
	if last := f.recorder.Last(); last.Type != models.EventOrderDeleted || last.Families[0] != models.FamilyAll {
		t.Fatalf("unexpected delete event: %+v", last)
	}
}

func TestEventsCarryAffectedFamilies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	_, err := f.service.UpdateStatus(ctx, order.ID, "delivered", "req-1")
	mustNoErr(t, err)
	_, err = f.service.Close(ctx, order.ID, "yes", "req-2")
	mustNoErr(t, err)

	want := []struct {
		eventType models.EventType
		has       models.MetricFamily
	}{
		{models.EventOrderCreated, models.FamilyTables},
		{models.EventOrderStatusChanged, models.FamilyRealtime},
		{models.EventOrderClosed, models.FamilyFinancial},
	}
	if len(f.recorder.Events) != len(want) {
		t.Fatalf("events = %d, want %d", len(f.recorder.Events), len(want))
	}
	for i, w := range want {
		ev := f.recorder.Events[i]
		if ev.Type != w.eventType {
			t.Fatalf("event %d type = %s, want %s", i, ev.Type, w.eventType)
		}
		found := false
		for _, fam := range ev.Families {
			if fam == w.has {
				found = true
			}
		}
		if !found {
			t.Fatalf("event %s missing family %s: %v", ev.Type, w.has, ev.Families)
		}
	}
	if f.recorder.Last().RequestID != "req-2" {
		t.Fatalf("request id not propagated to event")
	}
}

func TestActiveByTableBackfillsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t)

	f.fries.ImageURL = "https://img/fries.png"
	mustNoErr(t, f.store.Products().Update(ctx, f.fries))

	active, err := f.service.ActiveByTable(ctx, f.table.ID)
	mustNoErr(t, err)
	if active.Items[1].ProductImage != "https://img/fries.png" {
		t.Fatalf("image not backfilled: %+v", active.Items[1])
	}
	if active.Items[0].ProductImage != "https://img/burger.png" {
		t.Fatalf("existing snapshot overwritten: %+v", active.Items[0])
	}

	if _, err := f.service.ListByStatus(ctx, "bogus"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("ListByStatus error = %v, want ErrInvalidInput", err)
	}
}
