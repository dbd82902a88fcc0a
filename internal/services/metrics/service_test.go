package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"restaurant-system/internal/cache"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository/memory"
)

var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type env struct {
	store   *memory.Store
	cache   *cache.Memory
	service *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	gateway := cache.NewMemory()

	svc := NewService(Repositories{
		Orders:     store.Orders(),
		Tables:     store.Tables(),
		Waiters:    store.Waiters(),
		Products:   store.Products(),
		Categories: store.Categories(),
	}, gateway, logger.Discard(), Options{
		CacheTTL:         5 * time.Minute,
		RealTimeCacheTTL: time.Minute,
		Location:         time.UTC,
	})
	svc.now = func() time.Time { return at(20, 0) }

	return &env{store: store, cache: gateway, service: svc}
}

func (e *env) waiter(t *testing.T, id, first, last string) {
	t.Helper()
	err := e.store.Waiters().Create(context.Background(), &models.Waiter{
		ID: id, FirstName: first, LastName: last, IdentificationNumber: id, UserName: id,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (e *env) product(t *testing.T, id, name, categoryID string) {
	t.Helper()
	err := e.store.Products().Create(context.Background(), &models.Product{
		ID: id, Name: name, CategoryID: categoryID, Price: 10, IsActive: true, ImageURL: "https://img/" + id,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (e *env) order(id, waiterID string, createdAt time.Time, tip float64, items ...models.OrderItem) {
	var subtotal float64
	for _, item := range items {
		subtotal += item.TotalPrice
	}
	e.store.PutOrder(models.Order{
		ID:        id,
		TableID:   "t1",
		WaiterID:  waiterID,
		Status:    models.StatusBilled,
		Items:     items,
		Subtotal:  subtotal,
		Tip:       tip,
		Total:     subtotal + tip,
		CreatedAt: createdAt,
	})
}

func line(productID string, qty int, unit float64) models.OrderItem {
	return models.OrderItem{
		ID:          productID + "-line",
		ProductID:   productID,
		ProductName: productID,
		Quantity:    qty,
		UnitPrice:   unit,
		TotalPrice:  unit * float64(qty),
	}
}

func TestNormalize(t *testing.T) {
	in := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	start, end := normalize(in, in, time.UTC)

	wantStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 5, 1, 23, 59, 59, 999_000_000, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("normalize() = %s, %s; want %s, %s", start, end, wantStart, wantEnd)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"day", "2024-05-01", day, false},
		{"rfc3339", "2024-05-01T15:04:05Z", time.Date(2024, 5, 1, 15, 4, 5, 0, time.UTC), false},
		{"garbage", "yesterday", time.Time{}, true},
		{"wrong layout", "01/05/2024", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.value, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, models.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCachedAndFreshPayloadsMatch(t *testing.T) {
	e := newEnv(t)
	e.waiter(t, "w1", "Ana", "Lopez")
	e.order("o1", "w1", at(9, 0), 2.5, line("burger", 2, 10), line("fries", 1, 5))
	e.order("o2", "w1", at(13, 30), 0, line("burger", 1, 10))

	ctx := context.Background()
	fresh, err := e.service.Sales(ctx, models.PeriodDay, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.FromCache {
		t.Fatal("first call should not come from cache")
	}
	if fresh.CacheKey != "metrics:sales:day:2024-05-01:2024-05-01" || fresh.CacheTTL != 300 {
		t.Fatalf("unexpected cache info: %+v", fresh.CacheInfo)
	}
	if fresh.TotalSales != 37.5 || fresh.TotalOrders != 2 || fresh.TotalTips != 2.5 || fresh.AverageOrderValue != 18.75 {
		t.Fatalf("unexpected totals: %+v", fresh)
	}

	hit, err := e.service.Sales(ctx, models.PeriodDay, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if !hit.FromCache {
		t.Fatal("second call should come from cache")
	}
	if !hit.CalculatedAt.Equal(fresh.CalculatedAt) {
		t.Errorf("calculatedAt changed on hit: %s vs %s", hit.CalculatedAt, fresh.CalculatedAt)
	}

	hit.FromCache = false
	a, _ := json.Marshal(fresh)
	b, _ := json.Marshal(hit)
	if string(a) != string(b) {
		t.Fatalf("payloads differ:\nfresh: %s\ncached: %s", a, b)
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCacheFailureFallsBackToCompute(t *testing.T) {
	e := newEnv(t)
	e.service.cache = brokenCache{}
	e.order("o1", "w1", at(9, 0), 0, line("burger", 1, 10))

	for i := 0; i < 2; i++ {
		got, err := e.service.Financial(context.Background(), models.PeriodDay, day, day)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got.FromCache || got.TotalRevenue != 10 {
			t.Fatalf("call %d: unexpected result %+v", i, got)
		}
	}

	if err := e.service.Invalidate(context.Background(), "test", models.FamilyAll); err == nil {
		t.Fatal("expected invalidation error from a broken cache")
	}
}

func TestProductHighlights(t *testing.T) {
	e := newEnv(t)
	e.product(t, "burger", "Burger", "")
	e.product(t, "fries", "Fries", "")
	e.order("o1", "w1", at(9, 0), 0, line("burger", 3, 10), line("fries", 1, 5), line("gone", 9, 1))
	e.order("o2", "w1", at(12, 0), 0, line("fries", 1, 5))

	ctx := context.Background()

	most, err := e.service.MostSoldProduct(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if most.Product == nil || most.Product.Name != "Burger" || most.Product.TotalSold != 3 {
		t.Fatalf("most sold = %+v, want Burger x3 (dangling product skipped)", most.Product)
	}

	least, err := e.service.LeastSoldProduct(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if least.Product == nil || least.Product.Name != "Fries" || least.Product.TotalSold != 2 {
		t.Fatalf("least sold = %+v, want Fries x2", least.Product)
	}

	empty := day.AddDate(0, 1, 0)
	none, err := e.service.MostSoldProduct(ctx, empty, empty)
	if err != nil {
		t.Fatal(err)
	}
	if none.Product != nil {
		t.Fatalf("most sold over an empty range = %+v, want nil", none.Product)
	}

	again, err := e.service.MostSoldProduct(ctx, empty, empty)
	if err != nil {
		t.Fatal(err)
	}
	if !again.FromCache || again.Product != nil {
		t.Fatalf("cached empty result = %+v", again)
	}
}

func TestPeakHours(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 24; i++ {
		e.order("busy-"+string(rune('a'+i)), "w1", at(10, i), 0, line("burger", 1, 10))
	}
	e.order("quiet", "w1", at(11, 0), 0, line("burger", 1, 10))
	e.order("tomorrow", "w1", day.AddDate(0, 0, 1).Add(10*time.Hour), 0, line("burger", 1, 10))

	got, err := e.service.PeakHours(context.Background(), at(15, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got.Date != "2024-05-01" || got.CacheKey != "metrics:peakhours:2024-05-01" {
		t.Fatalf("unexpected date/key: %s %s", got.Date, got.CacheKey)
	}
	if len(got.HourlyActivity) != 24 || len(got.PeakHours) != 24 {
		t.Fatalf("expected 24 buckets")
	}
	if got.HourlyActivity[10].Orders != 24 || got.HourlyActivity[10].Sales != 240 {
		t.Fatalf("hour 10 = %+v", got.HourlyActivity[10])
	}

	tests := []struct {
		hour int
		want models.Activity
	}{
		{0, models.ActivityLow},
		{10, models.ActivityHigh},
		{11, models.ActivityMedium},
		{23, models.ActivityLow},
	}
	for _, tt := range tests {
		if got.PeakHours[tt.hour].Activity != tt.want {
			t.Errorf("hour %d activity = %s, want %s", tt.hour, got.PeakHours[tt.hour].Activity, tt.want)
		}
	}
}

func TestHourlyFlow(t *testing.T) {
	e := newEnv(t)
	e.order("early", "w1", at(6, 59), 0, line("a", 1, 1))
	e.order("big", "w1", at(8, 5), 0, line("a", 1, 1), line("b", 1, 1), line("c", 1, 1), line("d", 1, 1))
	e.order("small", "w1", at(8, 40), 0, line("a", 1, 1))
	e.order("late", "w1", at(19, 59), 0, line("a", 1, 1))
	e.order("closed", "w1", at(20, 0), 0, line("a", 1, 1))

	got, err := e.service.HourlyFlow(context.Background(), day)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.HourlyFlow) != 13 || got.StartHour != 7 || got.EndHour != 19 {
		t.Fatalf("unexpected window: %d entries %d-%d", len(got.HourlyFlow), got.StartHour, got.EndHour)
	}
	eight := got.HourlyFlow[1]
	if eight.HourLabel != "08:00" || eight.OrdersCount != 2 || eight.CustomersServed != 3 {
		t.Fatalf("08:00 = %+v", eight)
	}
	if got.TotalOrdersInRange != 3 {
		t.Fatalf("totalOrdersInRange = %d, want 3", got.TotalOrdersInRange)
	}
	if got.PeakHour != 8 || got.PeakHourLabel != "08:00" {
		t.Fatalf("peak = %d %s", got.PeakHour, got.PeakHourLabel)
	}

	empty, err := e.service.HourlyFlow(context.Background(), day.AddDate(0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	if empty.PeakHour != 7 || empty.TotalOrdersInRange != 0 {
		t.Fatalf("empty day peak = %d total = %d", empty.PeakHour, empty.TotalOrdersInRange)
	}
}

func TestProductsCategoryResolution(t *testing.T) {
	e := newEnv(t)
	e.store.PutCategory(models.Category{ID: "c-main", Name: "Mains"})
	e.product(t, "burger", "Burger", "c-main")
	e.product(t, "soup", "Soup", "c-missing")
	e.order("o1", "w1", at(9, 0), 0, line("burger", 3, 10), line("soup", 1, 10))

	got, err := e.service.Products(context.Background(), models.PeriodWeek, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.TopProducts) != 2 || got.TopProducts[0].ProductID != "burger" || got.TopProducts[0].Category != "Mains" {
		t.Fatalf("top products = %+v", got.TopProducts)
	}
	if got.TopProducts[0].PercentageOfTotal != 75 || got.TopProducts[1].Category != "Uncategorized" {
		t.Fatalf("top products = %+v", got.TopProducts)
	}
	if len(got.CategoryBreakdown) != 2 || got.CategoryBreakdown[0].Category != "Mains" || got.CategoryBreakdown[0].PercentageOfTotal != 75 {
		t.Fatalf("breakdown = %+v", got.CategoryBreakdown)
	}

	report, err := e.service.ProductReport(context.Background(), day, day)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalSales != 40 || report.TotalProducts != 2 || len(report.Categories) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.Categories[0].Products[0].AveragePrice != 10 {
		t.Fatalf("average price = %v", report.Categories[0].Products[0].AveragePrice)
	}
}

func TestWaiterMetrics(t *testing.T) {
	e := newEnv(t)
	e.waiter(t, "w1", "Ana", "Lopez")
	e.waiter(t, "w2", "Luis", "Perez")
	e.order("o1", "w1", at(9, 0), 3, line("burger", 3, 10))
	e.order("o2", "w2", at(10, 0), 1, line("burger", 1, 10))
	e.order("o3", "ghost", at(11, 0), 0, line("burger", 1, 10))

	ctx := context.Background()

	perf, err := e.service.WaiterPerformance(ctx, "w1", day, day)
	if err != nil {
		t.Fatal(err)
	}
	if perf.WaiterName != "Ana Lopez" || perf.TotalSales != 33 || len(perf.OrdersByDay) != 1 {
		t.Fatalf("performance = %+v", perf)
	}

	if _, err := e.service.WaiterPerformance(ctx, "nobody", day, day); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown waiter error = %v, want ErrNotFound", err)
	}
	if _, err := e.service.WaiterReport(ctx, "nobody", day, day); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown waiter report error = %v, want ErrNotFound", err)
	}

	all, err := e.service.AllWaitersPerformance(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if all.TotalWaiters != 2 || all.TotalSales != 44 || all.TotalOrders != 2 {
		t.Fatalf("all waiters = %+v", all)
	}
	if all.Waiters[0].PercentageOfTotalSales+all.Waiters[1].PercentageOfTotalSales != 100 {
		t.Fatalf("shares = %+v", all.Waiters)
	}

	report, err := e.service.SalesReport(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]string{}
	for _, o := range report.Orders {
		names[o.ID] = o.WaiterName
	}
	if names["o3"] != "Unknown" || names["o1"] != "Ana Lopez" {
		t.Fatalf("report waiter names = %v", names)
	}

	fin, err := e.service.Financial(ctx, models.PeriodDay, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if fin.TotalRevenue != 54 || fin.TotalTips != 4 || fin.AverageTipPercentage != 7.41 {
		t.Fatalf("financial = %+v", fin)
	}
}

func TestTablesAndRealtime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i, status := range []models.TableStatus{models.TableFree, models.TableOccupied, models.TableFree} {
		if err := e.store.Tables().Create(ctx, &models.Table{Number: i + 1, Status: status, IsActive: true}); err != nil {
			t.Fatal(err)
		}
	}
	e.waiter(t, "w1", "Ana", "Lopez")
	e.order("o1", "w1", at(9, 0), 0, line("a", 6, 1), line("b", 5, 1), line("c", 4, 1), line("d", 3, 1), line("e", 2, 1), line("f", 1, 1))
	e.order("yesterday", "w1", day.Add(-time.Hour), 0, line("a", 1, 1))

	tables, err := e.service.Tables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tables.TotalTables != 3 || tables.OccupiedTables != 1 || tables.FreeTables != 2 || tables.CacheTTL != 60 {
		t.Fatalf("tables = %+v", tables)
	}

	rt, err := e.service.Realtime(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rt.TodayOrders != 1 || rt.TodaySales != 21 || rt.OccupiedTables != 1 || rt.ActiveWaiters != 1 {
		t.Fatalf("realtime = %+v", rt)
	}
	if len(rt.TopProducts) != 5 || rt.TopProducts[0].ProductID != "a" {
		t.Fatalf("top products = %+v", rt.TopProducts)
	}
}

func TestInvalidatePatterns(t *testing.T) {
	all := Patterns(models.FamilyAll)
	if len(all) != 12 {
		t.Fatalf("all patterns = %v", all)
	}

	tests := []struct {
		family models.MetricFamily
		want   []string
	}{
		{models.FamilyTables, []string{"metrics:tables"}},
		{models.FamilyWaiter, []string{"metrics:waiter:*", "metrics:allwaiters:*"}},
		{models.FamilyProducts, []string{"metrics:products:*", "metrics:mostsold:*", "metrics:leastsold:*"}},
		{models.FamilyReports, []string{"metrics:report:*", "metrics:hourlyflow:*"}},
	}
	for _, tt := range tests {
		got := Patterns(tt.family)
		if len(got) != len(tt.want) {
			t.Fatalf("%s patterns = %v, want %v", tt.family, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s patterns = %v, want %v", tt.family, got, tt.want)
			}
		}
	}

	if got := Patterns(models.FamilySales, models.FamilySales); len(got) != 1 {
		t.Errorf("duplicate families should not repeat patterns: %v", got)
	}
}

func TestNotifyDropsAffectedFamilies(t *testing.T) {
	e := newEnv(t)
	e.product(t, "burger", "Burger", "")
	e.order("o1", "w1", at(9, 0), 0, line("burger", 1, 10))
	ctx := context.Background()

	if _, err := e.service.Sales(ctx, models.PeriodDay, day, day); err != nil {
		t.Fatal(err)
	}
	if _, err := e.service.MostSoldProduct(ctx, day, day); err != nil {
		t.Fatal(err)
	}
	if _, err := e.service.Tables(ctx); err != nil {
		t.Fatal(err)
	}

	e.service.Notify(ctx, models.NewEntityEvent(models.EventProductChanged, "burger", models.FamilyProducts, models.FamilyReports))

	keys := e.cache.Keys()
	sort.Strings(keys)
	want := []string{"metrics:sales:day:2024-05-01:2024-05-01", "metrics:tables"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("remaining keys = %v, want %v", keys, want)
	}

	e.service.Notify(ctx, models.NewOrderEvent(models.EventOrderDeleted, &models.Order{ID: "o1"}, models.FamilyAll))
	if keys := e.cache.Keys(); len(keys) != 0 {
		t.Fatalf("keys after invalidating all = %v", keys)
	}
}
