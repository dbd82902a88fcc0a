package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restaurant-system/internal/cache"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/monitoring"
	"restaurant-system/internal/repository"
)

type Repositories struct {
	Orders     repository.OrderRepository
	Tables     repository.TableRepository
	Waiters    repository.WaiterRepository
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
}

type Options struct {
	CacheTTL         time.Duration
	RealTimeCacheTTL time.Duration
	// Location defines day boundaries; defaults to time.Local
	Location *time.Location
}

// Service computes business metrics over orders and caches each result
// under a key derived from its parameters.
type Service struct {
	orders     repository.OrderRepository
	tables     repository.TableRepository
	waiters    repository.WaiterRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      cache.Gateway
	logger     *logger.Logger

	ttl         time.Duration
	realtimeTTL time.Duration
	loc         *time.Location
	now         func() time.Time
}

func NewService(repos Repositories, gateway cache.Gateway, log *logger.Logger, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		orders:      repos.Orders,
		tables:      repos.Tables,
		waiters:     repos.Waiters,
		products:    repos.Products,
		categories:  repos.Categories,
		cache:       gateway,
		logger:      log,
		ttl:         opts.CacheTTL,
		realtimeTTL: opts.RealTimeCacheTTL,
		loc:         loc,
		now:         time.Now,
	}
}

// Location returns the location used for day boundaries
func (s *Service) Location() *time.Location {
	return s.loc
}

type cacheable[T any] interface {
	*T
	SetCacheInfo(models.CacheInfo)
	GetCacheInfo() models.CacheInfo
}

// cached returns the stored result for key or computes and stores it. Cache
// failures never fail the request.
func cached[T any, PT cacheable[T]](ctx context.Context, s *Service, key string, ttl time.Duration, compute func(context.Context) (*T, error)) (*T, error) {
	info := models.CacheInfo{CacheKey: key, CacheTTL: int(ttl / time.Second)}

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var hit T
		jsonErr := json.Unmarshal(raw, &hit)
		if jsonErr == nil {
			monitoring.CacheRequests.WithLabelValues("hit").Inc()
			stored := PT(&hit)
			info.FromCache = true
			info.CalculatedAt = stored.GetCacheInfo().CalculatedAt
			stored.SetCacheInfo(info)
			return &hit, nil
		}
		s.logger.Warn("cache_decode_failed", "Discarding unreadable cache entry", "", map[string]interface{}{
			"key":   key,
			"error": jsonErr.Error(),
		})
		monitoring.CacheRequests.WithLabelValues("miss").Inc()
	case errors.Is(err, cache.ErrMiss):
		monitoring.CacheRequests.WithLabelValues("miss").Inc()
	default:
		monitoring.CacheRequests.WithLabelValues("error").Inc()
		s.logger.Warn("cache_read_failed", "Cache read failed, computing metrics", "", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	info.CalculatedAt = s.now().UTC()
	PT(result).SetCacheInfo(info)

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("cache_encode_failed", "Failed to encode metrics for cache", "", err, map[string]interface{}{
			"key": key,
		})
		return result, nil
	}
	if err := s.cache.Set(ctx, key, payload, ttl); err != nil {
		s.logger.Warn("cache_write_failed", "Failed to store metrics in cache", "", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	return result, nil
}

// Tables reports table occupancy
func (s *Service) Tables(ctx context.Context) (*models.TableMetrics, error) {
	return cached(ctx, s, keyTables, s.realtimeTTL, func(ctx context.Context) (*models.TableMetrics, error) {
		tables, err := s.tables.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		return tableMetrics(tables), nil
	})
}

// Realtime reports today's activity up to now
func (s *Service) Realtime(ctx context.Context) (*models.RealTimeMetrics, error) {
	return cached(ctx, s, keyRealtime, s.realtimeTTL, func(ctx context.Context) (*models.RealTimeMetrics, error) {
		now := s.now()
		orders, err := s.orders.FindByDateRange(ctx, startOfDay(now, s.loc), now)
		if err != nil {
			return nil, fmt.Errorf("list today's orders: %w", err)
		}
		tables, err := s.tables.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		waiters, err := s.waiters.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list waiters: %w", err)
		}
		return realtimeMetrics(orders, tables, waiters), nil
	})
}

func (s *Service) Sales(ctx context.Context, period models.Period, start, end time.Time) (*models.SalesMetrics, error) {
	key := s.rangeKey("metrics:sales:"+string(period), start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.SalesMetrics, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return salesMetrics(orders, period, start, end, s.loc), nil
	})
}

func (s *Service) WaiterPerformance(ctx context.Context, waiterID string, start, end time.Time) (*models.WaiterPerformance, error) {
	key := s.rangeKey("metrics:waiter:"+waiterID, start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.WaiterPerformance, error) {
		waiter, err := s.findWaiter(ctx, waiterID)
		if err != nil {
			return nil, err
		}
		from, to := normalize(start, end, s.loc)
		orders, err := s.orders.FindByWaiterAndDateRange(ctx, waiterID, from, to)
		if err != nil {
			return nil, fmt.Errorf("list waiter orders: %w", err)
		}
		return waiterPerformance(waiter, orders, s.loc), nil
	})
}

func (s *Service) AllWaitersPerformance(ctx context.Context, start, end time.Time) (*models.AllWaitersPerformance, error) {
	key := s.rangeKey("metrics:allwaiters", start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.AllWaitersPerformance, error) {
		waiters, err := s.waiters.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list waiters: %w", err)
		}
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return allWaitersPerformance(waiters, orders, start, end, s.loc), nil
	})
}

func (s *Service) Products(ctx context.Context, period models.Period, start, end time.Time) (*models.ProductMetrics, error) {
	key := s.rangeKey("metrics:products:"+string(period), start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.ProductMetrics, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		categoryOf, err := s.categoryResolver(ctx)
		if err != nil {
			return nil, err
		}
		return productMetrics(orders, categoryOf, period, start, end), nil
	})
}

// PeakHours classifies the 24 hours of a day by order count
func (s *Service) PeakHours(ctx context.Context, date time.Time) (*models.PeakHoursMetrics, error) {
	key := s.dayKeyFor("metrics:peakhours", date)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.PeakHoursMetrics, error) {
		orders, err := s.ordersIn(ctx, date, date)
		if err != nil {
			return nil, err
		}
		return peakHours(orders, dayKey(date, s.loc), s.loc), nil
	})
}

func (s *Service) Financial(ctx context.Context, period models.Period, start, end time.Time) (*models.FinancialMetrics, error) {
	key := s.rangeKey("metrics:financial:"+string(period), start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.FinancialMetrics, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return financialMetrics(orders, period, start, end, s.loc), nil
	})
}

func (s *Service) SalesReport(ctx context.Context, start, end time.Time) (*models.SalesReport, error) {
	key := s.rangeKey("metrics:report:sales", start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.SalesReport, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		waiters, err := s.waiters.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list waiters: %w", err)
		}
		tables, err := s.tables.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		return salesReport(orders, waiters, tables, start, end), nil
	})
}

func (s *Service) WaiterReport(ctx context.Context, waiterID string, start, end time.Time) (*models.WaiterReport, error) {
	key := s.rangeKey("metrics:report:waiter:"+waiterID, start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.WaiterReport, error) {
		waiter, err := s.findWaiter(ctx, waiterID)
		if err != nil {
			return nil, err
		}
		from, to := normalize(start, end, s.loc)
		orders, err := s.orders.FindByWaiterAndDateRange(ctx, waiterID, from, to)
		if err != nil {
			return nil, fmt.Errorf("list waiter orders: %w", err)
		}
		tables, err := s.tables.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		return waiterReport(waiter, orders, tables, start, end), nil
	})
}

func (s *Service) ProductReport(ctx context.Context, start, end time.Time) (*models.ProductReport, error) {
	key := s.rangeKey("metrics:report:products", start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.ProductReport, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		categoryOf, err := s.categoryResolver(ctx)
		if err != nil {
			return nil, err
		}
		return productReport(orders, categoryOf, start, end), nil
	})
}

// MostSoldProduct returns the product with the highest quantity that still
// exists; Product is nil when none does
func (s *Service) MostSoldProduct(ctx context.Context, start, end time.Time) (*models.ProductHighlight, error) {
	return s.highlight(ctx, "metrics:mostsold", start, end, true)
}

func (s *Service) LeastSoldProduct(ctx context.Context, start, end time.Time) (*models.ProductHighlight, error) {
	return s.highlight(ctx, "metrics:leastsold", start, end, false)
}

func (s *Service) highlight(ctx context.Context, prefix string, start, end time.Time, most bool) (*models.ProductHighlight, error) {
	key := s.rangeKey(prefix, start, end)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.ProductHighlight, error) {
		orders, err := s.ordersIn(ctx, start, end)
		if err != nil {
			return nil, err
		}
		for _, ranked := range rankByQuantity(orders, most) {
			product, err := s.products.FindByID(ctx, ranked.ProductID)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("find product: %w", err)
			}
			return &models.ProductHighlight{Product: &models.ProductSold{
				Name:      product.Name,
				ImageURL:  product.ImageURL,
				TotalSold: ranked.Quantity,
			}}, nil
		}
		return &models.ProductHighlight{}, nil
	})
}

// HourlyFlow counts orders and estimated customers between 07:00 and 19:59
func (s *Service) HourlyFlow(ctx context.Context, date time.Time) (*models.HourlyFlowMetrics, error) {
	key := s.dayKeyFor("metrics:hourlyflow", date)
	return cached(ctx, s, key, s.ttl, func(ctx context.Context) (*models.HourlyFlowMetrics, error) {
		orders, err := s.ordersIn(ctx, date, date)
		if err != nil {
			return nil, err
		}
		return hourlyFlow(orders, dayKey(date, s.loc), s.loc), nil
	})
}

func (s *Service) ordersIn(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	from, to := normalize(start, end, s.loc)
	orders, err := s.orders.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) findWaiter(ctx context.Context, id string) (*models.Waiter, error) {
	waiter, err := s.waiters.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: waiter not found", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find waiter: %w", err)
	}
	return waiter, nil
}

// categoryResolver maps a product id to its category name through the
// product's current category
func (s *Service) categoryResolver(ctx context.Context) (func(productID string) string, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	byProduct := make(map[string]string, len(products))
	for _, p := range products {
		if name, ok := names[p.CategoryID]; ok {
			byProduct[p.ID] = name
		}
	}

	return func(productID string) string {
		if name, ok := byProduct[productID]; ok {
			return name
		}
		return uncategorized
	}, nil
}
