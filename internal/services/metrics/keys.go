package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-system/internal/models"
	"restaurant-system/internal/monitoring"
)

const (
	keyTables   = "metrics:tables"
	keyRealtime = "metrics:realtime"
)

func (s *Service) rangeKey(prefix string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s", prefix, dayKey(start, s.loc), dayKey(end, s.loc))
}

func (s *Service) dayKeyFor(prefix string, date time.Time) string {
	return fmt.Sprintf("%s:%s", prefix, dayKey(date, s.loc))
}

var familyPatterns = map[models.MetricFamily][]string{
	models.FamilyTables:    {keyTables},
	models.FamilyRealtime:  {keyRealtime},
	models.FamilySales:     {"metrics:sales:*"},
	models.FamilyWaiter:    {"metrics:waiter:*", "metrics:allwaiters:*"},
	models.FamilyProducts:  {"metrics:products:*", "metrics:mostsold:*", "metrics:leastsold:*"},
	models.FamilyPeakHours: {"metrics:peakhours:*"},
	models.FamilyFinancial: {"metrics:financial:*"},
	models.FamilyReports:   {"metrics:report:*", "metrics:hourlyflow:*"},
}

var allFamilies = []models.MetricFamily{
	models.FamilyTables, models.FamilyRealtime, models.FamilySales, models.FamilyWaiter,
	models.FamilyProducts, models.FamilyPeakHours, models.FamilyFinancial, models.FamilyReports,
}

// Patterns returns the cache keys and prefixes a family covers, in a stable
// order and without duplicates
func Patterns(families ...models.MetricFamily) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f models.MetricFamily) {
		for _, p := range familyPatterns[f] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	for _, f := range families {
		if f == models.FamilyAll {
			for _, each := range allFamilies {
				add(each)
			}
			continue
		}
		add(f)
	}
	return out
}

// Invalidate drops every cached entry of the given families. All patterns
// are attempted; the failures are returned together.
func (s *Service) Invalidate(ctx context.Context, requestID string, families ...models.MetricFamily) error {
	var errs []error
	for _, pattern := range Patterns(families...) {
		if err := s.cache.Delete(ctx, pattern); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", pattern, err))
		}
	}
	for _, f := range families {
		monitoring.CacheInvalidations.WithLabelValues(string(f)).Inc()
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Error("cache_invalidation_failed", "Failed to invalidate metrics cache", requestID, err, map[string]interface{}{
			"families": families,
		})
		return err
	}

	s.logger.Debug("cache_invalidated", "Metrics cache invalidated", requestID, map[string]interface{}{
		"families": families,
	})
	return nil
}

// Notify invalidates the families named by a change event
func (s *Service) Notify(ctx context.Context, event *models.ChangeEvent) {
	if len(event.Families) == 0 {
		return
	}
	_ = s.Invalidate(ctx, event.RequestID, event.Families...)
}
