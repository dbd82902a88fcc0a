package metrics

import (
	"fmt"
	"sort"
	"time"

	"restaurant-system/internal/models"
	"restaurant-system/internal/pricing"
)

const (
	uncategorized = "Uncategorized"
	unknownWaiter = "Unknown"

	topProductsRealtime = 5
	topProductsRanking  = 10

	flowStartHour = 7
	flowEndHour   = 19
)

func tableMetrics(tables []models.Table) *models.TableMetrics {
	m := &models.TableMetrics{
		TotalTables: len(tables),
		Tables:      make([]models.TableSnapshot, 0, len(tables)),
	}
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			m.OccupiedTables++
		}
		m.Tables = append(m.Tables, models.TableSnapshot{ID: t.ID, Number: t.Number, Status: t.Status})
	}
	m.FreeTables = m.TotalTables - m.OccupiedTables
	sort.Slice(m.Tables, func(i, j int) bool { return m.Tables[i].Number < m.Tables[j].Number })
	return m
}

func realtimeMetrics(orders []models.Order, tables []models.Table, waiters []models.Waiter) *models.RealTimeMetrics {
	m := &models.RealTimeMetrics{
		TodayOrders:   len(orders),
		TodaySales:    sumTotals(orders),
		TopProducts:   productQuantities(orders),
		ActiveWaiters: len(waiters),
	}
	if len(m.TopProducts) > topProductsRealtime {
		m.TopProducts = m.TopProducts[:topProductsRealtime]
	}
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			m.OccupiedTables++
		}
	}
	return m
}

// productQuantities aggregates items per product, highest quantity first
func productQuantities(orders []models.Order) []models.ProductQuantity {
	byID := make(map[string]*models.ProductQuantity)
	for _, o := range orders {
		for _, item := range o.Items {
			pq, ok := byID[item.ProductID]
			if !ok {
				pq = &models.ProductQuantity{ProductID: item.ProductID, ProductName: item.ProductName}
				byID[item.ProductID] = pq
			}
			pq.Quantity += item.Quantity
			pq.TotalSales = pricing.Sum(pq.TotalSales, item.TotalPrice)
		}
	}

	out := make([]models.ProductQuantity, 0, len(byID))
	for _, pq := range byID {
		out = append(out, *pq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// rankByQuantity orders sold products by quantity, descending when most is set
func rankByQuantity(orders []models.Order, most bool) []models.ProductQuantity {
	ranked := productQuantities(orders)
	if !most {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Quantity < ranked[j].Quantity })
	}
	return ranked
}

func sumTotals(orders []models.Order) float64 {
	amounts := make([]float64, len(orders))
	for i, o := range orders {
		amounts[i] = o.Total
	}
	return pricing.Sum(amounts...)
}

func sumTips(orders []models.Order) float64 {
	amounts := make([]float64, len(orders))
	for i, o := range orders {
		amounts[i] = o.Tip
	}
	return pricing.Sum(amounts...)
}

// byDay groups order totals and counts per calendar day, oldest first
func byDay(orders []models.Order, loc *time.Location) []models.DailySales {
	days := make(map[string]*models.DailySales)
	for _, o := range orders {
		d := dayKey(o.CreatedAt, loc)
		ds, ok := days[d]
		if !ok {
			ds = &models.DailySales{Date: d}
			days[d] = ds
		}
		ds.Orders++
		ds.Sales = pricing.Sum(ds.Sales, o.Total)
	}

	out := make([]models.DailySales, 0, len(days))
	for _, ds := range days {
		out = append(out, *ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func salesMetrics(orders []models.Order, period models.Period, start, end time.Time, loc *time.Location) *models.SalesMetrics {
	total := sumTotals(orders)
	return &models.SalesMetrics{
		Period:            period,
		StartDate:         start,
		EndDate:           end,
		TotalSales:        total,
		TotalOrders:       len(orders),
		TotalTips:         sumTips(orders),
		AverageOrderValue: pricing.Average(total, len(orders)),
		SalesByDay:        byDay(orders, loc),
	}
}

func waiterPerformance(waiter *models.Waiter, orders []models.Order, loc *time.Location) *models.WaiterPerformance {
	total := sumTotals(orders)
	return &models.WaiterPerformance{
		WaiterID:          waiter.ID,
		WaiterName:        waiter.FullName(),
		TotalOrders:       len(orders),
		TotalSales:        total,
		AverageOrderValue: pricing.Average(total, len(orders)),
		OrdersByDay:       byDay(orders, loc),
	}
}

func allWaitersPerformance(waiters []models.Waiter, orders []models.Order, start, end time.Time, loc *time.Location) *models.AllWaitersPerformance {
	byWaiter := make(map[string][]models.Order)
	for _, o := range orders {
		byWaiter[o.WaiterID] = append(byWaiter[o.WaiterID], o)
	}

	m := &models.AllWaitersPerformance{
		StartDate:    start,
		EndDate:      end,
		TotalWaiters: len(waiters),
		Waiters:      make([]models.WaiterShare, 0, len(waiters)),
	}
	for i := range waiters {
		own := byWaiter[waiters[i].ID]
		total := sumTotals(own)
		m.Waiters = append(m.Waiters, models.WaiterShare{
			WaiterID:          waiters[i].ID,
			WaiterName:        waiters[i].FullName(),
			TotalOrders:       len(own),
			TotalSales:        total,
			AverageOrderValue: pricing.Average(total, len(own)),
			OrdersByDay:       byDay(own, loc),
		})
		m.TotalSales = pricing.Sum(m.TotalSales, total)
		m.TotalOrders += len(own)
	}
	m.AverageOrderValue = pricing.Average(m.TotalSales, m.TotalOrders)
	for i := range m.Waiters {
		m.Waiters[i].PercentageOfTotalSales = pricing.Percentage(m.Waiters[i].TotalSales, m.TotalSales)
	}
	return m
}

func productMetrics(orders []models.Order, categoryOf func(string) string, period models.Period, start, end time.Time) *models.ProductMetrics {
	products := productQuantities(orders)

	var total float64
	for _, p := range products {
		total = pricing.Sum(total, p.TotalSales)
	}

	categories := make(map[string]*models.CategorySales)
	for _, p := range products {
		name := categoryOf(p.ProductID)
		cs, ok := categories[name]
		if !ok {
			cs = &models.CategorySales{Category: name}
			categories[name] = cs
		}
		cs.TotalSales = pricing.Sum(cs.TotalSales, p.TotalSales)
		cs.TotalQuantity += p.Quantity
	}

	m := &models.ProductMetrics{
		Period:            period,
		StartDate:         start,
		EndDate:           end,
		TopProducts:       make([]models.ProductRanking, 0, topProductsRanking),
		CategoryBreakdown: make([]models.CategorySales, 0, len(categories)),
	}
	for i, p := range products {
		if i == topProductsRanking {
			break
		}
		m.TopProducts = append(m.TopProducts, models.ProductRanking{
			ProductID:         p.ProductID,
			ProductName:       p.ProductName,
			Category:          categoryOf(p.ProductID),
			Quantity:          p.Quantity,
			TotalSales:        p.TotalSales,
			PercentageOfTotal: pricing.Percentage(p.TotalSales, total),
		})
	}
	for _, cs := range categories {
		cs.PercentageOfTotal = pricing.Percentage(cs.TotalSales, total)
		m.CategoryBreakdown = append(m.CategoryBreakdown, *cs)
	}
	sort.Slice(m.CategoryBreakdown, func(i, j int) bool {
		a, b := m.CategoryBreakdown[i], m.CategoryBreakdown[j]
		if a.TotalSales != b.TotalSales {
			return a.TotalSales > b.TotalSales
		}
		return a.Category < b.Category
	})
	return m
}

// peakHours buckets a day's orders by hour. An hour is low with no orders,
// medium up to the hourly average and high above it.
func peakHours(orders []models.Order, date string, loc *time.Location) *models.PeakHoursMetrics {
	m := &models.PeakHoursMetrics{
		Date:           date,
		HourlyActivity: make([]models.HourlyActivity, 24),
		PeakHours:      make([]models.HourClass, 24),
	}
	for h := range m.HourlyActivity {
		m.HourlyActivity[h].Hour = h
	}
	for _, o := range orders {
		h := o.CreatedAt.In(loc).Hour()
		m.HourlyActivity[h].Orders++
		m.HourlyActivity[h].Sales = pricing.Sum(m.HourlyActivity[h].Sales, o.Total)
	}

	average := float64(len(orders)) / 24
	for h, a := range m.HourlyActivity {
		activity := models.ActivityHigh
		switch {
		case a.Orders == 0:
			activity = models.ActivityLow
		case float64(a.Orders) <= average:
			activity = models.ActivityMedium
		}
		m.PeakHours[h] = models.HourClass{Hour: h, Activity: activity}
	}
	return m
}

func financialMetrics(orders []models.Order, period models.Period, start, end time.Time, loc *time.Location) *models.FinancialMetrics {
	revenue := sumTotals(orders)
	tips := sumTips(orders)

	days := make(map[string]*models.DailyRevenue)
	for _, o := range orders {
		d := dayKey(o.CreatedAt, loc)
		dr, ok := days[d]
		if !ok {
			dr = &models.DailyRevenue{Date: d}
			days[d] = dr
		}
		dr.Revenue = pricing.Sum(dr.Revenue, o.Total)
		dr.Tips = pricing.Sum(dr.Tips, o.Tip)
	}
	revenueByDay := make([]models.DailyRevenue, 0, len(days))
	for _, dr := range days {
		revenueByDay = append(revenueByDay, *dr)
	}
	sort.Slice(revenueByDay, func(i, j int) bool { return revenueByDay[i].Date < revenueByDay[j].Date })

	return &models.FinancialMetrics{
		Period:               period,
		StartDate:            start,
		EndDate:              end,
		TotalRevenue:         revenue,
		TotalTips:            tips,
		AverageTipPercentage: pricing.Percentage(tips, revenue),
		RevenueByDay:         revenueByDay,
	}
}

func tableNumbers(tables []models.Table) map[string]int {
	numbers := make(map[string]int, len(tables))
	for _, t := range tables {
		numbers[t.ID] = t.Number
	}
	return numbers
}

func salesReport(orders []models.Order, waiters []models.Waiter, tables []models.Table, start, end time.Time) *models.SalesReport {
	names := make(map[string]string, len(waiters))
	for i := range waiters {
		names[waiters[i].ID] = waiters[i].FullName()
	}
	numbers := tableNumbers(tables)

	r := &models.SalesReport{
		StartDate:   start,
		EndDate:     end,
		TotalSales:  sumTotals(orders),
		TotalOrders: len(orders),
		TotalTips:   sumTips(orders),
		Orders:      make([]models.SalesReportOrder, 0, len(orders)),
	}
	for _, o := range orders {
		name, ok := names[o.WaiterID]
		if !ok {
			name = unknownWaiter
		}
		lines := make([]models.ReportLine, 0, len(o.Items))
		for _, item := range o.Items {
			lines = append(lines, models.ReportLine{
				Name:     item.ProductName,
				Quantity: item.Quantity,
				Price:    item.UnitPrice,
				Subtotal: item.TotalPrice,
			})
		}
		r.Orders = append(r.Orders, models.SalesReportOrder{
			ID:          o.ID,
			TableNumber: numbers[o.TableID],
			WaiterName:  name,
			Total:       o.Total,
			Tip:         o.Tip,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
			Products:    lines,
		})
	}
	return r
}

func waiterReport(waiter *models.Waiter, orders []models.Order, tables []models.Table, start, end time.Time) *models.WaiterReport {
	numbers := tableNumbers(tables)
	total := sumTotals(orders)

	r := &models.WaiterReport{
		WaiterID:          waiter.ID,
		WaiterName:        waiter.FullName(),
		StartDate:         start,
		EndDate:           end,
		TotalOrders:       len(orders),
		TotalSales:        total,
		TotalTips:         sumTips(orders),
		AverageOrderValue: pricing.Average(total, len(orders)),
		Orders:            make([]models.WaiterReportOrder, 0, len(orders)),
	}
	for _, o := range orders {
		r.Orders = append(r.Orders, models.WaiterReportOrder{
			ID:          o.ID,
			TableNumber: numbers[o.TableID],
			Total:       o.Total,
			Tip:         o.Tip,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
		})
	}
	return r
}

func productReport(orders []models.Order, categoryOf func(string) string, start, end time.Time) *models.ProductReport {
	grouped := make(map[string]*models.ProductReportCategory)
	r := &models.ProductReport{StartDate: start, EndDate: end}

	for _, p := range productQuantities(orders) {
		name := categoryOf(p.ProductID)
		cat, ok := grouped[name]
		if !ok {
			cat = &models.ProductReportCategory{Name: name}
			grouped[name] = cat
		}
		cat.TotalSales = pricing.Sum(cat.TotalSales, p.TotalSales)
		cat.TotalQuantity += p.Quantity
		cat.Products = append(cat.Products, models.ProductReportLine{
			ID:           p.ProductID,
			Name:         p.ProductName,
			Quantity:     p.Quantity,
			TotalSales:   p.TotalSales,
			AveragePrice: pricing.Average(p.TotalSales, p.Quantity),
		})
		r.TotalSales = pricing.Sum(r.TotalSales, p.TotalSales)
		r.TotalProducts++
	}

	r.Categories = make([]models.ProductReportCategory, 0, len(grouped))
	for _, cat := range grouped {
		r.Categories = append(r.Categories, *cat)
	}
	sort.Slice(r.Categories, func(i, j int) bool {
		a, b := r.Categories[i], r.Categories[j]
		if a.TotalSales != b.TotalSales {
			return a.TotalSales > b.TotalSales
		}
		return a.Name < b.Name
	})
	return r
}

// hourlyFlow counts orders per hour from 07:00 to 19:00. An order with more
// than three lines is counted as two customers.
func hourlyFlow(orders []models.Order, date string, loc *time.Location) *models.HourlyFlowMetrics {
	m := &models.HourlyFlowMetrics{
		Date:       date,
		StartHour:  flowStartHour,
		EndHour:    flowEndHour,
		HourlyFlow: make([]models.HourlyFlowEntry, 0, flowEndHour-flowStartHour+1),
	}
	for h := flowStartHour; h <= flowEndHour; h++ {
		m.HourlyFlow = append(m.HourlyFlow, models.HourlyFlowEntry{Hour: h, HourLabel: fmt.Sprintf("%02d:00", h)})
	}

	for _, o := range orders {
		h := o.CreatedAt.In(loc).Hour()
		if h < flowStartHour || h > flowEndHour {
			continue
		}
		entry := &m.HourlyFlow[h-flowStartHour]
		entry.OrdersCount++
		if len(o.Items) > 3 {
			entry.CustomersServed += 2
		} else {
			entry.CustomersServed++
		}
		m.TotalOrdersInRange++
	}

	peak := m.HourlyFlow[0]
	for _, e := range m.HourlyFlow[1:] {
		if e.OrdersCount > peak.OrdersCount {
			peak = e
		}
	}
	m.PeakHour, m.PeakHourLabel = peak.Hour, peak.HourLabel
	return m
}
