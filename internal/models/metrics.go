package models

import (
	"fmt"
	"time"
)

// MetricFamily names a group of cached metrics that are invalidated together
type MetricFamily string

const (
	FamilyTables    MetricFamily = "tables"
	FamilyRealtime  MetricFamily = "realtime"
	FamilySales     MetricFamily = "sales"
	FamilyWaiter    MetricFamily = "waiter"
	FamilyProducts  MetricFamily = "products"
	FamilyPeakHours MetricFamily = "peakhours"
	FamilyFinancial MetricFamily = "financial"
	FamilyReports   MetricFamily = "reports"
	FamilyAll       MetricFamily = "all"
)

// ParseMetricFamily validates the invalidation selector
func ParseMetricFamily(s string) (MetricFamily, error) {
	switch f := MetricFamily(s); f {
	case FamilyTables, FamilyRealtime, FamilySales, FamilyWaiter, FamilyProducts,
		FamilyPeakHours, FamilyFinancial, FamilyReports, FamilyAll:
		return f, nil
	}
	return "", fmt.Errorf("%w: type must be one of: tables, realtime, sales, waiter, products, peakhours, financial, reports, all", ErrInvalidInput)
}

// Period is the descriptive label of a date-ranged report
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// CacheInfo is attached to every metrics response
type CacheInfo struct {
	FromCache    bool      `json:"fromCache"`
	CacheKey     string    `json:"cacheKey,omitempty"`
	CacheTTL     int       `json:"cacheTTL,omitempty"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

func (c *CacheInfo) SetCacheInfo(info CacheInfo) { *c = info }

func (c *CacheInfo) GetCacheInfo() CacheInfo { return *c }

type TableSnapshot struct {
	ID     string      `json:"id"`
	Number int         `json:"number"`
	Status TableStatus `json:"status"`
}

type TableMetrics struct {
	CacheInfo
	TotalTables    int             `json:"totalTables"`
	OccupiedTables int             `json:"occupiedTables"`
	FreeTables     int             `json:"freeTables"`
	Tables         []TableSnapshot `json:"tables"`
}

type ProductQuantity struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	TotalSales  float64 `json:"totalSales"`
}

type RealTimeMetrics struct {
	CacheInfo
	TodaySales     float64           `json:"todaySales"`
	TodayOrders    int               `json:"todayOrders"`
	TopProducts    []ProductQuantity `json:"topProducts"`
	OccupiedTables int               `json:"occupiedTables"`
	ActiveWaiters  int               `json:"activeWaiters"`
}

type DailySales struct {
	Date   string  `json:"date"`
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
}

type SalesMetrics struct {
	CacheInfo
	Period            Period       `json:"period"`
	StartDate         time.Time    `json:"startDate"`
	EndDate           time.Time    `json:"endDate"`
	TotalSales        float64      `json:"totalSales"`
	TotalOrders       int          `json:"totalOrders"`
	TotalTips         float64      `json:"totalTips"`
	AverageOrderValue float64      `json:"averageOrderValue"`
	SalesByDay        []DailySales `json:"salesByDay"`
}

type WaiterPerformance struct {
	CacheInfo
	WaiterID          string       `json:"waiterId"`
	WaiterName        string       `json:"waiterName"`
	TotalOrders       int          `json:"totalOrders"`
	TotalSales        float64      `json:"totalSales"`
	AverageOrderValue float64      `json:"averageOrderValue"`
	OrdersByDay       []DailySales `json:"ordersByDay"`
}

type WaiterShare struct {
	WaiterID               string       `json:"waiterId"`
	WaiterName             string       `json:"waiterName"`
	TotalOrders            int          `json:"totalOrders"`
	TotalSales             float64      `json:"totalSales"`
	AverageOrderValue      float64      `json:"averageOrderValue"`
	PercentageOfTotalSales float64      `json:"percentageOfTotalSales"`
	OrdersByDay            []DailySales `json:"ordersByDay"`
}

type AllWaitersPerformance struct {
	CacheInfo
	StartDate         time.Time     `json:"startDate"`
	EndDate           time.Time     `json:"endDate"`
	TotalWaiters      int           `json:"totalWaiters"`
	TotalSales        float64       `json:"totalSales"`
	TotalOrders       int           `json:"totalOrders"`
	AverageOrderValue float64       `json:"averageOrderValue"`
	Waiters           []WaiterShare `json:"waiters"`
}

type ProductRanking struct {
	ProductID         string  `json:"productId"`
	ProductName       string  `json:"productName"`
	Category          string  `json:"category"`
	Quantity          int     `json:"quantity"`
	TotalSales        float64 `json:"totalSales"`
	PercentageOfTotal float64 `json:"percentageOfTotal"`
}

type CategorySales struct {
	Category          string  `json:"category"`
	TotalSales        float64 `json:"totalSales"`
	TotalQuantity     int     `json:"totalQuantity"`
	PercentageOfTotal float64 `json:"percentageOfTotal"`
}

type ProductMetrics struct {
	CacheInfo
	Period            Period           `json:"period"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	TopProducts       []ProductRanking `json:"topProducts"`
	CategoryBreakdown []CategorySales  `json:"categoryBreakdown"`
}

// Activity classifies an hour against the day's average order count
type Activity string

const (
	ActivityLow    Activity = "low"
	ActivityMedium Activity = "medium"
	ActivityHigh   Activity = "high"
)

type HourlyActivity struct {
	Hour   int     `json:"hour"`
	Orders int     `json:"orders"`
	Sales  float64 `json:"sales"`
}

type HourClass struct {
	Hour     int      `json:"hour"`
	Activity Activity `json:"activity"`
}

type PeakHoursMetrics struct {
	CacheInfo
	Date           string           `json:"date"`
	HourlyActivity []HourlyActivity `json:"hourlyActivity"`
	PeakHours      []HourClass      `json:"peakHours"`
}

type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Tips    float64 `json:"tips"`
}

type FinancialMetrics struct {
	CacheInfo
	Period               Period         `json:"period"`
	StartDate            time.Time      `json:"startDate"`
	EndDate              time.Time      `json:"endDate"`
	TotalRevenue         float64        `json:"totalRevenue"`
	TotalTips            float64        `json:"totalTips"`
	AverageTipPercentage float64        `json:"averageTipPercentage"`
	RevenueByDay         []DailyRevenue `json:"revenueByDay"`
}

type ReportLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

type SalesReportOrder struct {
	ID          string       `json:"id"`
	TableNumber int          `json:"tableNumber"`
	WaiterName  string       `json:"waiterName"`
	Total       float64      `json:"total"`
	Tip         float64      `json:"tip"`
	Status      OrderStatus  `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	Products    []ReportLine `json:"products"`
}

type SalesReport struct {
	CacheInfo
	StartDate   time.Time          `json:"startDate"`
	EndDate     time.Time          `json:"endDate"`
	TotalSales  float64            `json:"totalSales"`
	TotalOrders int                `json:"totalOrders"`
	TotalTips   float64            `json:"totalTips"`
	Orders      []SalesReportOrder `json:"orders"`
}

type WaiterReportOrder struct {
	ID          string      `json:"id"`
	TableNumber int         `json:"tableNumber"`
	Total       float64     `json:"total"`
	Tip         float64     `json:"tip"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type WaiterReport struct {
	CacheInfo
	WaiterID          string              `json:"waiterId"`
	WaiterName        string              `json:"waiterName"`
	StartDate         time.Time           `json:"startDate"`
	EndDate           time.Time           `json:"endDate"`
	TotalOrders       int                 `json:"totalOrders"`
	TotalSales        float64             `json:"totalSales"`
	TotalTips         float64             `json:"totalTips"`
	AverageOrderValue float64             `json:"averageOrderValue"`
	Orders            []WaiterReportOrder `json:"orders"`
}

type ProductReportLine struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	TotalSales   float64 `json:"totalSales"`
	AveragePrice float64 `json:"averagePrice"`
}

type ProductReportCategory struct {
	Name          string              `json:"name"`
	TotalSales    float64             `json:"totalSales"`
	TotalQuantity int                 `json:"totalQuantity"`
	Products      []ProductReportLine `json:"products"`
}

type ProductReport struct {
	CacheInfo
	StartDate     time.Time               `json:"startDate"`
	EndDate       time.Time               `json:"endDate"`
	TotalSales    float64                 `json:"totalSales"`
	TotalProducts int                     `json:"totalProducts"`
	Categories    []ProductReportCategory `json:"categories"`
}

type ProductSold struct {
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	TotalSold int    `json:"totalSold"`
}

// ProductHighlight wraps the most or least sold product; Product is nil when
// no sold product still resolves
type ProductHighlight struct {
	CacheInfo
	Product *ProductSold `json:"product"`
}

type HourlyFlowEntry struct {
	Hour            int    `json:"hour"`
	HourLabel       string `json:"hourLabel"`
	OrdersCount     int    `json:"ordersCount"`
	CustomersServed int    `json:"customersServed"`
}

type HourlyFlowMetrics struct {
	CacheInfo
	Date               string            `json:"date"`
	StartHour          int               `json:"startHour"`
	EndHour            int               `json:"endHour"`
	HourlyFlow         []HourlyFlowEntry `json:"hourlyFlow"`
	TotalOrdersInRange int               `json:"totalOrdersInRange"`
	PeakHour           int               `json:"peakHour"`
	PeakHourLabel      string            `json:"peakHourLabel"`
}
