package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/web"
)

type rangeQuery struct {
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate" binding:"required"`
}

type salesQuery struct {
	rangeQuery
	Period string `form:"period" binding:"required,oneof=day week month"`
}

type productsQuery struct {
	rangeQuery
	Period string `form:"period" binding:"required,oneof=week month"`
}

type waiterQuery struct {
	rangeQuery
	WaiterID string `form:"waiterId" binding:"required"`
}

type dayQuery struct {
	Date string `form:"date"`
}

type invalidateQuery struct {
	Type string `form:"type" binding:"required"`
}

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes mounts the metrics routes; adminOnly guards invalidation
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	m := rg.Group("/metrics")

	m.GET("/tables", h.Tables)
	m.GET("/realtime", h.Realtime)
	m.GET("/sales", h.Sales)
	m.GET("/waiters", h.WaiterPerformance)
	m.GET("/all-waiters", h.AllWaiters)
	m.GET("/products", h.Products)
	m.GET("/peak-hours", h.PeakHours)
	m.GET("/financial", h.Financial)
	m.GET("/report/sales", h.SalesReport)
	m.GET("/report/waiter", h.WaiterReport)
	m.GET("/report/products", h.ProductReport)
	m.GET("/most-sold-product", h.MostSold)
	m.GET("/least-sold-product", h.LeastSold)
	m.GET("/hourly-flow", h.HourlyFlow)
	m.GET("/invalidate", adminOnly, h.Invalidate)
}

func (h *Handler) Tables(c *gin.Context) {
	result, err := h.service.Tables(c.Request.Context())
	h.respond(c, "metrics_tables", result, err)
}

func (h *Handler) Realtime(c *gin.Context) {
	result, err := h.service.Realtime(c.Request.Context())
	h.respond(c, "metrics_realtime", result, err)
}

func (h *Handler) Sales(c *gin.Context) {
	var q salesQuery
	start, end, ok := h.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	result, err := h.service.Sales(c.Request.Context(), models.Period(q.Period), start, end)
	h.respond(c, "metrics_sales", result, err)
}

func (h *Handler) WaiterPerformance(c *gin.Context) {
	var q waiterQuery
	start, end, ok := h.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	result, err := h.service.WaiterPerformance(c.Request.Context(), q.WaiterID, start, end)
	h.respond(c, "metrics_waiter", result, err)
}

func (h *Handler) AllWaiters(c *gin.Context) {
	var q rangeQuery
	start, end, ok := h.bindRange(c, &q, &q)
	if !ok {
		return
	}
	result, err := h.service.AllWaitersPerformance(c.Request.Context(), start, end)
	h.respond(c, "metrics_all_waiters", result, err)
}

func (h *Handler) Products(c *gin.Context) {
	var q productsQuery
	start, end, ok := h.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	result, err := h.service.Products(c.Request.Context(), models.Period(q.Period), start, end)
	h.respond(c, "metrics_products", result, err)
}

func (h *Handler) PeakHours(c *gin.Context) {
	date, ok := h.bindDay(c)
	if !ok {
		return
	}
	result, err := h.service.PeakHours(c.Request.Context(), date)
	h.respond(c, "metrics_peak_hours", result, err)
}

func (h *Handler) Financial(c *gin.Context) {
	var q salesQuery
	start, end, ok := h.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	result, err := h.service.Financial(c.Request.Context(), models.Period(q.Period), start, end)
	h.respond(c, "metrics_financial", result, err)
}

func (h *Handler) SalesReport(c *gin.Context) {
	var q rangeQuery
	start, end, ok := h.bindRange(c, &q, &q)
	if !ok {
		return
	}
	result, err := h.service.SalesReport(c.Request.Context(), start, end)
	h.respond(c, "report_sales", result, err)
}

func (h *Handler) WaiterReport(c *gin.Context) {
	var q waiterQuery
	start, end, ok := h.bindRange(c, &q, &q.rangeQuery)
	if !ok {
		return
	}
	result, err := h.service.WaiterReport(c.Request.Context(), q.WaiterID, start, end)
	h.respond(c, "report_waiter", result, err)
}

func (h *Handler) ProductReport(c *gin.Context) {
	var q rangeQuery
	start, end, ok := h.bindRange(c, &q, &q)
	if !ok {
		return
	}
	result, err := h.service.ProductReport(c.Request.Context(), start, end)
	h.respond(c, "report_products", result, err)
}

func (h *Handler) MostSold(c *gin.Context) {
	var q rangeQuery
	start, end, ok := h.bindRange(c, &q, &q)
	if !ok {
		return
	}
	result, err := h.service.MostSoldProduct(c.Request.Context(), start, end)
	h.respond(c, "metrics_most_sold", result, err)
}

func (h *Handler) LeastSold(c *gin.Context) {
	var q rangeQuery
	start, end, ok := h.bindRange(c, &q, &q)
	if !ok {
		return
	}
	result, err := h.service.LeastSoldProduct(c.Request.Context(), start, end)
	h.respond(c, "metrics_least_sold", result, err)
}

func (h *Handler) HourlyFlow(c *gin.Context) {
	date, ok := h.bindDay(c)
	if !ok {
		return
	}
	result, err := h.service.HourlyFlow(c.Request.Context(), date)
	h.respond(c, "metrics_hourly_flow", result, err)
}

// Invalidate handles GET /metrics/invalidate?type=
func (h *Handler) Invalidate(c *gin.Context) {
	var q invalidateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.WriteError(c, h.logger, "metrics_invalidate", fmt.Errorf("%w: type is required", models.ErrInvalidInput))
		return
	}
	family, err := models.ParseMetricFamily(q.Type)
	if err != nil {
		web.WriteError(c, h.logger, "metrics_invalidate", err)
		return
	}

	if err := h.service.Invalidate(c.Request.Context(), web.GetRequestID(c), family); err != nil {
		web.WriteError(c, h.logger, "metrics_invalidate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("cache invalidated for %s", family),
		"type":    family,
	})
}

// bindRange binds the query into q and parses the dates held by r. It writes
// the error response itself and reports whether the handler may continue.
func (h *Handler) bindRange(c *gin.Context, q interface{}, r *rangeQuery) (time.Time, time.Time, bool) {
	if err := c.ShouldBindQuery(q); err != nil {
		web.WriteError(c, h.logger, "metrics_query_invalid", fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return time.Time{}, time.Time{}, false
	}
	start, err := ParseDate(r.StartDate, h.service.Location())
	if err != nil {
		web.WriteError(c, h.logger, "metrics_query_invalid", err)
		return time.Time{}, time.Time{}, false
	}
	end, err := ParseDate(r.EndDate, h.service.Location())
	if err != nil {
		web.WriteError(c, h.logger, "metrics_query_invalid", err)
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		web.WriteError(c, h.logger, "metrics_query_invalid", fmt.Errorf("%w: endDate is before startDate", models.ErrInvalidInput))
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// bindDay parses the optional date parameter, defaulting to today
func (h *Handler) bindDay(c *gin.Context) (time.Time, bool) {
	var q dayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.WriteError(c, h.logger, "metrics_query_invalid", fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return time.Time{}, false
	}
	if q.Date == "" {
		return time.Now().In(h.service.Location()), true
	}
	date, err := ParseDate(q.Date, h.service.Location())
	if err != nil {
		web.WriteError(c, h.logger, "metrics_query_invalid", err)
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) respond(c *gin.Context, action string, result interface{}, err error) {
	if err != nil {
		web.WriteError(c, h.logger, action, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
