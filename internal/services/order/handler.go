package order

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/services/order/internal/validation"
	"restaurant-system/internal/web"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the order routes; adminOnly guards deletion
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	orders := rg.Group("/orders")

	orders.POST("", h.CreateOrder)
	orders.GET("/active", h.ListActive)
	orders.GET("/table/:tableId", h.ListByTable)
	orders.GET("/table/:tableId/active", h.ActiveByTable)
	orders.GET("/waiter/:waiterId", h.ListByWaiter)
	orders.GET("/status/:status", h.ListByStatus)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/status", h.UpdateStatus)
	orders.POST("/:id/items", h.AddItems)
	orders.DELETE("/:id/items/:itemId", h.RemoveItem)
	orders.PUT("/:id/items/:itemId", h.UpdateItem)
	orders.POST("/:id/close", h.Close)
	orders.POST("/:id/bill", h.Bill)
	orders.DELETE("/:id", adminOnly, h.Delete)
}

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	requestID := web.GetRequestID(c)

	h.logger.Debug("order_received", "Received order creation request", requestID, map[string]interface{}{
		"content_length": c.Request.ContentLength,
		"remote_addr":    c.ClientIP(),
	})

	var req models.CreateOrderRequest
	if err := h.decode(c, &req, func() error { return validation.ValidateCreateOrder(&req) }); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	order, err := h.service.Create(c.Request.Context(), &req, requestID)
	if err != nil {
		web.WriteError(c, h.logger, "order_creation_failed", err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		web.WriteError(c, h.logger, "order_lookup_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListByTable(c *gin.Context) {
	h.list(c, "orders_by_table_failed", func() ([]models.Order, error) {
		return h.service.ListByTable(c.Request.Context(), c.Param("tableId"))
	})
}

func (h *Handler) ActiveByTable(c *gin.Context) {
	order, err := h.service.ActiveByTable(c.Request.Context(), c.Param("tableId"))
	if err != nil {
		web.WriteError(c, h.logger, "active_order_lookup_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListByWaiter(c *gin.Context) {
	h.list(c, "orders_by_waiter_failed", func() ([]models.Order, error) {
		return h.service.ListByWaiter(c.Request.Context(), c.Param("waiterId"))
	})
}

func (h *Handler) ListByStatus(c *gin.Context) {
	h.list(c, "orders_by_status_failed", func() ([]models.Order, error) {
		return h.service.ListByStatus(c.Request.Context(), c.Param("status"))
	})
}

func (h *Handler) ListActive(c *gin.Context) {
	h.list(c, "active_orders_failed", func() ([]models.Order, error) {
		return h.service.ListActive(c.Request.Context())
	})
}

// UpdateStatus handles PUT /orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := h.decode(c, &req, nil); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "order_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddItems handles POST /orders/:id/items
func (h *Handler) AddItems(c *gin.Context) {
	var req models.AddOrderItemsRequest
	if err := h.decode(c, &req, func() error { return validation.ValidateAddItems(&req) }); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	order, err := h.service.AddItems(c.Request.Context(), c.Param("id"), req.Items, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "order_add_items_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RemoveItem handles DELETE /orders/:id/items/:itemId
func (h *Handler) RemoveItem(c *gin.Context) {
	order, err := h.service.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "order_remove_item_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateItem handles PUT /orders/:id/items/:itemId
func (h *Handler) UpdateItem(c *gin.Context) {
	var req models.UpdateOrderItemRequest
	if err := h.decode(c, &req, func() error { return validation.ValidateUpdateItem(&req) }); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	order, err := h.service.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), &req, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "order_update_item_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Close handles POST /orders/:id/close
func (h *Handler) Close(c *gin.Context) {
	var req models.BillRequest
	if err := h.decode(c, &req, func() error { return validation.ValidateBill(&req) }); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	order, err := h.service.Close(c.Request.Context(), c.Param("id"), req.WithTip, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "order_close_failed", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Bill handles POST /orders/:id/bill
func (h *Handler) Bill(c *gin.Context) {
	var req models.BillRequest
	if err := h.decode(c, &req, func() error { return validation.ValidateBill(&req) }); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	bill, err := h.service.GenerateBill(c.Request.Context(), c.Param("id"), req.WithTip)
	if err != nil {
		web.WriteError(c, h.logger, "order_bill_failed", err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// Delete handles DELETE /orders/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), web.GetRequestID(c)); err != nil {
		web.WriteError(c, h.logger, "order_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// decode binds the JSON body and runs the order validator when given
func (h *Handler) decode(c *gin.Context, obj interface{}, validate func() error) error {
	if err := web.BindJSON(c, obj); err != nil {
		return err
	}
	if validate != nil {
		return validate()
	}
	return nil
}

func (h *Handler) list(c *gin.Context, action string, fetch func() ([]models.Order, error)) {
	orders, err := fetch()
	if err != nil {
		web.WriteError(c, h.logger, action, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}
