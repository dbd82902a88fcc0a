package table

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/web"
)

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes mounts the table routes; adminOnly guards create, update and delete
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	tables := rg.Group("/tables")

	tables.GET("", h.List)
	tables.GET("/available", h.ListAvailable)
	tables.GET("/occupied", h.ListOccupied)
	tables.GET("/number/:number", h.GetByNumber)
	tables.GET("/status/:status", h.ListByStatus)
	tables.GET("/:id", h.Get)
	tables.POST("", adminOnly, h.Create)
	tables.PUT("/:id", adminOnly, h.Update)
	tables.PUT("/:id/status", h.UpdateStatus)
	tables.DELETE("/:id", adminOnly, h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req models.CreateTableRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}

	table, err := h.service.Create(c.Request.Context(), &req, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "table_creation_failed", err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (h *Handler) List(c *gin.Context) {
	tables, err := h.service.List(c.Request.Context())
	h.respond(c, "table_list_failed", http.StatusOK, tables, err)
}

func (h *Handler) ListAvailable(c *gin.Context) {
	tables, err := h.service.ListAvailable(c.Request.Context())
	h.respond(c, "table_list_failed", http.StatusOK, tables, err)
}

func (h *Handler) ListOccupied(c *gin.Context) {
	tables, err := h.service.ListOccupied(c.Request.Context())
	h.respond(c, "table_list_failed", http.StatusOK, tables, err)
}

func (h *Handler) ListByStatus(c *gin.Context) {
	tables, err := h.service.ListByStatus(c.Request.Context(), models.TableStatus(c.Param("status")))
	h.respond(c, "table_list_failed", http.StatusOK, tables, err)
}

func (h *Handler) Get(c *gin.Context) {
	table, err := h.service.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, "table_get_failed", http.StatusOK, table, err)
}

func (h *Handler) GetByNumber(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		web.WriteError(c, h.logger, "validation_failed", fmt.Errorf("%w: table number must be an integer", models.ErrInvalidInput))
		return
	}
	table, err := h.service.GetByNumber(c.Request.Context(), number)
	h.respond(c, "table_get_failed", http.StatusOK, table, err)
}

func (h *Handler) Update(c *gin.Context) {
	var req models.UpdateTableRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	table, err := h.service.Update(c.Request.Context(), c.Param("id"), &req, web.GetRequestID(c))
	h.respond(c, "table_update_failed", http.StatusOK, table, err)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req models.UpdateTableStatusRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	table, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, web.GetRequestID(c))
	h.respond(c, "table_status_failed", http.StatusOK, table, err)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), web.GetRequestID(c)); err != nil {
		web.WriteError(c, h.logger, "table_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respond(c *gin.Context, action string, status int, body interface{}, err error) {
	if err != nil {
		web.WriteError(c, h.logger, action, err)
		return
	}
	c.JSON(status, body)
}
