package waiter

import (
	"net/http"

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

// RegisterRoutes mounts the waiter routes, all of them behind adminOnly
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	waiters := rg.Group("/waiters", adminOnly)

	waiters.POST("", h.Create)
	waiters.GET("", h.List)
	waiters.GET("/:id", h.Get)
	waiters.PUT("/:id", h.Update)
	waiters.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req models.CreateWaiterRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	creds, err := h.service.Create(c.Request.Context(), &req, web.GetRequestID(c))
	h.respond(c, "waiter_creation_failed", http.StatusCreated, creds, err)
}

func (h *Handler) List(c *gin.Context) {
	waiters, err := h.service.List(c.Request.Context())
	h.respond(c, "waiter_list_failed", http.StatusOK, waiters, err)
}

func (h *Handler) Get(c *gin.Context) {
	waiter, err := h.service.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, "waiter_get_failed", http.StatusOK, waiter, err)
}

func (h *Handler) Update(c *gin.Context) {
	var req models.UpdateWaiterRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	waiter, err := h.service.Update(c.Request.Context(), c.Param("id"), &req, web.GetRequestID(c))
	h.respond(c, "waiter_update_failed", http.StatusOK, waiter, err)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), web.GetRequestID(c)); err != nil {
		web.WriteError(c, h.logger, "waiter_delete_failed", err)
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
