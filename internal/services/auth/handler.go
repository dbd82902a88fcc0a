package auth

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "login", err)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req, web.GetRequestID(c))
	if err != nil {
		web.WriteError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
