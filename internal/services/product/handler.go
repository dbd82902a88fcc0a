package product

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

// RegisterRoutes mounts the product and category routes; adminOnly guards
// menu edits
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	products := rg.Group("/products")
	products.GET("", h.List)
	products.GET("/active", h.ListActive)
	products.GET("/search", h.Search)
	products.GET("/category/:categoryId", h.ListByCategory)
	products.GET("/:id", h.Get)
	products.POST("", adminOnly, h.Create)
	products.PUT("/:id", adminOnly, h.Update)
	products.DELETE("/:id", adminOnly, h.Delete)

	categories := rg.Group("/categories")
	categories.GET("", h.ListCategories)
	categories.GET("/:id", h.GetCategory)
}

func (h *Handler) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	product, err := h.service.Create(c.Request.Context(), &req, web.GetRequestID(c))
	h.respond(c, "product_creation_failed", http.StatusCreated, product, err)
}

func (h *Handler) List(c *gin.Context) {
	products, err := h.service.List(c.Request.Context())
	h.respond(c, "product_list_failed", http.StatusOK, products, err)
}

func (h *Handler) ListActive(c *gin.Context) {
	products, err := h.service.ListActive(c.Request.Context())
	h.respond(c, "product_list_failed", http.StatusOK, products, err)
}

// Search handles GET /products/search?name=
func (h *Handler) Search(c *gin.Context) {
	products, err := h.service.SearchByName(c.Request.Context(), c.Query("name"))
	h.respond(c, "product_search_failed", http.StatusOK, products, err)
}

func (h *Handler) ListByCategory(c *gin.Context) {
	products, err := h.service.ListByCategory(c.Request.Context(), c.Param("categoryId"))
	h.respond(c, "product_list_failed", http.StatusOK, products, err)
}

func (h *Handler) Get(c *gin.Context) {
	product, err := h.service.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, "product_get_failed", http.StatusOK, product, err)
}

func (h *Handler) Update(c *gin.Context) {
	var req models.UpdateProductRequest
	if err := web.BindJSON(c, &req); err != nil {
		web.WriteError(c, h.logger, "validation_failed", err)
		return
	}
	product, err := h.service.Update(c.Request.Context(), c.Param("id"), &req, web.GetRequestID(c))
	h.respond(c, "product_update_failed", http.StatusOK, product, err)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), web.GetRequestID(c)); err != nil {
		web.WriteError(c, h.logger, "product_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	h.respond(c, "category_list_failed", http.StatusOK, categories, err)
}

func (h *Handler) GetCategory(c *gin.Context) {
	category, err := h.service.GetCategory(c.Request.Context(), c.Param("id"))
	h.respond(c, "category_get_failed", http.StatusOK, category, err)
}

func (h *Handler) respond(c *gin.Context, action string, status int, body interface{}, err error) {
	if err != nil {
		web.WriteError(c, h.logger, action, err)
		return
	}
	c.JSON(status, body)
}
