package order

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/web"
)

func newTestRouter(f *fixture, adminOnly gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(web.RequestID())
	NewHandler(f.service, logger.Discard()).RegisterRoutes(r.Group("/api"), adminOnly)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerOrderFlow(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f, func(c *gin.Context) { c.Next() })

	rec := do(t, r, http.MethodPost, "/api/orders", map[string]interface{}{
		"tableId":  f.table.ID,
		"waiterId": f.waiter.ID,
		"items":    []map[string]interface{}{{"productId": f.burger.ID, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatal(err)
	}
	if order.Total != 22 {
		t.Fatalf("total = %v, want 22", order.Total)
	}

	steps := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"active order of table", http.MethodGet, "/api/orders/table/" + f.table.ID + "/active", nil, http.StatusOK},
		{"list active", http.MethodGet, "/api/orders/active", nil, http.StatusOK},
		{"invalid status", http.MethodPut, "/api/orders/" + order.ID + "/status", map[string]string{"status": "eaten"}, http.StatusBadRequest},
		{"deliver", http.MethodPut, "/api/orders/" + order.ID + "/status", map[string]string{"status": "delivered"}, http.StatusOK},
		{"bill with bad flag", http.MethodPost, "/api/orders/" + order.ID + "/bill", map[string]string{"withTip": "sure"}, http.StatusBadRequest},
		{"pre-bill", http.MethodPost, "/api/orders/" + order.ID + "/bill", map[string]string{"withTip": "yes"}, http.StatusOK},
		{"add items without body", http.MethodPost, "/api/orders/" + order.ID + "/items", map[string]interface{}{"items": []interface{}{}}, http.StatusBadRequest},
		{"delete open order", http.MethodDelete, "/api/orders/" + order.ID, nil, http.StatusConflict},
		{"close", http.MethodPost, "/api/orders/" + order.ID + "/close", map[string]string{"withTip": "no"}, http.StatusOK},
		{"close again", http.MethodPost, "/api/orders/" + order.ID + "/close", map[string]string{"withTip": "no"}, http.StatusConflict},
		{"status of billed order", http.MethodPut, "/api/orders/" + order.ID + "/status", map[string]string{"status": "delivered"}, http.StatusConflict},
		{"delete billed order", http.MethodDelete, "/api/orders/" + order.ID, nil, http.StatusNoContent},
		{"get deleted", http.MethodGet, "/api/orders/" + order.ID, nil, http.StatusNotFound},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandlerCreateValidation(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f, func(c *gin.Context) { c.Next() })

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"missing table", map[string]interface{}{"waiterId": f.waiter.ID, "items": []map[string]interface{}{{"productId": f.burger.ID, "quantity": 1}}}, http.StatusBadRequest},
		{"zero quantity", map[string]interface{}{"tableId": f.table.ID, "waiterId": f.waiter.ID, "items": []map[string]interface{}{{"productId": f.burger.ID, "quantity": 0}}}, http.StatusBadRequest},
		{"unknown table", map[string]interface{}{"tableId": "nope", "waiterId": f.waiter.ID, "items": []map[string]interface{}{{"productId": f.burger.ID, "quantity": 1}}}, http.StatusNotFound},
		{"inactive product", map[string]interface{}{"tableId": f.table.ID, "waiterId": f.waiter.ID, "items": []map[string]interface{}{{"productId": f.retired.ID, "quantity": 1}}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/orders", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandlerDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	deny := func(c *gin.Context) {
		web.Abort(c, http.StatusForbidden, "FORBIDDEN", "admin only")
	}
	r := newTestRouter(f, deny)

	rec := do(t, r, http.MethodDelete, "/api/orders/any", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
