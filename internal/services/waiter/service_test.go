package waiter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
	"restaurant-system/internal/repository/memory"
	"restaurant-system/internal/services/auth"
	"restaurant-system/internal/web"
)

// sequence returns the given values in order, then zeros
func sequence(values ...int64) func(int64) (int64, error) {
	return func(n int64) (int64, error) {
		if len(values) == 0 {
			return 0, nil
		}
		v := values[0]
		values = values[1:]
		return v % n, nil
	}
}

func newService(t *testing.T) (*Service, *memory.Store, *events.Recorder) {
	t.Helper()
	store := memory.NewStore()
	rec := &events.Recorder{}
	return NewService(store.Waiters(), rec, logger.Discard()), store, rec
}

var ana = models.CreateWaiterRequest{
	FirstName:            "Ana",
	LastName:             "De la Cruz",
	IdentificationNumber: "ID-1",
	PhoneNumber:          "555-0100",
}

func TestCreateGeneratesCredentials(t *testing.T) {
	svc, store, rec := newService(t)

	creds, err := svc.Create(context.Background(), &ana, "req-1")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(creds.UserName, "ana.delacruz") {
		t.Fatalf("user name = %q", creds.UserName)
	}
	if len(creds.Password) != 8 {
		t.Fatalf("password length = %d", len(creds.Password))
	}
	for _, r := range creds.Password {
		if !strings.ContainsRune(passwordCharset, r) {
			t.Fatalf("password has unexpected character %q", r)
		}
	}

	stored, err := store.Waiters().FindByID(context.Background(), creds.Waiter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash == creds.Password || auth.CheckPassword(stored.PasswordHash, creds.Password) != nil {
		t.Fatal("stored password is not a hash of the returned password")
	}

	last := rec.Last()
	if last == nil || last.Type != models.EventWaiterChanged || len(last.Families) != 2 {
		t.Fatalf("event = %+v", last)
	}
}

func TestCreateRetriesTakenUserName(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	if err := store.Waiters().Create(ctx, &models.Waiter{UserName: "ana.delacruz7", IdentificationNumber: "ID-0"}); err != nil {
		t.Fatal(err)
	}

	svc.randomInt = sequence(7, 42)
	creds, err := svc.Create(ctx, &ana, "")
	if err != nil {
		t.Fatal(err)
	}
	if creds.UserName != "ana.delacruz42" {
		t.Fatalf("user name = %q, want ana.delacruz42", creds.UserName)
	}
}

func TestCreateGivesUpWhenEveryNameIsTaken(t *testing.T) {
	svc, store, rec := newService(t)
	ctx := context.Background()
	if err := store.Waiters().Create(ctx, &models.Waiter{UserName: "ana.delacruz0", IdentificationNumber: "ID-0"}); err != nil {
		t.Fatal(err)
	}

	svc.randomInt = sequence()
	if _, err := svc.Create(ctx, &ana, ""); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if len(rec.Events) != 0 {
		t.Fatal("failed create emitted an event")
	}
}

func TestCreateDuplicateIdentification(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, &ana, ""); err != nil {
		t.Fatal(err)
	}
	other := ana
	other.FirstName = "Luis"
	if _, err := svc.Create(ctx, &other, ""); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	creds, err := svc.Create(ctx, &ana, "")
	if err != nil {
		t.Fatal(err)
	}

	phone := "555-0199"
	updated, err := svc.Update(ctx, creds.Waiter.ID, &models.UpdateWaiterRequest{PhoneNumber: &phone}, "")
	if err != nil {
		t.Fatal(err)
	}
	if updated.PhoneNumber != phone || updated.UserName != creds.UserName || updated.FirstName != "Ana" {
		t.Fatalf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, creds.Waiter.ID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, creds.Waiter.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("get deleted error = %v", err)
	}
	if _, err := svc.Update(ctx, creds.Waiter.ID, &models.UpdateWaiterRequest{PhoneNumber: &phone}, ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("update deleted error = %v", err)
	}
}

func TestCreatedWaiterCanLogIn(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	creds, err := svc.Create(ctx, &ana, "")
	if err != nil {
		t.Fatal(err)
	}

	authService := auth.NewService(store.Users(), store.Waiters(), "secret", time.Hour, logger.Discard())
	resp, err := authService.Login(ctx, &models.LoginRequest{UserName: creds.UserName, Password: creds.Password}, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Role != models.RoleWaiter || resp.UserID != creds.Waiter.ID {
		t.Fatalf("login = %+v", resp)
	}
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, _ := newService(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(web.RequestID())
	NewHandler(svc, logger.Discard()).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	body := `{"firstName":"Ana","lastName":"Lopez","identificationNumber":"X1","phoneNumber":"555"}`
	rec := do(http.MethodPost, "/api/waiters", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"password"`) || strings.Contains(rec.Body.String(), "passwordHash") {
		t.Fatalf("create body = %s", rec.Body.String())
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"duplicate", http.MethodPost, "/api/waiters", body, http.StatusConflict},
		{"missing fields", http.MethodPost, "/api/waiters", `{"firstName":"Ana"}`, http.StatusBadRequest},
		{"list", http.MethodGet, "/api/waiters", "", http.StatusOK},
		{"unknown", http.MethodGet, "/api/waiters/nope", "", http.StatusNotFound},
		{"empty name update", http.MethodPut, "/api/waiters/nope", `{"firstName":""}`, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/waiters/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(tt.method, tt.path, tt.body); rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
