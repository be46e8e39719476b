package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-svc/coupons"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type fakeCouponStore struct {
	coupons map[string]*models.Coupon
	deleted []string
}

func (f *fakeCouponStore) List(ctx context.Context) ([]models.Coupon, error) {
	out := []models.Coupon{}
	for _, c := range f.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCouponStore) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return nil, coupons.ErrCouponNotFound
	}
	return c, nil
}

func (f *fakeCouponStore) Validate(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := f.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, coupons.ErrCouponInactive
	}
	return c, nil
}

func (f *fakeCouponStore) Create(ctx context.Context, req models.CreateCouponRequest) (*models.Coupon, error) {
	if _, ok := f.coupons[req.Code]; ok {
		return nil, coupons.ErrDuplicateCode
	}
	c := &models.Coupon{ID: "c-" + req.Code, Code: req.Code, Discount: req.Discount, IsActive: true}
	f.coupons[req.Code] = c
	return c, nil
}

func (f *fakeCouponStore) Update(ctx context.Context, id string, req models.UpdateCouponRequest) (*models.Coupon, error) {
	for _, c := range f.coupons {
		if c.ID == id {
			if req.Discount != nil {
				c.Discount = *req.Discount
			}
			if req.IsActive != nil {
				c.IsActive = *req.IsActive
			}
			return c, nil
		}
	}
	return nil, coupons.ErrCouponNotFound
}

func (f *fakeCouponStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func setupCouponTest(t *testing.T) (*gin.Engine, *fakeCouponStore) {
	store := &fakeCouponStore{coupons: map[string]*models.Coupon{
		"DESC50": {ID: "c-1", Code: "DESC50", Discount: decimal.NewFromInt(50), IsActive: true},
		"OFF":    {ID: "c-2", Code: "OFF", Discount: decimal.NewFromInt(5), IsActive: false},
	}}
	handler := NewCouponHandler(store, zaptest.NewLogger(t))

	router := newRouter()
	router.GET("/coupons", handler.ListCoupons)
	router.GET("/coupons/:code", handler.GetCoupon)
	router.GET("/coupons/:code/validate", handler.ValidateCoupon)
	router.POST("/coupons", handler.CreateCoupon)
	router.PUT("/coupons/:code", handler.UpdateCoupon)
	router.DELETE("/coupons/:code", handler.DeleteCoupon)
	return router, store
}

func TestCouponHandler_ValidateCoupon(t *testing.T) {
	router, _ := setupCouponTest(t)

	tests := []struct {
		name       string
		code       string
		wantStatus int
		wantKind   string
	}{
		{"active", "DESC50", http.StatusOK, ""},
		{"inactive", "OFF", http.StatusUnprocessableEntity, "coupon_inactive"},
		{"unknown", "NOPE", http.StatusNotFound, "coupon_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/coupons/"+tt.code+"/validate", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantKind == "" {
				return
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["kind"] != tt.wantKind {
				t.Errorf("Expected kind %q, got %q", tt.wantKind, body["kind"])
			}
		})
	}
}

func TestCouponHandler_CreateCoupon(t *testing.T) {
	router, _ := setupCouponTest(t)

	post := func(body string) int {
		req := httptest.NewRequest("POST", "/coupons", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := post(`{"code":"SPRING","discount":"10"}`); code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, code)
	}
	if code := post(`{"code":"DESC50","discount":"10"}`); code != http.StatusConflict {
		t.Errorf("Expected status %d for duplicate code, got %d", http.StatusConflict, code)
	}
	if code := post(`{"discount":"10"}`); code != http.StatusBadRequest {
		t.Errorf("Expected status %d for missing code, got %d", http.StatusBadRequest, code)
	}
}

func TestCouponHandler_UpdateResolvesCode(t *testing.T) {
	router, store := setupCouponTest(t)

	req := httptest.NewRequest("PUT", "/coupons/OFF", bytes.NewBufferString(`{"is_active":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !store.coupons["OFF"].IsActive {
		t.Error("Expected coupon to be reactivated")
	}
}

func TestCouponHandler_DeleteCoupon(t *testing.T) {
	router, store := setupCouponTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/coupons/DESC50", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "c-1" {
		t.Errorf("Expected c-1 to be deleted, got %v", store.deleted)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/coupons/NOPE", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
