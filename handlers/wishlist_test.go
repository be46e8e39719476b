package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/wishlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeWishlistStore struct {
	items map[string]map[string]bool
}

func (f *fakeWishlistStore) Add(ctx context.Context, userID, productName string) (*models.WishItem, error) {
	if productName == "Ghost" {
		return nil, wishlist.ErrProductNotFound
	}
	if f.items[userID] == nil {
		f.items[userID] = map[string]bool{}
	}
	f.items[userID][productName] = true
	return &models.WishItem{UserID: userID, ProductID: productName}, nil
}

func (f *fakeWishlistStore) List(ctx context.Context, userID string) ([]models.WishItem, error) {
	out := []models.WishItem{}
	for name := range f.items[userID] {
		out = append(out, models.WishItem{UserID: userID, ProductID: name})
	}
	return out, nil
}

func (f *fakeWishlistStore) Contains(ctx context.Context, userID, productName string) (bool, error) {
	if productName == "Ghost" {
		return false, wishlist.ErrProductNotFound
	}
	return f.items[userID][productName], nil
}

func (f *fakeWishlistStore) Remove(ctx context.Context, userID, productName string) error {
	if !f.items[userID][productName] {
		return wishlist.ErrItemNotInWishlist
	}
	delete(f.items[userID], productName)
	return nil
}

func (f *fakeWishlistStore) Clear(ctx context.Context, userID string) (int64, error) {
	n := int64(len(f.items[userID]))
	delete(f.items, userID)
	return n, nil
}

func setupWishlistTest(t *testing.T) (*gin.Engine, *fakeWishlistStore) {
	store := &fakeWishlistStore{items: map[string]map[string]bool{}}
	handler := NewWishlistHandler(store, defaultUsers(), zaptest.NewLogger(t))

	router := newRouter()
	group := router.Group("/", middleware.AuthMiddleware(testSecret))
	group.GET("/wishlist", handler.GetWishlist)
	group.POST("/wishlist", handler.AddItem)
	group.DELETE("/wishlist/:productName", handler.RemoveItem)
	group.DELETE("/wishlist", handler.ClearWishlist)
	return router, store
}

func TestWishlistHandler_AddAndList(t *testing.T) {
	router, store := setupWishlistTest(t)

	for i := 0; i < 2; i++ {
		w := cartRequest(t, router, "POST", "/wishlist", `{"productName":"Mate"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status %d, got %d", http.StatusCreated, w.Code)
		}
	}
	if len(store.items["u-1"]) != 1 {
		t.Errorf("Expected 1 saved product, got %d", len(store.items["u-1"]))
	}

	w := cartRequest(t, router, "GET", "/wishlist", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var items []models.WishItem
	json.Unmarshal(w.Body.Bytes(), &items)
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestWishlistHandler_AddValidation(t *testing.T) {
	router, _ := setupWishlistTest(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing product", `{}`, http.StatusBadRequest},
		{"unknown product", `{"productName":"Ghost"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := cartRequest(t, router, "POST", "/wishlist", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWishlistHandler_Contains(t *testing.T) {
	router, store := setupWishlistTest(t)
	store.items["u-1"] = map[string]bool{"Mate": true}

	tests := []struct {
		name string
		want bool
	}{
		{"Mate", true},
		{"Bombilla", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := cartRequest(t, router, "GET", "/wishlist?productName="+tt.name, "")
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
			}
			var body struct {
				InWishlist bool `json:"inWishlist"`
			}
			json.Unmarshal(w.Body.Bytes(), &body)
			if body.InWishlist != tt.want {
				t.Errorf("Expected inWishlist %v, got %v", tt.want, body.InWishlist)
			}
		})
	}
}

func TestWishlistHandler_RemoveAndClear(t *testing.T) {
	router, store := setupWishlistTest(t)
	store.items["u-1"] = map[string]bool{"Mate": true, "Bombilla": true, "Yerba": true}

	if w := cartRequest(t, router, "DELETE", "/wishlist/Mate", ""); w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	w := cartRequest(t, router, "DELETE", "/wishlist/Mate", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d for item not in wishlist, got %d", http.StatusNotFound, w.Code)
	}
	var errBody map[string]string
	json.Unmarshal(w.Body.Bytes(), &errBody)
	if errBody["kind"] != "wishlist_item_not_found" {
		t.Errorf("Expected kind wishlist_item_not_found, got %q", errBody["kind"])
	}

	w = cartRequest(t, router, "DELETE", "/wishlist", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var body map[string]int64
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["removed"] != 2 {
		t.Errorf("Expected 2 removed, got %d", body["removed"])
	}
}
