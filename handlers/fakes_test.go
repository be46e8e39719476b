package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-svc/checkout"
	"storefront-svc/ledger"
	"storefront-svc/middleware"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("handler-secret")

func bearer(t *testing.T, externalID string) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, externalID, externalID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return "Bearer " + token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

type fakeEngine struct {
	order      *models.Order
	err        error
	calls      int
	externalID string
	req        checkout.Request
}

func (f *fakeEngine) PlaceOrder(ctx context.Context, externalUserID string, req checkout.Request) (*models.Order, error) {
	f.calls++
	f.externalID = externalUserID
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakeOrders struct {
	orders map[string]*models.Order
}

func (f *fakeOrders) Read(ctx context.Context, orderID string) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ledger.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeUserFinder struct {
	users map[string]*models.User
}

func (f *fakeUserFinder) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return f.users[externalID], nil
}

func defaultUsers() *fakeUserFinder {
	return &fakeUserFinder{users: map[string]*models.User{
		"ext-1": {ID: "u-1", ExternalID: "ext-1", Name: "Ana"},
		"ext-2": {ID: "u-2", ExternalID: "ext-2", Name: "Bruno"},
	}}
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	f.published = append(f.published, order.ID)
	return f.err
}

type idemEntry struct {
	orderID string
}

type fakeIdempotency struct {
	mu          sync.Mutex
	entries     map[string]*idemEntry
	released    []string
	reserveErr  error
	completeErr error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{entries: map[string]*idemEntry{}}
}

func (f *fakeIdempotency) ReserveIdempotencyKey(ctx context.Context, userID, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return "", false, f.reserveErr
	}
	k := userID + "/" + key
	if e, ok := f.entries[k]; ok {
		return e.orderID, false, nil
	}
	f.entries[k] = &idemEntry{}
	return "", true, nil
}

func (f *fakeIdempotency) CompleteIdempotencyKey(ctx context.Context, userID, key, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	f.entries[userID+"/"+key] = &idemEntry{orderID: orderID}
	return nil
}

func (f *fakeIdempotency) ReleaseIdempotencyKey(ctx context.Context, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, userID+"/"+key)
	f.released = append(f.released, key)
	return nil
}
