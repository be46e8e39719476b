package handlers

import (
	"context"
	"errors"
	"testing"

	"storefront-svc/checkout"
	"storefront-svc/coupons"
	"storefront-svc/models"
	"storefront-svc/rpc"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCheckoutService_PlaceOrderErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{"invalid request", checkout.ErrInvalidRequest, codes.InvalidArgument},
		{"unknown user", checkout.ErrUserNotFound, codes.Unauthenticated},
		{"unknown product", checkout.ErrProductNotFound, codes.NotFound},
		{"unknown coupon", coupons.ErrCouponNotFound, codes.NotFound},
		{"insufficient stock", &checkout.StockError{ProductID: "p1", Requested: 2, Available: 1}, codes.FailedPrecondition},
		{"expired coupon", coupons.ErrCouponExpired, codes.FailedPrecondition},
		{"storage", errors.New("connection reset"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCheckoutService(&fakeEngine{err: tt.err}, &fakeOrders{}, defaultUsers(), nil, zaptest.NewLogger(t))

			_, err := svc.PlaceOrder(context.Background(), &rpc.PlaceOrderRequest{
				Items:         []rpc.OrderItem{{ProductID: "p1", Quantity: 1}},
				PaymentMethod: "card",
			})
			if got := status.Code(err); got != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestCheckoutService_PlaceOrderPublishes(t *testing.T) {
	engine := &fakeEngine{order: &models.Order{ID: "o-1", UserID: "u-1"}}
	events := &fakePublisher{}
	svc := NewCheckoutService(engine, &fakeOrders{}, defaultUsers(), events, zaptest.NewLogger(t))

	resp, err := svc.PlaceOrder(context.Background(), &rpc.PlaceOrderRequest{
		Items:         []rpc.OrderItem{{ProductID: "p1", Quantity: 2}},
		PaymentMethod: "card",
		CouponCode:    "DESC50",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Order.ID != "o-1" {
		t.Errorf("Expected order o-1, got %s", resp.Order.ID)
	}
	if engine.req.CouponCode != "DESC50" || len(engine.req.Items) != 1 || engine.req.Items[0].Quantity != 2 {
		t.Errorf("Expected request to be passed through, got %+v", engine.req)
	}
	if len(events.published) != 1 {
		t.Errorf("Expected 1 published event, got %d", len(events.published))
	}
}

func TestCheckoutService_GetOrderRequiresIdentity(t *testing.T) {
	svc := NewCheckoutService(&fakeEngine{}, &fakeOrders{}, defaultUsers(), nil, zaptest.NewLogger(t))

	_, err := svc.GetOrder(context.Background(), &rpc.GetOrderRequest{OrderID: "o-1"})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}
}
