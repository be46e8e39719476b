package handlers

import (
	"context"

	"storefront-svc/checkout"
	"storefront-svc/middleware"
	"storefront-svc/rpc"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CheckoutService serves rpc.CheckoutServiceServer on top of the same engine as the REST handler.
type CheckoutService struct {
	engine OrderPlacer
	orders OrderReader
	users  UserFinder
	events OrderEventPublisher
	logger *zap.Logger
}

func NewCheckoutService(engine OrderPlacer, orders OrderReader, users UserFinder, events OrderEventPublisher, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		engine: engine,
		orders: orders,
		users:  users,
		events: events,
		logger: logger,
	}
}

func (s *CheckoutService) PlaceOrder(ctx context.Context, req *rpc.PlaceOrderRequest) (*rpc.PlaceOrderResponse, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "PlaceOrder_gRPC")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(req.Items)))

	items := make([]checkout.Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = checkout.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := s.engine.PlaceOrder(ctx, rpc.ExternalUserID(ctx), checkout.Request{
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		span.RecordError(err)
		return nil, grpcError(err)
	}

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			s.logger.Error("Failed to publish order_placed event",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	return &rpc.PlaceOrderResponse{Order: order}, nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, req *rpc.GetOrderRequest) (*rpc.GetOrderResponse, error) {
	externalID := rpc.ExternalUserID(ctx)
	if externalID == "" {
		return nil, grpcError(checkout.ErrUserNotFound)
	}

	user, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, grpcError(err)
	}
	if user == nil {
		return nil, grpcError(checkout.ErrUserNotFound)
	}

	order, err := readOwnedOrder(ctx, s.orders, user.ID, req.OrderID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &rpc.GetOrderResponse{Order: order}, nil
}
