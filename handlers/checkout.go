package handlers

import (
	"context"
	"net/http"

	"storefront-svc/checkout"
	"storefront-svc/middleware"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, externalUserID string, req checkout.Request) (*models.Order, error)
}

type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
}

type IdempotencyStore interface {
	ReserveIdempotencyKey(ctx context.Context, userID, key string) (orderID string, reserved bool, err error)
	CompleteIdempotencyKey(ctx context.Context, userID, key, orderID string) error
	ReleaseIdempotencyKey(ctx context.Context, userID, key string) error
}

type CheckoutHandler struct {
	engine      OrderPlacer
	orders      OrderReader
	events      OrderEventPublisher
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewCheckoutHandler wires the checkout endpoint. events and idempotency may be nil.
func NewCheckoutHandler(engine OrderPlacer, orders OrderReader, events OrderEventPublisher, idempotency IdempotencyStore, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		engine:      engine,
		orders:      orders,
		events:      events,
		idempotency: idempotency,
		logger:      logger,
	}
}

func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	ctx := c.Request.Context()
	traceID := middleware.GetTraceID(ctx)

	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	externalID := middleware.ExternalUserID(c)
	key := c.GetHeader(idempotencyHeader)
	useKey := key != "" && h.idempotency != nil

	if useKey {
		orderID, reserved, err := h.idempotency.ReserveIdempotencyKey(ctx, externalID, key)
		switch {
		case err != nil:
			// Idempotency store unavailable: place the order without replay protection.
			h.logger.Warn("Idempotency key reservation failed, continuing without it",
				zap.String("trace_id", traceID), zap.Error(err))
			useKey = false
		case !reserved:
			h.replay(c, orderID)
			return
		}
	}

	order, err := h.engine.PlaceOrder(ctx, externalID, req)
	if err != nil {
		if useKey {
			if relErr := h.idempotency.ReleaseIdempotencyKey(context.WithoutCancel(ctx), externalID, key); relErr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.String("trace_id", traceID), zap.Error(relErr))
			}
		}
		respondError(c, h.logger, err)
		return
	}

	if useKey {
		if err := h.idempotency.CompleteIdempotencyKey(context.WithoutCancel(ctx), externalID, key, order.ID); err != nil {
			h.logger.Warn("Failed to record idempotency key", zap.String("trace_id", traceID), zap.String("order_id", order.ID), zap.Error(err))
			// the key must not stay pending without an order id
			if relErr := h.idempotency.ReleaseIdempotencyKey(context.WithoutCancel(ctx), externalID, key); relErr != nil {
				h.logger.Warn("Failed to release idempotency key", zap.String("trace_id", traceID), zap.Error(relErr))
			}
		}
	}

	if h.events != nil {
		if err := h.events.PublishOrderPlaced(ctx, order); err != nil {
			// Don't fail the request, the order is already committed
			h.logger.Error("Failed to publish order_placed event", zap.String("trace_id", traceID), zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, order)
}

func (h *CheckoutHandler) replay(c *gin.Context, orderID string) {
	if orderID == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error": "A request with this Idempotency-Key is already in progress",
			"kind":  "idempotency_conflict",
		})
		return
	}

	order, err := h.orders.Read(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Idempotent-Replayed", "true")
	c.JSON(http.StatusOK, order)
}
