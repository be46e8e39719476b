package handlers

import (
	"context"
	"fmt"
	"net/http"

	"storefront-svc/checkout"
	"storefront-svc/ledger"
	"storefront-svc/middleware"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderReader interface {
	Read(ctx context.Context, orderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}

type UserFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

type OrderHandler struct {
	orders OrderReader
	users  UserFinder
	logger *zap.Logger
}

func NewOrderHandler(orders OrderReader, users UserFinder, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, users: users, logger: logger}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	orders, err := h.orders.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder only reveals orders owned by the caller; anyone else's order is reported as missing.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := readOwnedOrder(ctx, h.orders, user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func readOwnedOrder(ctx context.Context, orders OrderReader, userID, orderID string) (*models.Order, error) {
	order, err := orders.Read(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ledger.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func currentUser(c *gin.Context, users UserFinder) (*models.User, error) {
	externalID := middleware.ExternalUserID(c)
	if externalID == "" {
		return nil, checkout.ErrUserNotFound
	}
	user, err := users.FindByExternalID(c.Request.Context(), externalID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %w", checkout.ErrStorage, err)
	}
	if user == nil {
		return nil, checkout.ErrUserNotFound
	}
	return user, nil
}
