package handlers

import (
	"context"
	"net/http"

	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartStore interface {
	Add(ctx context.Context, userID, productName string, quantity int) (*models.CartItem, error)
	List(ctx context.Context, userID string) ([]models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, productName string, quantity int) (*models.CartItem, error)
	Remove(ctx context.Context, userID, productName string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type CartHandler struct {
	store  CartStore
	users  UserFinder
	logger *zap.Logger
}

func NewCartHandler(store CartStore, users UserFinder, logger *zap.Logger) *CartHandler {
	return &CartHandler{store: store, users: users, logger: logger}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	items, err := h.store.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req models.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	item, err := h.store.Add(c.Request.Context(), user.ID, req.ProductName, req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req models.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	item, err := h.store.UpdateQuantity(c.Request.Context(), user.ID, req.ProductName, req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.store.Remove(c.Request.Context(), user.ID, c.Param("productName")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	removed, err := h.store.Clear(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
