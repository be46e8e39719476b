package handlers

import (
	"context"
	"net/http"

	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WishlistStore interface {
	Add(ctx context.Context, userID, productName string) (*models.WishItem, error)
	List(ctx context.Context, userID string) ([]models.WishItem, error)
	Contains(ctx context.Context, userID, productName string) (bool, error)
	Remove(ctx context.Context, userID, productName string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type WishlistHandler struct {
	store  WishlistStore
	users  UserFinder
	logger *zap.Logger
}

func NewWishlistHandler(store WishlistStore, users UserFinder, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{store: store, users: users, logger: logger}
}

// GetWishlist lists saved products, or with ?productName= reports whether that one is saved.
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if name := c.Query("productName"); name != "" {
		ok, err := h.store.Contains(c.Request.Context(), user.ID, name)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"productName": name, "inWishlist": ok})
		return
	}

	items, err := h.store.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *WishlistHandler) AddItem(c *gin.Context) {
	var req models.WishItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	item, err := h.store.Add(c.Request.Context(), user.ID, req.ProductName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *WishlistHandler) RemoveItem(c *gin.Context) {
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

func (h *WishlistHandler) ClearWishlist(c *gin.Context) {
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
