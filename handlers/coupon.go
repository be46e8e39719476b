package handlers

import (
	"context"
	"net/http"

	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CouponStore interface {
	List(ctx context.Context) ([]models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Validate(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, req models.CreateCouponRequest) (*models.Coupon, error)
	Update(ctx context.Context, id string, req models.UpdateCouponRequest) (*models.Coupon, error)
	Delete(ctx context.Context, id string) error
}

type CouponHandler struct {
	store  CouponStore
	logger *zap.Logger
}

func NewCouponHandler(store CouponStore, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{store: store, logger: logger}
}

func (h *CouponHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.store.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, coupons)
}

func (h *CouponHandler) GetCoupon(c *gin.Context) {
	coupon, err := h.store.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// ValidateCoupon applies the same rules checkout does, without placing an order.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	coupon, err := h.store.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "coupon": coupon})
}

func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req models.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	coupon, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Coupon created", zap.String("code", coupon.Code))
	c.JSON(http.StatusCreated, coupon)
}

func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	var req models.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	existing, err := h.store.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	coupon, err := h.store.Update(c.Request.Context(), existing.ID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	existing, err := h.store.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.store.Delete(c.Request.Context(), existing.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Coupon deleted", zap.String("code", existing.Code))
	c.Status(http.StatusNoContent)
}
