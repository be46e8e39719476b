package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Coupon struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	IsActive  bool            `json:"is_active"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Expired reports whether the coupon has an expiry that is not after now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Usable reports whether the coupon can be applied at the given instant.
func (c *Coupon) Usable(now time.Time) bool {
	return c.IsActive && !c.Expired(now)
}

type CreateCouponRequest struct {
	Code      string          `json:"code" binding:"required"`
	Discount  decimal.Decimal `json:"discount"`
	IsActive  *bool           `json:"is_active"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

type UpdateCouponRequest struct {
	Discount  *decimal.Decimal `json:"discount"`
	IsActive  *bool            `json:"is_active"`
	ExpiresAt *time.Time       `json:"expires_at"`
}
