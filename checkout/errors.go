package checkout

import (
	"errors"
	"fmt"

	"storefront-svc/coupons"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUserNotFound      = errors.New("user not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorage           = errors.New("storage error")
)

// Kind is the stable, transport-independent classification of a checkout failure.
type Kind string

const (
	KindInvalidRequest    Kind = "invalid_request"
	KindUserNotFound      Kind = "user_not_found"
	KindProductNotFound   Kind = "product_not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindCouponNotFound    Kind = "coupon_not_found"
	KindCouponInactive    Kind = "coupon_inactive"
	KindCouponExpired     Kind = "coupon_expired"
	KindStorage           Kind = "storage_error"
)

// KindOf classifies err. Anything unrecognised is a storage error.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrProductNotFound):
		return KindProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, coupons.ErrCouponNotFound):
		return KindCouponNotFound
	case errors.Is(err, coupons.ErrCouponInactive):
		return KindCouponInactive
	case errors.Is(err, coupons.ErrCouponExpired):
		return KindCouponExpired
	default:
		return KindStorage
	}
}

// Retryable reports whether resubmitting the same request may succeed.
func (k Kind) Retryable() bool {
	return k == KindInsufficientStock || k == KindStorage
}

// StockError names the product that could not cover the requested quantity.
// Available is -1 when the shortfall was detected by the conditional decrement at commit.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	label := e.ProductID
	if e.Name != "" {
		label = fmt.Sprintf("%s (%s)", e.Name, e.ProductID)
	}
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for %s: requested %d", label, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", label, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
