package handlers

import (
	"errors"
	"net/http"

	"storefront-svc/cart"
	"storefront-svc/catalog"
	"storefront-svc/checkout"
	"storefront-svc/circuitbreaker"
	"storefront-svc/coupons"
	"storefront-svc/ledger"
	"storefront-svc/middleware"
	"storefront-svc/users"
	"storefront-svc/wishlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classify maps an error from any storefront package to an HTTP status and a stable kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, wishlist.ErrProductNotFound):
		return http.StatusNotFound, string(checkout.KindProductNotFound)
	case errors.Is(err, cart.ErrItemNotInCart):
		return http.StatusNotFound, "cart_item_not_found"
	case errors.Is(err, wishlist.ErrItemNotInWishlist):
		return http.StatusNotFound, "wishlist_item_not_found"
	case errors.Is(err, ledger.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, catalog.ErrDuplicateName), errors.Is(err, coupons.ErrDuplicateCode), errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict, "conflict"
	case errors.Is(err, catalog.ErrInvalidProduct), errors.Is(err, catalog.ErrInvalidPriceRange),
		errors.Is(err, coupons.ErrInvalidCoupon), errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, string(checkout.KindInvalidRequest)
	case errors.Is(err, users.ErrUserNotFound):
		return http.StatusUnauthorized, string(checkout.KindUserNotFound)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "unavailable"
	}

	kind := checkout.KindOf(err)
	switch kind {
	case checkout.KindInvalidRequest:
		return http.StatusBadRequest, string(kind)
	case checkout.KindUserNotFound:
		return http.StatusUnauthorized, string(kind)
	case checkout.KindProductNotFound, checkout.KindCouponNotFound:
		return http.StatusNotFound, string(kind)
	case checkout.KindInsufficientStock:
		return http.StatusConflict, string(kind)
	case checkout.KindCouponInactive, checkout.KindCouponExpired:
		return http.StatusUnprocessableEntity, string(kind)
	default:
		return http.StatusInternalServerError, string(checkout.KindStorage)
	}
}

// respondError writes {"error","kind"}. Internal details of 5xx errors are logged, not returned.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code, kind := classify(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "Internal server error"
		if code == http.StatusServiceUnavailable {
			msg = "Service temporarily unavailable"
		}
	}
	c.JSON(code, gin.H{"error": msg, "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": string(checkout.KindInvalidRequest)})
}

// grpcError maps the same taxonomy onto gRPC status codes.
func grpcError(err error) error {
	code, kind := classify(err)
	var grpcCode codes.Code
	switch code {
	case http.StatusBadRequest:
		grpcCode = codes.InvalidArgument
	case http.StatusUnauthorized:
		grpcCode = codes.Unauthenticated
	case http.StatusNotFound:
		grpcCode = codes.NotFound
	case http.StatusConflict:
		if kind == string(checkout.KindInsufficientStock) {
			grpcCode = codes.FailedPrecondition
		} else {
			grpcCode = codes.AlreadyExists
		}
	case http.StatusUnprocessableEntity:
		grpcCode = codes.FailedPrecondition
	case http.StatusServiceUnavailable:
		grpcCode = codes.Unavailable
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(grpcCode, kind+": "+err.Error())
}
