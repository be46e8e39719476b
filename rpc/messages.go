package rpc

import "storefront-svc/models"

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items         []OrderItem `json:"items"`
	PaymentMethod string      `json:"paymentMethod"`
	CouponCode    string      `json:"couponCode,omitempty"`
}

type PlaceOrderResponse struct {
	Order *models.Order `json:"order"`
}

type GetOrderRequest struct {
	OrderID string `json:"orderId"`
}

type GetOrderResponse struct {
	Order *models.Order `json:"order"`
}
