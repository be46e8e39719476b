package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable record of one successful checkout.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	FinalTotal    decimal.Decimal `json:"final_total"`
	PaymentMethod string          `json:"payment_method"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []OrderLine     `json:"items"`
}

// OrderLine captures the unit price at purchase time.
type OrderLine struct {
	LineNo    int             `json:"line_no"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderEvent struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	ProductIDs []string        `json:"product_ids"`
	FinalTotal decimal.Decimal `json:"final_total"`
	EventType  string          `json:"event_type"` // order_placed
	OccurredAt time.Time       `json:"occurred_at"`
}

const EventOrderPlaced = "order_placed"
