package models

import "time"

type WishItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WishItemRequest struct {
	ProductName string `json:"productName" binding:"required"`
}
