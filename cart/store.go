package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-svc/models"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotInCart   = errors.New("product is not in the cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Store keeps one row per (user, product). Products are addressed by name, as shoppers see them.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add puts quantity units of the named product in the cart, adding to any quantity already there.
func (s *Store) Add(ctx context.Context, userID, productName string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productByName(ctx, productName)
	if err != nil {
		return nil, err
	}

	item := models.CartItem{Product: product}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, user_id, product_id, quantity, created_at`,
		uuid.NewString(), userID, product.ID, quantity,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return &item, nil
}

func (s *Store) List(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at,
		       p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		var p models.Product
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt,
			&p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		p.ID = item.ProductID
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart: %w", err)
	}
	return items, nil
}

// UpdateQuantity overwrites the quantity of a product already in the cart.
func (s *Store) UpdateQuantity(ctx context.Context, userID, productName string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productByName(ctx, productName)
	if err != nil {
		return nil, err
	}

	item := models.CartItem{Product: product}
	err = s.db.QueryRowContext(ctx, `
		UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3
		RETURNING id, user_id, product_id, quantity, created_at`,
		quantity, userID, product.ID,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotInCart, productName)
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return &item, nil
}

func (s *Store) Remove(ctx context.Context, userID, productName string) error {
	product, err := s.productByName(ctx, productName)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, product.ID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotInCart, productName)
	}
	return nil
}

// Clear empties the user's cart and reports how many rows were removed. An empty cart is not an error.
func (s *Store) Clear(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return n, nil
}

func (s *Store) productByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, price, stock, created_at, updated_at FROM products WHERE name = $1", name,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}
