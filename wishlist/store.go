package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-svc/models"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrItemNotInWishlist = errors.New("product is not in the wishlist")
)

const productColumns = "id, name, description, price, stock, created_at, updated_at"

// Store keeps at most one row per (user, product). Like the cart, products are addressed by name.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add saves the named product. Adding a product that is already saved returns the existing entry.
func (s *Store) Add(ctx context.Context, userID, productName string) (*models.WishItem, error) {
	product, err := s.productByName(ctx, productName)
	if err != nil {
		return nil, err
	}

	item := models.WishItem{Product: product}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO wish_items (id, user_id, product_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, product_id, created_at`,
		uuid.NewString(), userID, product.ID,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return &item, nil
}

func (s *Store) List(ctx context.Context, userID string) ([]models.WishItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.user_id, w.product_id, w.created_at,
		       p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM wish_items w JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wishlist: %w", err)
	}
	defer rows.Close()

	items := []models.WishItem{}
	for rows.Next() {
		var item models.WishItem
		var p models.Product
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.CreatedAt,
			&p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		p.ID = item.ProductID
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist: %w", err)
	}
	return items, nil
}

// Contains reports whether the named product is saved by the user.
func (s *Store) Contains(ctx context.Context, userID, productName string) (bool, error) {
	product, err := s.productByName(ctx, productName)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM wish_items WHERE user_id = $1 AND product_id = $2)",
		userID, product.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}
	return exists, nil
}

func (s *Store) Remove(ctx context.Context, userID, productName string) error {
	product, err := s.productByName(ctx, productName)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM wish_items WHERE user_id = $1 AND product_id = $2", userID, product.ID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotInWishlist, productName)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM wish_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear wishlist: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear wishlist: %w", err)
	}
	return n, nil
}

func (s *Store) productByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name = $1", name,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrProductNotFound, name)
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}
