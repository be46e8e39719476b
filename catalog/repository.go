package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront-svc/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateName   = errors.New("product name already exists")
	ErrInvalidProduct  = errors.New("invalid product")

	ErrInvalidPriceRange = errors.New("invalid price range")
)

const productColumns = "id, name, description, price, stock, created_at, updated_at"

// Repository reads and manages products. Stock is never decremented here; only the
// order ledger does that, inside its commit transaction.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindProductsByIDs resolves ids in one query. Unknown ids are simply absent from the result.
func (r *Repository) FindProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	ctx, span := otel.Tracer("storefront-service/catalog").Start(ctx, "catalog.FindProductsByIDs")
	defer span.End()
	span.SetAttributes(attribute.Int("products.requested", len(ids)))

	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("products.found", len(products)))
	return products, nil
}

func (r *Repository) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
}

func (r *Repository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	return r.findOne(ctx, "SELECT "+productColumns+" FROM products WHERE name = $1", name)
}

func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// Search matches the term against name and description, case-insensitively.
func (r *Repository) Search(ctx context.Context, term string) ([]models.Product, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name ILIKE $1 OR description ILIKE $1 ORDER BY name",
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// FindByPriceRange returns products priced within [min, max], cheapest first.
func (r *Repository) FindByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error) {
	if min.IsNegative() || max.IsNegative() {
		return nil, fmt.Errorf("%w: bounds must not be negative", ErrInvalidPriceRange)
	}
	if min.GreaterThan(max) {
		return nil, fmt.Errorf("%w: min %s is greater than max %s", ErrInvalidPriceRange, min, max)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE price >= $1 AND price <= $2 ORDER BY price, name",
		min, max,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *Repository) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() || req.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock must not be negative", ErrInvalidProduct)
	}

	var p models.Product
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO products (id, name, description, price, stock) VALUES ($1, $2, $3, $4, $5) RETURNING "+productColumns,
		uuid.NewString(), req.Name, req.Description, req.Price, req.Stock,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translateWriteErr(err, req.Name)
	}
	return &p, nil
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	if (req.Price != nil && req.Price.IsNegative()) || (req.Stock != nil && *req.Stock < 0) {
		return nil, fmt.Errorf("%w: price and stock must not be negative", ErrInvalidProduct)
	}

	// Build update query dynamically
	query := "UPDATE products SET updated_at = CURRENT_TIMESTAMP"
	args := []any{}
	argPos := 1

	if req.Name != nil {
		query += ", name = $" + strconv.Itoa(argPos)
		args = append(args, *req.Name)
		argPos++
	}
	if req.Description != nil {
		query += ", description = $" + strconv.Itoa(argPos)
		args = append(args, *req.Description)
		argPos++
	}
	if req.Price != nil {
		query += ", price = $" + strconv.Itoa(argPos)
		args = append(args, *req.Price)
		argPos++
	}
	if req.Stock != nil {
		query += ", stock = $" + strconv.Itoa(argPos)
		args = append(args, *req.Stock)
		argPos++
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING " + productColumns
	args = append(args, id)

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		name := id
		if req.Name != nil {
			name = *req.Name
		}
		return nil, translateWriteErr(err, name)
	}
	return &p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, query, arg string) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, arg)
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func translateWriteErr(err error, name string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return fmt.Errorf("failed to write product: %w", err)
}
