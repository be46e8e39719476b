package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-svc/checkout"
	"storefront-svc/models"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var ErrOrderNotFound = errors.New("order not found")

const (
	tracerName   = "storefront-service/ledger"
	orderColumns = "id, user_id, subtotal, discount, final_total, payment_method, coupon_code, created_at"
)

// Postgres is the only writer of product stock. Orders are insert-only.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Commit applies every decrement and inserts the order with its lines in one transaction.
// Decrements must already be aggregated per product; they are applied in the given order.
func (l *Postgres) Commit(ctx context.Context, order *models.Order, decrements []checkout.StockDecrement) (*models.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ledger.Commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.decrements", len(decrements)),
	)

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: begin transaction: %w", checkout.ErrStorage, err)
	}
	defer tx.Rollback()

	for _, d := range decrements {
		result, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
			d.Quantity, d.ProductID,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: decrement stock for %s: %w", checkout.ErrStorage, d.ProductID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: decrement stock for %s: %w", checkout.ErrStorage, d.ProductID, err)
		}
		if n == 0 {
			// the deferred rollback undoes earlier decrements
			var exists bool
			if err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", d.ProductID,
			).Scan(&exists); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%w: check product %s: %w", checkout.ErrStorage, d.ProductID, err)
			}
			if !exists {
				span.SetStatus(codes.Error, "product removed before commit")
				l.logger.Info("Product removed before commit, rolling back",
					zap.String("order_id", order.ID),
					zap.String("product_id", d.ProductID),
				)
				return nil, fmt.Errorf("%w: %s", checkout.ErrProductNotFound, d.ProductID)
			}

			span.SetStatus(codes.Error, "insufficient stock at commit")
			l.logger.Info("Conditional stock decrement failed, rolling back",
				zap.String("order_id", order.ID),
				zap.String("product_id", d.ProductID),
				zap.Int("quantity", d.Quantity),
			)
			return nil, &checkout.StockError{ProductID: d.ProductID, Requested: d.Quantity, Available: -1}
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		order.ID, order.UserID, order.Subtotal, order.Discount, order.FinalTotal,
		order.PaymentMethod, order.CouponCode, order.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: insert order: %w", checkout.ErrStorage, err)
	}

	for _, line := range order.Lines {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)",
			order.ID, line.LineNo, line.ProductID, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: insert order line %d: %w", checkout.ErrStorage, line.LineNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: commit transaction: %w", checkout.ErrStorage, err)
	}

	committed := *order
	committed.Lines = append([]models.OrderLine(nil), order.Lines...)
	return &committed, nil
}

func (l *Postgres) Read(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := l.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID,
	).Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.FinalTotal, &o.PaymentMethod, &o.CouponCode, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	lines, err := l.linesFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	if o.Lines == nil {
		o.Lines = []models.OrderLine{}
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (l *Postgres) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	var ids []string
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.FinalTotal, &o.PaymentMethod, &o.CouponCode, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lines, err := l.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []models.OrderLine{}
		}
	}
	return orders, nil
}

func (l *Postgres) linesFor(ctx context.Context, orderIDs []string) (map[string][]models.OrderLine, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT order_id, line_no, product_id, quantity, unit_price FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no",
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]models.OrderLine, len(orderIDs))
	for rows.Next() {
		var orderID string
		var line models.OrderLine
		if err := rows.Scan(&orderID, &line.LineNo, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines[orderID] = append(lines[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}
	return lines, nil
}
