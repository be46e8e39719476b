package coupons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-svc/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCouponInactive = errors.New("coupon is inactive")
	ErrCouponExpired  = errors.New("coupon has expired")
	ErrDuplicateCode  = errors.New("coupon code already exists")
	ErrInvalidCoupon  = errors.New("invalid coupon")
)

const couponColumns = "id, code, discount, is_active, expires_at, created_at"

// Repository stores coupons in Postgres and validates them for checkout.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Validate returns the coupon for code if it is active and not expired.
// It only reads, so repeated calls without a state change return the same outcome.
func (r *Repository) Validate(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, span := otel.Tracer("storefront-service/coupons").Start(ctx, "coupons.Validate")
	defer span.End()
	span.SetAttributes(attribute.String("coupon.code", code))

	coupon, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !coupon.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrCouponInactive, code)
	}
	if coupon.Expired(r.now()) {
		return nil, fmt.Errorf("%w: %s", ErrCouponExpired, code)
	}
	return coupon, nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE code = $1",
		code,
	)
	coupon, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return coupon, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *Repository) Create(ctx context.Context, req models.CreateCouponRequest) (*models.Coupon, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || req.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: code is required and discount must not be negative", ErrInvalidCoupon)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	row := r.db.QueryRowContext(ctx,
		"INSERT INTO coupons (id, code, discount, is_active, expires_at) VALUES ($1, $2, $3, $4, $5) RETURNING "+couponColumns,
		uuid.NewString(), code, req.Discount, active, req.ExpiresAt,
	)
	coupon, err := scanCoupon(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	r.logger.Info("Coupon created", zap.String("code", coupon.Code))
	return coupon, nil
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdateCouponRequest) (*models.Coupon, error) {
	if req.Discount != nil && req.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrInvalidCoupon)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE coupons SET
			discount = COALESCE($1, discount),
			is_active = COALESCE($2, is_active),
			expires_at = COALESCE($3, expires_at)
		WHERE id = $4 RETURNING `+couponColumns,
		nullDecimal(req.Discount), nullBool(req.IsActive), req.ExpiresAt, id,
	)
	coupon, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCouponNotFound, id)
		}
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return coupon, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM coupons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrCouponNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var c models.Coupon
	var expiresAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Code, &c.Discount, &c.IsActive, &expiresAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
