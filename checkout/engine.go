package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"storefront-svc/coupons"
	"storefront-svc/middleware"
	"storefront-svc/models"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "storefront-service/checkout"

// MaxQuantity bounds a line and the per-product total of a request; stock and order quantities are INTEGER columns.
const MaxQuantity = 2147483647

// Item is one requested (product, quantity) pair.
type Item struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=2147483647"`
}

// Request is the transient input of a checkout. An empty item list is legal and yields a zero-line order.
type Request struct {
	Items         []Item `json:"items" validate:"dive"`
	PaymentMethod string `json:"paymentMethod" validate:"required,max=64"`
	CouponCode    string `json:"couponCode,omitempty" validate:"max=64"`
}

// StockDecrement is applied by the ledger as a single decrement-if-sufficient write.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

type UserFinder interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// CatalogReader may return fewer products than requested when some ids are unknown.
type CatalogReader interface {
	FindProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

type CouponValidator interface {
	Validate(ctx context.Context, code string) (*models.Coupon, error)
}

type CartClearer interface {
	Clear(ctx context.Context, userID string) (int64, error)
}

// Ledger persists the order and applies every decrement atomically, or nothing at all.
type Ledger interface {
	Commit(ctx context.Context, order *models.Order, decrements []StockDecrement) (*models.Order, error)
}

// Timeouts bounds each dependency call. Zero means no additional bound beyond the caller's context.
type Timeouts struct {
	Users   time.Duration
	Catalog time.Duration
	Coupon  time.Duration
	Ledger  time.Duration
	Cart    time.Duration
}

type Dependencies struct {
	Users    UserFinder
	Catalog  CatalogReader
	Coupons  CouponValidator
	Ledger   Ledger
	Cart     CartClearer
	Timeouts Timeouts
	Logger   *zap.Logger
}

// Engine turns a checkout request into a committed order.
type Engine struct {
	users    UserFinder
	catalog  CatalogReader
	coupons  CouponValidator
	ledger   Ledger
	cart     CartClearer
	timeouts Timeouts
	validate *validatorv10.Validate
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		users:    deps.Users,
		catalog:  deps.Catalog,
		coupons:  deps.Coupons,
		ledger:   deps.Ledger,
		cart:     deps.Cart,
		timeouts: deps.Timeouts,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// PlaceOrder validates, prices and commits the request for the user identified by externalUserID,
// then clears that user's cart. Nothing is persisted unless the ledger commit succeeds.
func (e *Engine) PlaceOrder(ctx context.Context, externalUserID string, req Request) (*models.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	order, err := e.placeOrder(ctx, externalUserID, req)
	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		middleware.RecordCheckout(string(kind))
		e.logger.Info("Checkout rejected",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.lines", len(order.Lines)),
	)
	middleware.RecordCheckout("success")
	return order, nil
}

func (e *Engine) placeOrder(ctx context.Context, externalUserID string, req Request) (*models.Order, error) {
	req = normalize(req)
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	user, err := e.findUser(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	products, err := e.snapshot(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	lines, decrements, err := buildLines(req.Items, products)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	if req.CouponCode != "" {
		coupon, err := e.validateCoupon(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		discount = coupon.Discount
	}

	totals := Price(lines, discount)
	if totals.Clamped {
		e.logger.Info("Discount exceeds subtotal, total clamped to zero",
			zap.String("coupon_code", req.CouponCode),
			zap.String("subtotal", totals.Subtotal.String()),
			zap.String("discount", totals.Discount.String()),
		)
		middleware.RecordDiscountClamped()
	}

	order := &models.Order{
		ID:            e.newID(),
		UserID:        user.ID,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		FinalTotal:    totals.FinalTotal,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
		CreatedAt:     e.now().UTC(),
		Lines:         lines,
	}

	committed, err := e.commit(ctx, order, decrements)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Order placed",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", committed.ID),
		zap.String("user_id", user.ID),
		zap.String("final_total", committed.FinalTotal.String()),
	)

	e.clearCart(ctx, user.ID, committed.ID)
	return committed, nil
}

func normalize(req Request) Request {
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	req.CouponCode = strings.TrimSpace(req.CouponCode)
	items := make([]Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = Item{ProductID: strings.TrimSpace(item.ProductID), Quantity: item.Quantity}
	}
	req.Items = items
	return req
}

func (e *Engine) validateRequest(req Request) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validatorv10.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func (e *Engine) findUser(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, ErrUserNotFound
	}

	ctx, cancel := withTimeout(ctx, e.timeouts.Users)
	defer cancel()

	user, err := e.users.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %w", ErrStorage, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// snapshot reads every distinct requested product in one batch.
func (e *Engine) snapshot(ctx context.Context, items []Item) (map[string]models.Product, error) {
	ids := distinctProductIDs(items)
	products := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	ctx, cancel := withTimeout(ctx, e.timeouts.Catalog)
	defer cancel()

	found, err := e.catalog.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: read catalog: %w", ErrStorage, err)
	}

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	for _, p := range found {
		if _, ok := requested[p.ID]; ok {
			products[p.ID] = p
		}
	}

	if len(products) < len(ids) {
		var missing []string
		for _, id := range ids {
			if _, ok := products[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, strings.Join(missing, ", "))
	}
	return products, nil
}

// buildLines prices each requested line from the snapshot and checks stock per product,
// aggregating quantities when the same product appears on several lines.
func buildLines(items []Item, products map[string]models.Product) ([]models.OrderLine, []StockDecrement, error) {
	lines := make([]models.OrderLine, 0, len(items))
	requested := make(map[string]int, len(products))
	for i, item := range items {
		lines = append(lines, models.OrderLine{
			LineNo:    i + 1,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: products[item.ProductID].Price,
		})
		requested[item.ProductID] += item.Quantity
	}

	for _, id := range distinctProductIDs(items) {
		if qty := requested[id]; qty <= 0 || qty > MaxQuantity {
			return nil, nil, fmt.Errorf("%w: total quantity for %s exceeds %d", ErrInvalidRequest, id, MaxQuantity)
		}
		p := products[id]
		if p.Stock < requested[id] {
			return nil, nil, &StockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: requested[id],
				Available: p.Stock,
			}
		}
	}

	decrements := make([]StockDecrement, 0, len(requested))
	for id, qty := range requested {
		decrements = append(decrements, StockDecrement{ProductID: id, Quantity: qty})
	}
	// Row locks are always taken in the same order so concurrent checkouts cannot deadlock.
	sort.Slice(decrements, func(i, j int) bool {
		return decrements[i].ProductID < decrements[j].ProductID
	})
	return lines, decrements, nil
}

func (e *Engine) validateCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := withTimeout(ctx, e.timeouts.Coupon)
	defer cancel()

	coupon, err := e.coupons.Validate(ctx, code)
	if err != nil {
		if errors.Is(err, coupons.ErrCouponNotFound) ||
			errors.Is(err, coupons.ErrCouponInactive) ||
			errors.Is(err, coupons.ErrCouponExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: validate coupon: %w", ErrStorage, err)
	}
	return coupon, nil
}

func (e *Engine) commit(ctx context.Context, order *models.Order, decrements []StockDecrement) (*models.Order, error) {
	ctx, cancel := withTimeout(ctx, e.timeouts.Ledger)
	defer cancel()

	committed, err := e.ledger.Commit(ctx, order, decrements)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: commit order: %w", ErrStorage, err)
	}
	return committed, nil
}

// clearCart runs after the order is durable. It is detached from caller cancellation and
// its failure never fails the checkout.
func (e *Engine) clearCart(ctx context.Context, userID, orderID string) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), e.timeouts.Cart)
	defer cancel()

	removed, err := e.cart.Clear(ctx, userID)
	if err != nil {
		e.logger.Warn("Cart clear failed after order commit",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_id", orderID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		middleware.RecordCartClearFailure()
		return
	}

	e.logger.Debug("Cart cleared", zap.String("user_id", userID), zap.Int64("removed", removed))
}

func distinctProductIDs(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeField(fe validatorv10.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Request.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
