package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-svc/cache"
	"storefront-svc/catalog"
	"storefront-svc/circuitbreaker"
	"storefront-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	Search(ctx context.Context, term string) ([]models.Product, error)
	FindByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]models.Product, error)
	FindProductByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type ProductHandler struct {
	store          ProductStore
	cache          ProductCache
	logger         *zap.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewProductHandler builds the catalog endpoints. cache may be nil.
func NewProductHandler(store ProductStore, productCache ProductCache, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		store:          store,
		cache:          productCache,
		logger:         logger,
		circuitBreaker: breaker,
	}
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	products, err := h.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) SearchProducts(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		badRequest(c, errors.New("query parameter q is required"))
		return
	}

	products, err := h.store.Search(c.Request.Context(), term)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProductsByPriceRange(c *gin.Context) {
	min, err := decimal.NewFromString(c.Query("min"))
	if err != nil {
		badRequest(c, errors.New("query parameter min must be a number"))
		return
	}
	max, err := decimal.NewFromString(c.Query("max"))
	if err != nil {
		badRequest(c, errors.New("query parameter max must be a number"))
		return
	}

	products, err := h.store.FindByPriceRange(c.Request.Context(), min, max)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	// Try to get from cache first
	if h.cache != nil {
		product, err := h.cache.GetProduct(ctx, id)
		if err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			c.JSON(http.StatusOK, product)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// Get from database with circuit breaker
	var product *models.Product
	err := h.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		product, err = h.store.FindProductByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			span.SetAttributes(attribute.String("circuit.state", "open"))
		} else {
			span.RecordError(err)
		}
		respondError(c, h.logger, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetProduct(ctx, product); err != nil {
			h.logger.Warn("Product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.store.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.store.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.invalidate(c.Request.Context(), id)
	h.logger.Info("Product updated", zap.String("product_id", id))
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.invalidate(c.Request.Context(), id)
	h.logger.Info("Product deleted", zap.String("product_id", id))
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) invalidate(ctx context.Context, id string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteProduct(ctx, id); err != nil {
		h.logger.Warn("Product cache invalidation failed", zap.String("product_id", id), zap.Error(err))
	}
}

// IsCatalogFailure tells the breaker which errors mean the catalog is unhealthy.
func IsCatalogFailure(err error) bool {
	return !errors.Is(err, catalog.ErrProductNotFound) && !errors.Is(err, context.Canceled)
}
