package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-svc/cache"
	"storefront-svc/cart"
	"storefront-svc/catalog"
	"storefront-svc/checkout"
	"storefront-svc/circuitbreaker"
	"storefront-svc/config"
	"storefront-svc/coupons"
	"storefront-svc/database"
	"storefront-svc/handlers"
	"storefront-svc/kafka"
	"storefront-svc/ledger"
	"storefront-svc/middleware"
	"storefront-svc/rpc"
	"storefront-svc/users"
	"storefront-svc/wishlist"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize Redis cache
	redisClient, err := cache.InitRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	store := cache.NewStore(redisClient, cfg.Redis.ProductTTL, cfg.Redis.IdempotencyTTL)

	userRepo := users.NewRepository(db)
	productRepo := catalog.NewRepository(db)
	couponRepo := coupons.NewRepository(db, logger)
	cartStore := cart.NewStore(db)
	wishStore := wishlist.NewStore(db)
	orderLedger := ledger.NewPostgres(db, logger)

	engine := checkout.NewEngine(checkout.Dependencies{
		Users:   userRepo,
		Catalog: productRepo,
		Coupons: couponRepo,
		Ledger:  orderLedger,
		Cart:    cartStore,
		Timeouts: checkout.Timeouts{
			Users:   cfg.Checkout.UsersTimeout,
			Catalog: cfg.Checkout.CatalogTimeout,
			Coupon:  cfg.Checkout.CouponTimeout,
			Ledger:  cfg.Checkout.LedgerTimeout,
			Cart:    cfg.Checkout.CartTimeout,
		},
		Logger: logger,
	})

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	// Order events are optional; without brokers checkout still works.
	var events handlers.OrderEventPublisher
	var producer sarama.SyncProducer
	var consumer sarama.Consumer
	if cfg.Kafka.Enabled() {
		producer, err = kafka.InitProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		events = kafka.NewPublisher(producer, cfg.Kafka.Topic, logger)

		consumer, err = kafka.InitConsumer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
		}

		// Start Kafka consumer in background
		go func() {
			if err := kafka.StartConsumer(consumerCtx, consumer, cfg.Kafka.Topic, store, logger); err != nil {
				logger.Error("Kafka consumer error", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are disabled")
	}

	breaker := circuitbreaker.NewCircuitBreaker(5, 30*time.Second,
		circuitbreaker.WithFailurePredicate(handlers.IsCatalogFailure))

	authHandler := handlers.NewAuthHandler(userRepo, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, logger)
	productHandler := handlers.NewProductHandler(productRepo, store, breaker, logger)
	couponHandler := handlers.NewCouponHandler(couponRepo, logger)
	cartHandler := handlers.NewCartHandler(cartStore, userRepo, logger)
	wishlistHandler := handlers.NewWishlistHandler(wishStore, userRepo, logger)
	checkoutHandler := handlers.NewCheckoutHandler(engine, orderLedger, events, store, logger)
	orderHandler := handlers.NewOrderHandler(orderLedger, userRepo, logger)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)

	api := router.Group("/", middleware.AuthMiddleware([]byte(cfg.Auth.JWTSecret)))
	{
		api.GET("/profile", authHandler.GetProfile)
		api.PATCH("/profile", authHandler.UpdateProfile)

		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/search", productHandler.SearchProducts)
		api.GET("/products/price-range", productHandler.GetProductsByPriceRange)
		api.GET("/products/:id", productHandler.GetProduct)
		api.POST("/products", productHandler.CreateProduct)
		api.PUT("/products/:id", productHandler.UpdateProduct)
		api.DELETE("/products/:id", productHandler.DeleteProduct)

		api.GET("/coupons", couponHandler.ListCoupons)
		api.GET("/coupons/:code", couponHandler.GetCoupon)
		api.GET("/coupons/:code/validate", couponHandler.ValidateCoupon)
		api.POST("/coupons", couponHandler.CreateCoupon)
		api.PUT("/coupons/:code", couponHandler.UpdateCoupon)
		api.DELETE("/coupons/:code", couponHandler.DeleteCoupon)

		api.GET("/cart", cartHandler.GetCart)
		api.POST("/cart", cartHandler.AddItem)
		api.PUT("/cart", cartHandler.UpdateItem)
		api.DELETE("/cart", cartHandler.ClearCart)
		api.DELETE("/cart/:productName", cartHandler.RemoveItem)

		api.GET("/wishlist", wishlistHandler.GetWishlist)
		api.POST("/wishlist", wishlistHandler.AddItem)
		api.DELETE("/wishlist", wishlistHandler.ClearWishlist)
		api.DELETE("/wishlist/:productName", wishlistHandler.RemoveItem)

		api.POST("/checkout", checkoutHandler.PlaceOrder)
		api.GET("/orders", orderHandler.ListOrders)
		api.GET("/orders/:id", orderHandler.GetOrder)
	}

	// Start REST server
	restSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := restSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Storefront REST API started", zap.String("addr", cfg.Server.HTTPAddr))

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(rpc.AuthInterceptor([]byte(cfg.Auth.JWTSecret))),
	)
	rpc.RegisterCheckoutServiceServer(grpcServer, handlers.NewCheckoutService(engine, orderLedger, userRepo, events, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(rpc.CheckoutServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	logger.Info("Storefront gRPC server started", zap.String("addr", cfg.Server.GRPCAddr))

	gracefulShutdown(cfg.Server.ShutdownTimeout, restSrv, grpcServer, healthServer, db, redisClient, func() {
		stopConsumer()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("Failed to close Kafka consumer", zap.Error(err))
			}
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				logger.Error("Failed to close Kafka producer", zap.Error(err))
			}
		}
	}, shutdownTracing, logger)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts down all services gracefully
func gracefulShutdown(
	timeout time.Duration,
	restSrv *http.Server,
	grpcServer *grpc.Server,
	healthServer *health.Server,
	db *sql.DB,
	redisClient *redis.Client,
	closeKafka func(),
	shutdownTracing func(),
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop REST server
	if err := restSrv.Shutdown(ctx); err != nil {
		logger.Error("REST server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("REST server stopped gracefully")
	}

	// Stop gRPC server
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped gracefully")

	closeKafka()

	// Close database
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	} else {
		logger.Info("Database connection closed gracefully")
	}

	// Close Redis cache
	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis cache", zap.Error(err))
	} else {
		logger.Info("Redis cache closed gracefully")
	}

	shutdownTracing()
	logger.Info("Storefront service exited gracefully")
}
