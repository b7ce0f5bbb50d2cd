package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/ecommerce/backend/internal/application/billing"
	catalogapp "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/application/chat"
	identityapp "github.com/ecommerce/backend/internal/application/identity"
	tradeapp "github.com/ecommerce/backend/internal/application/trade"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/infrastructure/auth"
	infrabilling "github.com/ecommerce/backend/internal/infrastructure/billing"
	"github.com/ecommerce/backend/internal/infrastructure/cache"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"github.com/ecommerce/backend/internal/infrastructure/ecommerce"
	"github.com/ecommerce/backend/internal/infrastructure/event"
	"github.com/ecommerce/backend/internal/infrastructure/logger"
	"github.com/ecommerce/backend/internal/infrastructure/mail"
	"github.com/ecommerce/backend/internal/infrastructure/persistence"
	"github.com/ecommerce/backend/internal/infrastructure/printing"
	"github.com/ecommerce/backend/internal/infrastructure/scheduler"
	"github.com/ecommerce/backend/internal/infrastructure/storage"
	"github.com/ecommerce/backend/internal/infrastructure/telemetry"
	"github.com/ecommerce/backend/internal/interfaces/http/handler"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/ecommerce/backend/internal/interfaces/http/router"
	"github.com/ecommerce/backend/internal/interfaces/ws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/ecommerce/backend/docs"
)

//	@title			E-commerce Backend API
//	@version		1.0
//	@description	Shop backend API: catalogue, carts, orders, Stripe payments, invoices and a chat assistant
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/ecommerce/backend
//	@contact.email	support@shop.example

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

const (
	appVersion      = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	bootLog := logger.New(cfg.Log)

	// Telemetry comes first so the OTLP log bridge can be teed into the logger
	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := logger.New(cfg.Log, providers.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	defer func() {
		_ = log.Sync()
	}()
	// Deferred first so it runs last, after the bus has drained
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()

	log.Info("Starting shop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	// Redis is optional; without it revocations, idempotency keys and rate
	// limits live in process memory
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var blacklist auth.TokenBlacklist
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(redisClient,
		cache.WithLogger(log),
		cache.WithKeyPrefix("shop:idempotency:"),
		cache.WithInMemoryFallback(true),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize repositories
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	orderDetailRepo := persistence.NewGormOrderDetailRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Outbound adapters
	jwtService := auth.NewJWTService(cfg.JWT)
	mailer := newMailer(cfg.Mail, log)
	objectStorage := newObjectStorage(cfg.Storage, log)
	productSource := ecommerce.NewDummyJSONSource(cfg.Catalog.ImportURL, cfg.Catalog.ImportTimeout, log)

	var gateway billingapp.PaymentGateway
	if cfg.Stripe.Enabled() {
		gateway = infrabilling.NewStripeGateway(cfg.Stripe, nil, log)
		log.Info("Stripe checkout enabled", zap.String("currency", cfg.Stripe.Currency))
	} else {
		log.Warn("Stripe secret key not configured, card payments disabled")
	}

	var pdfRenderer billingapp.InvoicePDFRenderer
	var chromeRenderer *printing.ChromedpRenderer
	if cfg.Printing.Enabled {
		chromeRenderer = printing.NewChromedpRenderer(printing.ChromedpConfig{
			ExecPath:       cfg.Printing.ChromePath,
			RemoteURL:      cfg.Printing.RemoteURL,
			DefaultTimeout: cfg.Printing.Timeout,
			NoSandbox:      cfg.Printing.NoSandbox,
			Logger:         log,
		})
		pdfRenderer = printing.NewInvoicePrinter(printing.NewTemplateEngine(), chromeRenderer)
		defer func() {
			_ = chromeRenderer.Close()
		}()
	}

	// Initialize application services
	authConfig := identityapp.DefaultAuthServiceConfig()
	authConfig.VerificationTTL = cfg.Auth.VerificationTTL
	authConfig.ResetTTL = cfg.Auth.ResetTTL
	authConfig.VerifyURL = cfg.Mail.VerifyURL
	authConfig.ResetURL = cfg.Mail.ResetURL
	authService := identityapp.NewAuthService(userRepo, roleRepo, jwtService, blacklist, mailer, authConfig, log)
	userService := identityapp.NewUserService(userRepo, roleRepo, log)
	roleService := identityapp.NewRoleService(roleRepo, log)

	categoryService := catalogapp.NewCategoryService(categoryRepo)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, objectStorage, productSource, log)

	cartService := tradeapp.NewCartService(cartRepo, productRepo, log)
	orderService := tradeapp.NewOrderService(orderRepo, txScope, log)
	orderDetailService := tradeapp.NewOrderDetailService(orderDetailRepo, orderRepo, txScope, log)

	paymentService := billingapp.NewPaymentService(paymentRepo, orderRepo, userRepo, productRepo, txScope, gateway, idempotencyStore, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, paymentRepo, orderRepo, userRepo, productRepo, pdfRenderer, log)

	assistant := chat.NewAssistant(productService, orderRepo, productRepo, log)

	// Business metrics
	shopMetrics, err := telemetry.NewShopMetrics(providers.Meter("shop"), log)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)
	invoiceIssuer := event.NewIdempotentHandler("invoice-issuer",
		billingapp.NewInvoiceIssuer(invoiceService, log), idempotencyStore, shared.DefaultIdempotencyTTL, log)
	subscribe(eventBus, invoiceIssuer, shopMetrics)
	orderService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	log.Info("Event bus started")

	// Stale order sweeper
	sweeperConfig := scheduler.DefaultSweeperConfig()
	sweeperConfig.Enabled = cfg.Scheduler.Enabled
	sweeperConfig.StaleOrderTTL = cfg.Scheduler.StaleOrderTTL
	sweeperConfig.CheckInterval = cfg.Scheduler.CheckInterval
	sweeper, err := scheduler.NewStaleOrderSweeper(orderService, log, sweeperConfig)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start stale order sweeper", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = sweeper.Stop(stopCtx)
	}()

	// Initialize custom validators
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to setup validators", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Shutdown stops the in-memory limiter's cleanup goroutine
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	// Order matters: request id feeds logging, recovery wraps everything
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	tracingConfig.Enabled = providers.TracingEnabled()
	engine.Use(middleware.TracingWithConfig(tracingConfig))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		Meter:   providers.Meter("http.server"),
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		Logger:  log,
	}))

	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.ProfilingEnabled
	engine.Use(middleware.ProfilingWithConfig(profilingConfig))

	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter: newLimiter(appCtx, redisClient, "shop:ratelimit:", cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow),
			Logger:  log,
		}))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	var authLimiter gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter = middleware.RateLimitWithConfig(middleware.RateLimitConfig{
			Limiter: newLimiter(appCtx, redisClient, "shop:ratelimit:auth:", cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow),
			Code:    "AUTH_RATE_LIMITED",
			Logger:  log,
		})
	}

	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		Logger:         log,
	})

	// Health check with dependency pings
	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, appVersion, checks...)
	engine.GET("/health", systemHandler.Health)

	// Swagger documentation
	engine.GET("/swagger/*any", swaggerHandlers(cfg.Swagger, jwtAuth)...)

	// Chat gateway authenticates on its own, before the upgrade
	var chatGateway *ws.ChatGateway
	if cfg.Chat.Enabled {
		chatGateway = ws.NewChatGateway(assistant, jwtService, blacklist, ws.Config{
			AllowedOrigins: cfg.Chat.AllowedOrigins,
			MaxMessageSize: cfg.Chat.MaxMessageSize,
			IdleTimeout:    cfg.Chat.IdleTimeout,
		}, log)
		chatGateway.SetMetrics(shopMetrics)
		engine.GET(ws.ChatPath, chatGateway.Handle)
		log.Info("Chat gateway enabled", zap.String("path", ws.ChatPath))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	registerRoutes(r, routeHandlers{
		auth:        handler.NewAuthHandler(authService),
		users:       handler.NewUserHandler(userService),
		roles:       handler.NewRoleHandler(roleService),
		categories:  handler.NewCategoryHandler(categoryService),
		products:    handler.NewProductHandler(productService),
		carts:       handler.NewCartHandler(cartService),
		orders:      handler.NewOrderHandler(orderService),
		details:     handler.NewOrderDetailHandler(orderDetailService),
		payments:    handler.NewPaymentHandler(paymentService),
		invoices:    handler.NewInvoiceHandler(invoiceService),
		system:      systemHandler,
		jwtAuth:     jwtAuth,
		authLimiter: authLimiter,
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are invisible to srv.Shutdown
	if chatGateway != nil {
		if err := chatGateway.Shutdown(ctx); err != nil {
			log.Warn("Chat connections did not close in time", zap.Error(err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// subscribe registers each handler for the event types it declares
func subscribe(bus *event.InMemoryEventBus, handlers ...shared.EventHandler) {
	for _, h := range handlers {
		bus.Subscribe(h, h.EventTypes()...)
	}
}

func newMailer(cfg config.MailConfig, log *zap.Logger) identityapp.Mailer {
	if cfg.Enabled {
		log.Info("SMTP mail enabled", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return mail.NewSMTPMailer(cfg, log)
	}
	log.Info("Mail disabled, account mails are logged")
	return mail.NewLogMailer(log)
}

// newObjectStorage returns nil when storage is off, which disables image upload
func newObjectStorage(cfg config.StorageConfig, log *zap.Logger) catalogapp.ObjectStorage {
	if !cfg.Enabled {
		log.Info("Object storage disabled, product image upload unavailable")
		return nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg,
		storage.WithLogger(log),
		storage.WithDownloadURLTTL(cfg.DownloadURLTTL),
	)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3.EnsureBucket(ctx); err != nil {
		log.Warn("Could not verify storage bucket", zap.String("bucket", cfg.Bucket), zap.Error(err))
	}
	return s3
}

// newLimiter shares counters through Redis when available
func newLimiter(ctx context.Context, client *redis.Client, prefix string, limit int, window time.Duration) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisRateLimiter(client, prefix, limit, window)
	}
	return middleware.NewRateLimiter(ctx, limit, window)
}
