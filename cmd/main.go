package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restaurant-system/internal/cache"
	"restaurant-system/internal/config"
	"restaurant-system/internal/database"
	"restaurant-system/internal/events"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/messaging"
	"restaurant-system/internal/models"
	"restaurant-system/internal/monitoring"
	"restaurant-system/internal/repository/postgres"
	"restaurant-system/internal/services/auth"
	"restaurant-system/internal/services/metrics"
	"restaurant-system/internal/services/notification"
	"restaurant-system/internal/services/order"
	"restaurant-system/internal/services/product"
	"restaurant-system/internal/services/table"
	"restaurant-system/internal/services/waiter"
	"restaurant-system/internal/web"
)

const (
	modeAPIServer       = "api-server"
	modeEventSubscriber = "event-subscriber"
)

func main() {
	var (
		mode       = flag.String("mode", modeAPIServer, "Service mode (api-server, event-subscriber)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count for the event subscriber")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": cfg.Server.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case modeAPIServer:
		err = runAPIServer(ctx, cfg, log)
	case modeEventSubscriber:
		err = runEventSubscriber(ctx, cfg, log, *prefetch)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runAPIServer serves the REST API until ctx is cancelled
func runAPIServer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, cfg.Server.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	repos := postgres.New(db.Pool)

	gateway, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	metricsService := metrics.NewService(metrics.Repositories{
		Orders:     repos.Orders,
		Tables:     repos.Tables,
		Waiters:    repos.Waiters,
		Products:   repos.Products,
		Categories: repos.Categories,
	}, gateway, log, metrics.Options{
		CacheTTL:         time.Duration(cfg.Metrics.CacheTTL) * time.Second,
		RealTimeCacheTTL: time.Duration(cfg.Metrics.RealTimeCacheTTL) * time.Second,
	})

	notifier := events.Fanout{metricsService}
	if cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()
		notifier = append(notifier, messaging.NewPublisher(conn, log))
	}

	authService := auth.NewService(repos.Users, repos.Waiters, cfg.Auth.JWTSecret, cfg.TokenTTL(), log)
	orderService := order.NewService(order.Repositories{
		Orders:   repos.Orders,
		Tables:   repos.Tables,
		Products: repos.Products,
		Waiters:  repos.Waiters,
	}, notifier, log, cfg.Metrics.TipPercentage)
	tableService := table.NewService(repos.Tables, notifier, log)
	productService := product.NewService(repos.Products, repos.Categories, notifier, log)
	waiterService := waiter.NewService(repos.Waiters, notifier, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), web.RequestID(), web.Logging(log), monitoring.Middleware(modeAPIServer))

	router.GET("/health", healthCheck(db))
	router.GET("/prometheus", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	auth.NewHandler(authService, log).RegisterRoutes(api)

	protected := api.Group("", authService.RequireRoles(models.RoleAdmin, models.RoleWaiter))
	adminOnly := authService.RequireRoles(models.RoleAdmin)
	order.NewHandler(orderService, log).RegisterRoutes(protected, adminOnly)
	table.NewHandler(tableService, log).RegisterRoutes(protected, adminOnly)
	product.NewHandler(productService, log).RegisterRoutes(protected, adminOnly)
	waiter.NewHandler(waiterService, log).RegisterRoutes(protected, adminOnly)
	metrics.NewHandler(metricsService, log).RegisterRoutes(protected, adminOnly)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("API server started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port":           cfg.Server.Port,
			"rabbitmq":       cfg.RabbitMQ.Enabled,
			"redis":          cfg.Redis.Enabled,
			"tip_percentage": cfg.Metrics.TipPercentage,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runEventSubscriber consumes change events and invalidates the shared
// metrics cache until ctx is cancelled
func runEventSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	if !cfg.RabbitMQ.Enabled || !cfg.Redis.Enabled {
		return errors.New("event-subscriber requires rabbitmq and redis to be enabled")
	}

	gateway, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	conn, err := messaging.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	hostname, _ := os.Hostname()
	consumer := messaging.NewConsumer(conn, log, messaging.InvalidationQueue, "metrics-invalidator-"+hostname, prefetch)
	defer consumer.Close()

	// Invalidate touches only the cache, so no repositories are needed
	invalidator := metrics.NewService(metrics.Repositories{}, gateway, log, metrics.Options{})
	return notification.NewSubscriber(consumer, invalidator, log).Start(ctx)
}

// newCache returns the Redis gateway when enabled and an in-process cache
// otherwise
func newCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (cache.Gateway, func(), error) {
	if !cfg.Redis.Enabled {
		log.Info("cache_selected", "Redis disabled, using in-memory metrics cache", "startup", nil)
		return cache.NewMemory(), func() {}, nil
	}

	redisCache, err := cache.NewRedis(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	}
}
