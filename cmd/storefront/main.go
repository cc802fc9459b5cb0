package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ritikgupta28/chocodivine/handlers"
	"github.com/ritikgupta28/chocodivine/internal/auth"
	"github.com/ritikgupta28/chocodivine/internal/cache"
	"github.com/ritikgupta28/chocodivine/internal/checkout"
	"github.com/ritikgupta28/chocodivine/internal/consul"
	"github.com/ritikgupta28/chocodivine/internal/gateway"
	"github.com/ritikgupta28/chocodivine/internal/orders"
	"github.com/ritikgupta28/chocodivine/internal/payment"
	"github.com/ritikgupta28/chocodivine/internal/products"
	"github.com/ritikgupta28/chocodivine/internal/stores/kafka"
	"github.com/ritikgupta28/chocodivine/internal/stores/postgres"
	"github.com/ritikgupta28/chocodivine/internal/users"
	"github.com/ritikgupta28/chocodivine/pkg/logkey"
	"github.com/ritikgupta28/chocodivine/pkg/metrics"
)

func main() {
	setupSlog()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	if err := startApp(); err != nil {
		slog.Error("service failed to start", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))
}

func startApp() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database and migrations
	pool, err := postgres.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrations(postgres.DSNFromEnv()); err != nil {
		return err
	}

	usersConf, err := users.NewConf(pool)
	if err != nil {
		return err
	}
	productsConf, err := products.NewConf(pool)
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(pool, durationEnv("ORDER_GRACE_PERIOD", 10*time.Minute))
	if err != nil {
		return err
	}

	// Auth keys
	publicPEM, err := os.ReadFile(getEnv("AUTH_PUBLIC_KEY_PATH", "pubkey.pem"))
	if err != nil {
		return err
	}
	privatePEM, err := os.ReadFile(getEnv("AUTH_PRIVATE_KEY_PATH", "private.pem"))
	if err != nil {
		return err
	}
	keys, err := auth.NewKeys(privatePEM, publicPEM)
	if err != nil {
		return err
	}

	// Payment gateway
	gatewayConf, err := gateway.LoadConfig()
	if err != nil {
		return err
	}
	builder := gateway.NewRequestBuilder(gatewayConf)
	statusClient := gateway.NewStatusClient(gatewayConf)

	// Optional infrastructure
	var (
		checkoutProducer checkout.EventProducer
		paymentProducer  payment.EventProducer
	)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err := kafka.NewConf(brokers)
		if err != nil {
			return err
		}
		defer kafkaConf.Close()
		checkoutProducer = kafkaConf
		paymentProducer = kafkaConf
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	var productCache cache.Cache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		productCache = cache.NewRedisCache(redisAddr, "storefront")
	} else {
		slog.Warn("REDIS_ADDR not set, product cache disabled")
	}

	// Checkout and payment wiring
	orchestrator := checkout.NewOrchestrator(usersConf, &productsConf, ordersConf, builder, checkoutProducer)
	reconciler := payment.NewReconciler(gatewayConf, ordersConf, statusClient, paymentProducer)

	sweeper := payment.NewSweeper(ordersConf, paymentProducer, durationEnv("SWEEP_INTERVAL", time.Minute))
	go sweeper.Run(ctx)

	// HTTP server
	h := handlers.NewHandler(usersConf, productsConf, ordersConf, orchestrator, reconciler, keys, productCache)
	serverMetrics := metrics.NewServerMetrics("storefront")

	port, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      handlers.API(h, serverMetrics),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	registerWithConsul(port)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("storefront listening", slog.String("addr", srv.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return err
		}
	}
	return nil
}

// registerWithConsul is best effort. A missing agent keeps the storefront out
// of the catalog but never keeps it from serving.
func registerWithConsul(port int) {
	if os.Getenv("CONSUL_HTTP_ADDR") == "" {
		return
	}
	client, err := consul.NewClient()
	if err != nil {
		slog.Error("consul client unavailable", slog.String(logkey.ERROR, err.Error()))
		return
	}
	address := getEnv("SERVICE_ADDRESS", "localhost")
	if err := consul.RegisterService(client, "storefront", address, port); err != nil {
		slog.Error("consul registration failed", slog.String(logkey.ERROR, err.Error()))
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", slog.String("key", key), slog.String("value", raw))
		return fallback
	}
	return d
}
