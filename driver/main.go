package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"mrsmoothy/admin"
	"mrsmoothy/auth"
	"mrsmoothy/backend"
	"mrsmoothy/cart"
	"mrsmoothy/catalog"
	"mrsmoothy/checkout"
	"mrsmoothy/config"
	"mrsmoothy/events"
	"mrsmoothy/handlers"
	"mrsmoothy/logger"
	"mrsmoothy/middleware"
	"mrsmoothy/middleware/logkafka"
	"mrsmoothy/payments"
	"mrsmoothy/pricing"
	"mrsmoothy/session"
	"mrsmoothy/telem"
	"mrsmoothy/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	backend.RegisterMetrics(reg)
	handlers.Init(reg)
	shutdownMetrics, err := telem.InitMetrics(ctx, cfg.Telemetry.ServiceName, reg)
	if err != nil {
		zl.Fatal("failed to initialise metrics", zap.Error(err))
	}
	shutdownTracing, err := telem.InitTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		zl.Fatal("failed to initialise tracing", zap.Error(err))
	}

	store, closeStore, err := openSessionStorage(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to open session storage", zap.String("storage", cfg.Session.Storage), zap.Error(err))
	}
	defer closeStore()

	bus := events.NewBus(zl)
	if cfg.KafkaEnabled() {
		sink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, zl)
		sink.Attach(bus)
		defer sink.Close()
	}

	api, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, zl)
	if err != nil {
		zl.Fatal("invalid backend URL", zap.Error(err))
	}

	state := session.NewState(store, bus, zl)
	guest := cart.NewGuestStore(store, bus, zl)
	server := cart.NewServer(api)

	var charger payments.Charger
	if sc := payments.NewStripeCharger(cfg.Stripe.SecretKey, cfg.Stripe.Currency, zl); sc != nil {
		charger = sc
	}

	h := handlers.New(handlers.Deps{
		Catalog:  catalog.New(api, zl),
		Pricing:  pricing.Calculator{LegacyMinorUnitHeuristic: cfg.Pricing.LegacyMinorUnitHeuristic},
		Guest:    guest,
		Server:   server,
		State:    state,
		Checkout: checkout.New(api, state, guest, charger, zl),
		Orders:   checkout.NewOrders(api),
		Admin:    admin.New(api, zl),
		Auth:     auth.New(api, state, guest, server, zl),
		Bus:      bus,
		Logger:   zl,
	})

	var requestLogger *logkafka.RequestLogger
	if cfg.KafkaEnabled() {
		kw := logkafka.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.LogTopic)
		defer kw.Close()
		requestLogger = logkafka.NewRequestLogger(kw, cfg.Env, zl)
	} else {
		requestLogger = logkafka.NewRequestLogger(nil, cfg.Env, zl)
	}

	mainRouter := handlers.NewRouter(h, handlers.RouterOptions{
		Session: middleware.SessionOptions{
			Secret:     []byte(cfg.Session.Secret),
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Env == "production",
		},
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Middleware: []mux.MiddlewareFunc{requestLogger.LoggingMiddleware},
	})

	// The event stream is long-lived and is left out of request spans.
	traced := otelhttp.NewHandler(mainRouter, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/api/events" && r.URL.Path != "/metrics"
		}),
	)

	srv := &http.Server{
		Handler:      middleware.Recover(zl)(traced),
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("storefront listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Error("tracer shutdown", zap.Error(err))
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		zl.Error("meter shutdown", zap.Error(err))
	}
}

// openSessionStorage picks the configured session backend.
func openSessionStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.Session.Storage {
	case "redis":
		rs, err := session.NewRedisStorage(ctx, cfg.Session.RedisURL, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case "mongo":
		client, err := utils.InitMongoClient(ctx, cfg.Session.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		coll := utils.GetCollection(client, cfg.Session.MongoDatabase, "sessions")
		ms, err := session.NewMongoStorage(ctx, coll, cfg.Session.TTL)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return ms, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return session.NewMemoryStorage(cfg.Session.TTL), func() {}, nil
	}
}
