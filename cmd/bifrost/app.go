package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bifrost/internal/broker"
	"bifrost/internal/config"
	"bifrost/internal/constants"
	"bifrost/internal/delivery"
	"bifrost/internal/ingest"
	"bifrost/internal/logger"
	"bifrost/internal/storage"
	"bifrost/internal/telegram"
	"bifrost/pkg/health"
	"bifrost/pkg/metrics"
	"bifrost/pkg/retry"
)

type App struct {
	Config *config.Config
	Logger logger.Logger

	store      *storage.Storage
	client     *telegram.Client
	downloader *telegram.Downloader
	producer   broker.Producer
	consumer   broker.Consumer
	ingest     *ingest.Service
	engine     *delivery.Engine
	server     *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("bifrost")
	}
	return &App{
		Config: cfg,
		Logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	store, err := storage.New(a.Config.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.store = store

	client, err := telegram.NewClient(a.Config.Telegram, a.Config.CircuitBreaker, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}
	a.client = client
	a.downloader = telegram.NewDownloader(client.Bot(), store, nil, a.Logger)

	if err := a.initBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	a.ingest = ingest.New(a.client, a.downloader, a.producer, a.Config.Broker.InboundTopic(), a.Logger)
	a.engine = delivery.New(a.client, a.producer, a.Config.Broker.StatusTopic(), a.retryPolicy(), a.Logger)

	metrics.RegisterIngestMetrics()
	metrics.RegisterDeliveryMetrics()
	metrics.RegisterBrokerMetrics()

	a.initHTTPServer()

	return nil
}

func (a *App) initBroker() error {
	producer, err := broker.NewProducer(a.Config.Broker, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	a.producer = producer
	a.consumer = consumer
	return nil
}

func (a *App) retryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	rc := a.Config.Delivery.Retry
	if rc.MaxAttempts > 0 {
		policy.MaxAttempts = rc.MaxAttempts
	}
	if rc.InitialInterval > 0 {
		policy.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		policy.MaxInterval = rc.MaxInterval
	}
	if rc.Multiplier >= 1 {
		policy.Multiplier = rc.Multiplier
	}
	if rc.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = rc.MaxElapsedTime
	}
	return policy
}

// healthRegistry wires the storage directory check and, when the
// transport exposes one, a broker liveness probe.
func (a *App) healthRegistry() *health.CheckerRegistry {
	registry := health.NewCheckerRegistry()
	registry.Register(health.NewStorageDirChecker(a.store.Dir()))
	if prober, ok := a.consumer.(broker.Prober); ok {
		registry.Register(health.NewBrokerChecker(a.Config.Broker.Type, prober.Probe))
	}
	return registry
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := a.healthRegistry()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			return a.serveHTTP(gCtx)
		})
	}

	if a.ingest != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Starting update ingestion",
				"inbound_topic", a.Config.Broker.InboundTopic(),
			)
			return a.ingest.Run(gCtx)
		})
	}

	if a.consumer != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Starting outbound consumer",
				"outbound_topic", a.Config.Broker.OutboundTopic(),
			)
			return a.consumer.Consume(gCtx, a.Config.Broker.OutboundTopic(), a.engine.Handle)
		})
	}

	err := g.Wait()
	a.shutdown()
	return err
}

// serveHTTP runs the HTTP server until ctx is canceled, then shuts it
// down so Run can unwind. Without the watcher, ListenAndServe would
// block forever and cancellation could never reach g.Wait.
func (a *App) serveHTTP(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("HTTP server error: %w", err)
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Errorw("HTTP server shutdown error", "error", err)
		}
		<-serveErr
		return ctx.Err()
	}
}

func (a *App) shutdown() {
	a.Logger.Info("Shutting down bridge...")

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.Logger.Errorw("Consumer close error", "error", err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.Errorw("Producer close error", "error", err)
		}
	}

	a.Logger.Info("Bridge exited")
}
