package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"carriersync/internal/carrier"
	"carriersync/internal/config"
	"carriersync/internal/database"
	"carriersync/internal/events"
	"carriersync/internal/handler"
	"carriersync/internal/mw"
	"carriersync/internal/service"
	"carriersync/internal/shipping"
	"carriersync/internal/tracking"
	"carriersync/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("carriersync failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(ctx, db); err != nil {
		return err
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init events publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close events publisher", "error", err)
		}
	}()

	// Services
	authSvc := service.NewAuthService(db)
	orderSvc := service.NewOrderService(db)

	api := carrier.NewClient(cfg.CarrierAPIURL, cfg.CarrierLogin, cfg.CarrierPassword, cfg.CarrierToken, cfg.CarrierTimeout)
	feed := carrier.NewTrackingClient(cfg.TrackingURL, cfg.CarrierLogin, cfg.CarrierPassword, cfg.CarrierTimeout)

	normalizer := shipping.NewAddressNormalizer(api, cfg.Shipping.Fields)
	estimator := shipping.NewCostEstimator(normalizer, api, cfg.Shipping)
	submitter := shipping.NewSubmitter(normalizer, api, orderSvc, cfg.Shipping)
	tracker := tracking.NewTracker(feed, orderSvc, publisher, cfg.Tracking)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Post("/api/user/register", handler.RegisterHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/user/login", handler.LoginHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/calculator", handler.CalculatorHandler(estimator))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Post("/api/orders", handler.ImportOrderHandler(orderSvc))
		r.Get("/api/orders/{id}", handler.GetOrderHandler(orderSvc))
		r.Post("/api/shipments", handler.SubmitShipmentsHandler(orderSvc, submitter))
		r.Post("/api/tracking/run", handler.RunTrackingHandler(tracker))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.NewTrackingWorker(tracker, cfg.TrackingInterval).Start(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("starting server", "addr", cfg.RunAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShut()
		return srv.Shutdown(ctxShut)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case "kafka":
		return events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic), nil
	case "rabbitmq":
		return events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	default:
		return events.Nop{}, nil
	}
}
