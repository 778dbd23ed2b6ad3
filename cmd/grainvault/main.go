package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/grainvault/internal/adapter/fsm"
	"github.com/neomorfeo/grainvault/internal/adapter/memory"
	oteladapter "github.com/neomorfeo/grainvault/internal/adapter/otel"
	redisadapter "github.com/neomorfeo/grainvault/internal/adapter/redis"
	riveradapter "github.com/neomorfeo/grainvault/internal/adapter/river"
	s3adapter "github.com/neomorfeo/grainvault/internal/adapter/s3"
	"github.com/neomorfeo/grainvault/internal/adapter/sqlite"
	"github.com/neomorfeo/grainvault/internal/app"
	"github.com/neomorfeo/grainvault/internal/domain"

	handler "github.com/neomorfeo/grainvault/internal/adapter/http"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// stores is the persistence wiring chosen by GRAINVAULT_STORE.
type stores struct {
	warehouses domain.WarehouseRepository
	slots      domain.SlotRepository
	publisher  domain.EventPublisher
	close      func()
}

func run() error {
	ctx := context.Background()
	port := envOrDefault("PORT", "8080")

	// --- Observability ---
	otelCfg := oteladapter.ConfigFromEnv()
	providers, err := oteladapter.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	// --- Adapters (out) ---
	st, err := openStores(ctx, envOrDefault("GRAINVAULT_STORE", "sqlite"))
	if err != nil {
		return err
	}
	defer st.close()

	publisher, err := oteladapter.NewMetricsPublisher(st.publisher)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	prices, closePrices, err := openPriceBook(ctx)
	if err != nil {
		return err
	}
	defer closePrices()

	archive, err := openArchive(ctx)
	if err != nil {
		return err
	}

	warehouses := oteladapter.NewTracingWarehouseRepository(st.warehouses)
	slots := oteladapter.NewTracingSlotRepository(st.slots)

	// --- Application ---
	svc := handler.Services{
		Warehouses: app.NewWarehouseService(warehouses, archive),
		Allocation: app.NewAllocationEngine(slots, oteladapter.NewTracingPublisher(publisher), fsm.New()),
		Occupancy:  app.NewOccupancyAggregator(warehouses, slots),
		Valuation:  app.NewValuationService(slots, oteladapter.NewTracingPriceBook(prices)),
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(otelchi.Middleware(otelCfg.ServiceName, otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("grainvault", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("grainvault listening on :%s", port)
		log.Printf("API docs: http://localhost:%s/docs", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("stopped")
	return nil
}

func openStores(ctx context.Context, kind string) (stores, error) {
	switch kind {
	case "memory":
		store := memory.New()
		return stores{
			warehouses: store,
			slots:      store,
			publisher:  logPublisher{},
			close:      func() {},
		}, nil

	case "sqlite":
		db, err := oteladapter.OpenDB(envOrDefault("DATABASE_PATH", "grainvault.db"))
		if err != nil {
			return stores{}, fmt.Errorf("database: %w", err)
		}
		store, err := sqlite.NewFromDB(db)
		if err != nil {
			db.Close()
			return stores{}, fmt.Errorf("database: %w", err)
		}

		client, err := riveradapter.Setup(ctx, db)
		if err != nil {
			store.Close()
			return stores{}, fmt.Errorf("river: %w", err)
		}
		if err := client.Start(ctx); err != nil {
			store.Close()
			return stores{}, fmt.Errorf("starting river: %w", err)
		}

		return stores{
			warehouses: store,
			slots:      store,
			publisher:  riveradapter.NewPublisher(client),
			close: func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Stop(stopCtx); err != nil {
					log.Printf("river stop: %v", err)
				}
				store.Close()
			},
		}, nil

	default:
		return stores{}, fmt.Errorf("unknown GRAINVAULT_STORE %q, want sqlite or memory", kind)
	}
}

// openPriceBook serves prices from Redis when REDIS_ADDR is set, falling
// back to the static table for grains Redis does not know.
func openPriceBook(ctx context.Context) (domain.PriceBook, func(), error) {
	static := memory.DefaultPrices()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return static, func() {}, nil
	}

	client, err := redisadapter.NewClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return redisadapter.NewPriceBook(client, static), func() { client.Close() }, nil
}

// openArchive returns a nil archive when no bucket is configured.
func openArchive(ctx context.Context) (domain.LayoutArchive, error) {
	cfg := s3adapter.ConfigFromEnv()
	if cfg.Bucket == "" {
		return nil, nil
	}
	archive, err := s3adapter.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("layout archive: %w", err)
	}
	return archive, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logPublisher writes slot events to the log when no job queue is wired.
type logPublisher struct{}

func (logPublisher) Publish(ctx context.Context, event domain.SlotEvent) error {
	slog.InfoContext(ctx, "slot event",
		"event", string(event.Event),
		"slot", event.Slot.String(),
		"customer_id", event.CustomerID,
		"bags_delta", event.BagsDelta,
	)
	return nil
}
