package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/httpx"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/memstore"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/purchase"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/ariefcatur/go-marketplace-orders/internal/report"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(cfg.ServiceName, cfg.LogLevel, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
}

// services are the pieces whose backing stores depend on STORE_DRIVER.
type services struct {
	carts     *cart.Manager
	checkouts *checkout.Processor
	purchases *purchase.Tracker
	reports   *report.Service
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka producer
	var events orders.EventSink = orders.NopSink{}
	var prod *kafkax.Producer
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		prod = kafkax.NewProducer(brokers, 1024, log)
		prod.Start(ctx)
		events = kafkax.NewEmitter(prod, cfg.ServiceName)
	} else {
		log.Warn().Msg("no kafka brokers configured, events are dropped")
	}

	// Redis
	deps := httpx.Deps{
		Log:            log,
		Identity:       auth.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer),
		RequestTimeout: cfg.RequestTimeout,
	}
	var cache purchase.Cache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		deps.Idem = &redisx.IdempotencyStore{RDB: rdb}
		cache = &redisx.PurchaseCache{RDB: rdb}
	}

	var (
		svc services
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		svc, err = memoryServices(cfg, events, cache, log)
	default:
		var closeDB func()
		svc, closeDB, err = postgresServices(ctx, cfg, events, cache, log)
		if closeDB != nil {
			defer closeDB()
		}
	}
	if err != nil {
		return err
	}
	deps.Carts, deps.Checkouts, deps.Purchases, deps.Reports = svc.carts, svc.checkouts, svc.purchases, svc.reports

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpx.NewRouter(deps), ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if prod != nil {
		prod.Close() // flush queued events, then close the writer
		prod.WaitClosed()
	}
	return nil
}

func memoryServices(cfg config.Config, events orders.EventSink, cache purchase.Cache, log zerolog.Logger) (services, error) {
	store := memstore.New()
	if cfg.SeedFile != "" {
		f, err := os.Open(cfg.SeedFile)
		if err != nil {
			return services{}, fmt.Errorf("open seed: %w", err)
		}
		defer f.Close()
		if err := store.LoadSeed(f); err != nil {
			return services{}, err
		}
	}
	ledger := inventory.NewLedger(store, events)
	return services{
		carts:     cart.NewManager(store, store, ledger, store),
		checkouts: checkout.NewProcessor(store, store, store, store, events),
		purchases: purchase.NewTracker(store, cache, events, log),
		reports:   report.NewService(store, cfg.LowStockThreshold),
	}, nil
}

func postgresServices(ctx context.Context, cfg config.Config, events orders.EventSink, cache purchase.Cache, log zerolog.Logger) (services, func(), error) {
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return services{}, nil, err
		}
		log.Info().Msg("migrations applied")
	}
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return services{}, nil, fmt.Errorf("db connect: %w", err)
	}
	gdb, err := postgres.OpenGorm(pool)
	if err != nil {
		pool.Close()
		return services{}, nil, err
	}

	tx := &postgres.TxManager{Pool: pool}
	products := &inventory.PGStore{DB: pool}
	carts := &cart.PGStore{DB: pool}
	purchases := &purchase.PGStore{DB: pool}
	ledger := inventory.NewLedger(products, events)
	return services{
		carts:     cart.NewManager(carts, products, ledger, tx),
		checkouts: checkout.NewProcessor(&checkout.PGStore{DB: pool}, carts, purchases, tx, events),
		purchases: purchase.NewTracker(purchases, cache, events, log),
		reports:   report.NewService(&report.GormReader{DB: gdb}, cfg.LowStockThreshold),
	}, pool.Close, nil
}
