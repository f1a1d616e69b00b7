package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-marketplace-orders/internal/config"
	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/logging"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	service := cfg.ServiceName + "-inventory"
	log := logging.New(service, cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword)
	defer rdb.Close()

	n := &inventory.Notifier{
		Store:     &inventory.PGStore{DB: db},
		Dedup:     &redisx.Dedup{RDB: rdb, Service: service},
		Threshold: cfg.LowStockThreshold,
		Log:       log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers(), cfg.InventoryGroup, orders.TopicStockChanged, cfg.InventoryWorkers, log)
	log.Info().
		Str("group", cfg.InventoryGroup).
		Str("topic", orders.TopicStockChanged).
		Int("workers", cfg.InventoryWorkers).
		Msg("inventory consumer started")
	if err := cons.Start(ctx, n.HandleStockChanged); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer exit")
	}
	log.Info().Msg("inventory consumer stopped")
}
