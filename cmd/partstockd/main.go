package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gofalre.io/partstock"
	"gofalre.io/partstock/cache"
	"gofalre.io/partstock/catalog"
	"gofalre.io/partstock/config"
	"gofalre.io/partstock/driver"
	"gofalre.io/partstock/ledger"
	"gofalre.io/partstock/reservation"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.LoadEnv()

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	pool, err := driver.ConnectSQL(cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := driver.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	natsConn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Fatal("failed to connect to nats", zap.Error(err))
	}
	defer natsConn.Close()

	tm := driver.NewTransactionManager(pool, logger)
	store := cache.NewStore(redisClient, logger)
	events := partstock.NewEventManager(natsConn, logger)

	service := partstock.NewService(
		ledger.NewRepository(pool, logger),
		reservation.NewRepository(pool, logger),
		catalog.NewRepository(pool, logger),
		tm, store, events,
		cfg.Inventory.ReservationTTL,
		logger,
	)
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := partstock.NewSweeper(service, cfg.Inventory.SweepInterval, logger)
	sweeper.Run(ctx)
}

func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = cfg.Encoding

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zapCfg.Level = level
	}

	return zapCfg.Build()
}
