// cmd/historian/main.go drains the step journal from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/tabletop/internal/cache"
	"github.com/jason-s-yu/tabletop/internal/config"
	"github.com/jason-s-yu/tabletop/internal/database"
	"github.com/jason-s-yu/tabletop/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx); err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	defer database.DB.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("journal schema")
	}

	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.WithError(err).Fatal("redis unavailable")
	}
	defer cache.Rdb.Close()

	hs := historian.New(historian.Config{
		Client:     cache.Rdb,
		Queue:      cfg.JournalQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Flush:      database.InsertStepRecords,
		Logger:     logrus.NewEntry(logger).WithField("service", "historian"),
	})
	if err := hs.Run(ctx); err != nil {
		logger.WithError(err).Fatal("historian exited")
	}
}
