// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/tabletop/internal/auth"
	"github.com/jason-s-yu/tabletop/internal/cache"
	"github.com/jason-s-yu/tabletop/internal/choreo"
	"github.com/jason-s-yu/tabletop/internal/config"
	"github.com/jason-s-yu/tabletop/internal/handlers"
	"github.com/jason-s-yu/tabletop/internal/layout"
	"github.com/jason-s-yu/tabletop/internal/table"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if err := auth.Init(cfg.TokenExpiry); err != nil {
		logger.WithError(err).Fatal("failed to init auth")
	}

	var journal table.Journal
	if cfg.JournalEnabled {
		if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.WithError(err).Warn("step journal disabled")
		} else {
			defer cache.Rdb.Close()
			j := cache.NewRedisJournal(cache.Rdb, cfg.JournalQueue, cache.DefaultJournalBuffer,
				logrus.NewEntry(logger).WithField("component", "journal"))
			defer j.Close()
			journal = j
			logger.WithField("queue", cfg.JournalQueue).Info("journaling committed steps")
		}
	}

	srv := handlers.NewTableServer(
		logger,
		layout.Geometry{LocalSeat: cfg.LocalSeat},
		choreo.DefaultDelays().Scaled(cfg.DelayScale),
		journal,
	)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.Routes(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Running on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
}
