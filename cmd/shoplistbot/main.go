package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/ShoplistBot/internal/api"
	"github.com/Kerhoff/ShoplistBot/internal/config"
	"github.com/Kerhoff/ShoplistBot/internal/handlers"
	"github.com/Kerhoff/ShoplistBot/internal/metrics"
	"github.com/Kerhoff/ShoplistBot/internal/onboarding"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
	"github.com/Kerhoff/ShoplistBot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting ShoplistBot...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Service layer
	svc := service.New(db.Store(), l)
	flow := onboarding.NewController(svc, onboarding.NewMemoryStore(), l)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram bot: %v", err)
	}

	router := bot.Router()
	router.RegisterCommand("start", handlers.NewStartHandler(svc, flow, l))
	router.RegisterCommand("help", handlers.NewHelpHandler(l))
	router.RegisterCommand("list", handlers.NewListHandler(svc, l))
	router.RegisterCommand("cancel", handlers.NewCancelHandler(svc, flow, l))
	router.RegisterCommand("invite", handlers.NewInviteHandler(svc, l))
	router.SetTextHandler(handlers.NewTextHandler(svc, flow, l))
	router.RegisterCallback(handlers.NewItemCallbacks(svc, cfg.TrashRetentionDays, cfg.TemplatesCount, l), handlers.ItemActions...)
	router.RegisterCallback(handlers.NewFamilyCallbacks(svc, flow, l), handlers.FamilyActions...)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	maintenance := service.NewMaintenance(svc, service.MaintenanceConfig{
		Interval:       cfg.MaintenanceInterval,
		RetentionDays:  cfg.TrashRetentionDays,
		TemplatesCount: cfg.TemplatesCount,
	})
	g.Go(func() error {
		maintenance.Run(ctx)
		return nil
	})

	apiServer := api.NewServer(svc, db, l)
	serve(ctx, g, l, "HTTP API", &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	serve(ctx, g, l, "metrics", &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	})

	g.Go(func() error {
		return bot.Start(ctx)
	})

	l.Info("ShoplistBot started successfully")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		l.Errorf("ShoplistBot stopped with error: %v", err)
		return
	}
	l.Info("ShoplistBot stopped")
}

// serve runs srv in g and shuts it down once ctx is done.
func serve(ctx context.Context, g *errgroup.Group, l *logrus.Logger, name string, srv *http.Server) {
	g.Go(func() error {
		l.Infof("%s server listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		l.Infof("Shutting down %s server...", name)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
