package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/config"
	"gigflow/db"
	"gigflow/gig"
	"gigflow/hire"
	"gigflow/httpapi"
	"gigflow/notify"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := newLogger(os.Stdout, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("bootstrap database pool: %w", err)
	}
	defer pool.Close()

	hub := notify.NewHub(notify.HubWithLogger(log))
	defer hub.Close()

	var relays []notify.Relay
	if cfg.RabbitURL != "" {
		relay, err := notify.NewAMQPRelay(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			return fmt.Errorf("bootstrap amqp relay: %w", err)
		}
		defer relay.Close()
		relays = append(relays, relay)
		log.Info("amqp relay enabled", slog.String("exchange", cfg.NotifyExchange))
	}
	dispatcher := notify.NewDispatcher(hub, log, relays...).WithRelayTimeout(cfg.NotifyRelayTimeout)

	gigRepo := gig.NewRepository(pool)
	bidRepo := bid.NewRepository(pool)

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret).WithTokenTTL(cfg.TokenTTL)
	gigService := gig.NewService(gigRepo)
	bidService := bid.NewService(bidRepo, gigService)
	hireService := hire.NewService(pool, gigRepo, bidRepo, dispatcher,
		hire.WithLogger(log),
		hire.WithLockTimeout(cfg.HireLockTimeout))

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Logger:   log,
			Auth:     authService,
			Gigs:     gigService,
			Bids:     bidService,
			Hire:     hireService,
			Hub:      hub,
			DB:       pool,
			TokenTTL: cfg.TokenTTL,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// close live streams first so Shutdown does not wait on them
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
