package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/board"
	"github.com/sumire/pumpplanner/internal/config"
	"github.com/sumire/pumpplanner/internal/handler"
	"github.com/sumire/pumpplanner/internal/logger"
	"github.com/sumire/pumpplanner/internal/metrics"
	"github.com/sumire/pumpplanner/internal/repository"
	"github.com/sumire/pumpplanner/internal/service"
	"github.com/sumire/pumpplanner/internal/session"
	"github.com/sumire/pumpplanner/internal/validation"
)

var rootCmd = &cobra.Command{
	Use:   "pumpplanner",
	Short: "Concrete pump job scheduling service",
	Long: `pumpplanner serves the dispatch calendar of a concrete pumping company:
the job store API and server-side scheduling boards.

Configuration is read from the environment (PORT, DATABASE_URL, JWT_SECRET, ...).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		out, err := cfg.MaskedJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %+v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer func() { _ = log.Sync() }()

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	log.Info("database connected")

	var (
		sink           metrics.Sink = metrics.NewNoopSink()
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewPrometheusSink(reg, log)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	v := validation.New()

	jobRepo := repository.NewJobRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	userRepo := repository.NewUserRepository(db)

	calendarSvc := service.NewCalendarService(jobRepo, driverRepo, v, sink, log.Named("calendar"))
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{JWTSecret: cfg.JWTSecret})

	var geocoder service.Geocoder = service.NoopGeocoder{}
	if cfg.GeocoderURL != "" {
		geocoder = service.NewNominatimGeocoder(cfg.GeocoderURL, cfg.GeocoderTimeout)
	}

	sessions := session.NewRegistry(cfg.SessionTTL, sink, log.Named("session"))
	defer sessions.Shutdown()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go sessions.Run(sweepCtx, cfg.SessionTTL/2)

	boardLog := log.Named("board")
	boards := handler.NewBoardHandler(sessions, calendarSvc, handler.BoardSettings{
		Grid:           cfg.Grid(),
		Policy:         cfg.Policy(),
		Location:       cfg.Location(),
		HighlightGrace: cfg.HighlightGrace,
		Notifier: board.NotifierFunc(func(orgID string, n board.Notification) {
			boardLog.Debug("notification",
				zap.String("organization_id", orgID),
				zap.String("level", string(n.Level)),
				zap.String("operation", n.Operation),
				zap.String("message", n.Message),
			)
		}),
	}, sink, v, boardLog)

	e := handler.NewRouter(handler.RouterConfig{
		Logger:         log,
		Validator:      v,
		Auth:           authSvc,
		FrontendURL:    cfg.FrontendURL,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		JobHandler:     handler.NewJobHandler(calendarSvc),
		GeocodeHandler: handler.NewGeocodeHandler(geocoder, log.Named("geocoder")),
		BoardHandler:   boards,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.MetricsPath,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}

	log.Info("server stopped gracefully")
	return nil
}
