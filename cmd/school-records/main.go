// main is the entry point of the school records service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the storage gateway (relational database or JSON document)
//  4. Wrap the gateway with Prometheus metrics
//  5. Load every course, instructor and student into the registry cache
//  6. Start the HTTP server in a separate goroutine
//  7. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  8. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/school-records --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/school-records
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/school-records/internal/config"
	"github.com/aanand-mishra/school-records/internal/http/router"
	"github.com/aanand-mishra/school-records/internal/registry"
	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/storage/document"
	"github.com/aanand-mishra/school-records/internal/storage/instrumented"
	"github.com/aanand-mishra/school-records/internal/storage/relational"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML config and exits if anything is wrong.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)

	log.Info("starting school-records",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Open Storage ───────────────────────────────────────────────────
	// Everything above this point only sees the storage.Gateway interface.
	// Which backend sits behind it is decided here and nowhere else.
	ctx := context.Background()
	gw, err := openGateway(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised",
		slog.String("backend", cfg.Storage.Backend))

	// ── 4. Metrics ────────────────────────────────────────────────────────
	// The decorator satisfies storage.Gateway too, so the registry never
	// knows it is being measured.
	metered, err := instrumented.New(gw, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("failed to register metrics",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 5. Load the Registry ──────────────────────────────────────────────
	// The registry is the in-memory copy every handler reads from. It is
	// filled once here; POST /api/refresh reloads it later.
	reg := registry.New(metered, log)
	if err := reg.Load(ctx); err != nil {
		log.Error("failed to load records",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ── 6. Create the HTTP Server ─────────────────────────────────────────
	// The route table lives in package router.
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router.New(reg, promhttp.Handler(), log),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed when Shutdown() is
		// called. That's expected, so we don't log it as an error.
		if err := server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	//   os.Interrupt = Ctrl+C (SIGINT)
	//   syscall.SIGTERM = sent by `kill <pid>` or container orchestrators
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Stop taking requests first, then close storage so no handler is
	// mid-write when the database or document store goes away.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
	}

	if err := gw.Close(); err != nil {
		log.Error("failed to close storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// openGateway builds the backend named by cfg.Backend.
func openGateway(ctx context.Context, cfg config.Storage, log *slog.Logger) (storage.Gateway, error) {
	switch cfg.Backend {
	case config.BackendRelational:
		return relational.New(cfg, log)
	case config.BackendDocument:
		return document.Open(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
