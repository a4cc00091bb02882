// Command klistra-server runs the reference paste storage service.
//
// The service stores only ciphertext, salts, verifiers and, for unprotected
// pastes, the embedded key. It never sees a password or plaintext.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/klistra/client-go/internal/server"
)

// Config is the resolved server configuration.
type Config struct {
	Addr          string
	DataDir       string
	PublicURL     string
	LogLevel      string
	SweepInterval time.Duration
	RateLimit     bool
}

// parseConfig reads flags, falling back to KLISTRA_* environment variables
// for their defaults.
func parseConfig(args []string, stderr io.Writer) (Config, error) {
	fs := pflag.NewFlagSet("klistra-server", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var cfg Config
	fs.StringVar(&cfg.Addr, "addr", envOr("KLISTRA_ADDR", ":8080"), "listen address")
	fs.StringVar(&cfg.DataDir, "data-dir", os.Getenv("KLISTRA_DATA_DIR"), "badger directory; empty keeps data in memory")
	fs.StringVar(&cfg.PublicURL, "public-url", os.Getenv("KLISTRA_PUBLIC_URL"), "prefix for returned file URLs")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("KLISTRA_LOG_LEVEL", "info"), "zerolog level")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", time.Minute, "how often expired entries are removed")
	fs.BoolVar(&cfg.RateLimit, "rate-limit", os.Getenv("KLISTRA_RATE_LIMIT") != "false", "enable per-client rate limits")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newServer(cfg Config, logger zerolog.Logger) (*server.Server, server.Store, error) {
	var (
		store server.Store
		err   error
	)
	if cfg.DataDir == "" {
		store = server.NewMemoryStore()
	} else {
		store, err = server.OpenBadgerStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
	}

	scfg := server.Config{
		Store:         store,
		PublicURL:     cfg.PublicURL,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	}
	if cfg.RateLimit {
		scfg.GeneralLimit = server.DefaultGeneralLimit
		scfg.CreateLimit = server.DefaultCreateLimit
	}
	return server.New(scfg), store, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := zerolog.New(stderr).Level(level).With().Timestamp().Logger()

	srv, store, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("janitor stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Bool("persistent", cfg.DataDir != "").
			Bool("rate_limit", cfg.RateLimit).
			Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return httpServer.Shutdown(shutdownCtx)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "klistra-server: %v\n", err)
		os.Exit(1)
	}
}
