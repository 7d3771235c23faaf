// Package main is the entry point for the inventory dashboard server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/inventory-dashboard/internal/auth"
	"github.com/vyrodovalexey/inventory-dashboard/internal/config"
	"github.com/vyrodovalexey/inventory-dashboard/internal/handler"
	"github.com/vyrodovalexey/inventory-dashboard/internal/server"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// Flag names.
const (
	flagPort     = "port"
	flagLogLevel = "log-level"
	flagUsage    = "usage"
	flagCost     = "cost"
)

var errNoPassword = errors.New("no password given")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command line application. Without a command it serves.
func newApp() *cli.App {
	return &cli.App{
		Name:    "inventory-dashboard",
		Usage:   "serve the inventory dashboard API and live WebSocket views",
		Version: handler.Version,
		Flags:   serveFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Flags:  serveFlags(),
				Action: serveAction,
			},
			{
				Name:  "check-config",
				Usage: "load and validate the configuration, then print it",
				Flags: append(serveFlags(), &cli.BoolFlag{
					Name:  flagUsage,
					Usage: "also list every supported environment variable",
				}),
				Action: checkConfigAction,
			},
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash of a password for " + config.EnvBasicAuthUsers,
				ArgsUsage: "[password]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagCost,
						Value: bcrypt.DefaultCost,
						Usage: "bcrypt cost",
					},
				},
				Action: hashPasswordAction,
			},
		},
	}
}

// serveFlags returns the flags that override the environment.
func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  flagPort,
			Usage: "HTTP listen port (overrides " + config.EnvServerPort + ")",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "log level (overrides " + config.EnvLogLevel + ")",
		},
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if c.IsSet(flagPort) {
		cfg.ServerPort = c.Int(flagPort)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating flags: %w", err)
	}
	return cfg, nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("seed_demo_data", cfg.SeedDemoData),
		zap.String("id_strategy", cfg.IDStrategy),
		zap.String("sort_locale", cfg.SortLocale),
	)

	authenticator, err := auth.New(cfg.AuthMethod(), cfg.AuthCredentials())
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}
	if authenticator == nil {
		logger.Info("authentication disabled")
	} else {
		logger.Info("authentication enabled", zap.String("method", string(authenticator.Method())))
	}

	itemStore, err := newStore(c.Context, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger, itemStore, authenticator)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Address(), err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runServer(ctx, srv, ln, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// runServer serves on ln until ctx is done, then shuts down within timeout.
func runServer(
	ctx context.Context,
	srv *server.Server,
	ln net.Listener,
	timeout time.Duration,
	logger *zap.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newStore creates the item store and loads the demo items if enabled.
func newStore(ctx context.Context, cfg *config.Config) (*store.MemoryStore, error) {
	ids, err := store.NewIDGenerator(cfg.IDStrategy)
	if err != nil {
		return nil, fmt.Errorf("creating id generator: %w", err)
	}
	locale, err := cfg.Locale()
	if err != nil {
		return nil, err
	}

	itemStore := store.NewMemoryStore(
		store.WithIDGenerator(ids),
		store.WithLocale(locale),
	)

	if cfg.SeedDemoData {
		if err := itemStore.Seed(ctx, store.DemoItems()...); err != nil {
			return nil, fmt.Errorf("seeding demo items: %w", err)
		}
	}
	return itemStore, nil
}

func checkConfigAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	rows := []struct {
		key   string
		value any
	}{
		{"server_port", cfg.ServerPort},
		{"log_level", cfg.LogLevel},
		{"shutdown_timeout", cfg.ShutdownTimeout},
		{"metrics_enabled", cfg.MetricsEnabled},
		{"auth_mode", cfg.AuthMethod()},
		{"basic_auth_users", countPairs(cfg.BasicAuthUsers)},
		{"api_keys", countPairs(cfg.APIKeys)},
		{"cors_allowed_origins", strings.Join(cfg.CORSAllowedOrigins, ",")},
		{"seed_demo_data", cfg.SeedDemoData},
		{"id_strategy", cfg.IDStrategy},
		{"sort_locale", cfg.SortLocale},
		{"ws_send_buffer", cfg.WSSendBuffer},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-22s %v\n", row.key, row.value); err != nil {
			return err
		}
	}

	if c.Bool(flagUsage) {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return config.Usage(w)
	}
	return nil
}

// countPairs counts the comma separated entries of a credential list so
// secrets are never printed.
func countPairs(list string) int {
	if strings.TrimSpace(list) == "" {
		return 0
	}
	return len(strings.Split(list, ","))
}

func hashPasswordAction(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		var err error
		if password, err = readPassword(c.App.Reader); err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password, c.Int(flagCost))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, hash)
	return err
}

// readPassword reads the first line of r.
func readPassword(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", errNoPassword
	}

	password := strings.TrimRight(scanner.Text(), "\r")
	if password == "" {
		return "", errNoPassword
	}
	return password, nil
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
