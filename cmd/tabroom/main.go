// Command tabroom runs tournament draws, adjudicator allocations and breaks
// against a SQLite or PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ahrav/go-tabroom/infrastructure/middleware"
	"github.com/ahrav/go-tabroom/infrastructure/store"
	"github.com/ahrav/go-tabroom/internal/application"
)

// Environment variables consulted when the matching flag is not set.
const (
	envDSN    = "TABROOM_DB"
	envDriver = "TABROOM_DRIVER"
)

// cli holds global flags and the dependencies built from them.
type cli struct {
	dsn         string
	driver      string
	verbose     bool
	metricsFile string

	logger   *zap.Logger
	registry *prometheus.Registry
	store    *store.SQLStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tabroom",
		Short: "Debate tournament tabulation",
		Long: `tabroom ranks teams, draws rounds, allocates adjudicators and computes
breaks for debate tournaments stored in SQLite or PostgreSQL.

A .env file in the working directory may set TABROOM_DB and TABROOM_DRIVER.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			if !cmd.Flags().Changed("db") {
				if v := os.Getenv(envDSN); v != "" {
					c.dsn = v
				}
			}
			if !cmd.Flags().Changed("driver") {
				if v := os.Getenv(envDriver); v != "" {
					c.driver = v
				}
			}

			config := zap.NewProductionConfig()
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.dsn, "db", "tabroom.db", "database DSN or SQLite file path")
	root.PersistentFlags().StringVar(&c.driver, "driver", store.DriverSQLite, "database driver (sqlite or postgres)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		c.migrateCmd(),
		c.importCmd(),
		c.standingsCmd(),
		c.checkinCmd(),
		c.drawCmd(),
		c.allocateCmd(),
		c.breakCmd(),
		c.remarkCmd(),
	)
	return root
}

// open connects to the database once per invocation.
func (c *cli) open(ctx context.Context) (*store.SQLStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	s, err := store.Open(ctx, c.driver, c.dsn, c.logger)
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

// tabulator wires a store, metrics and tracing into an application.Tabulator.
func (c *cli) tabulator(ctx context.Context) (*application.Tabulator, error) {
	s, err := c.open(ctx)
	if err != nil {
		return nil, err
	}

	c.registry = prometheus.NewRegistry()
	metrics, err := middleware.NewPrometheusMetrics(c.registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	guard := middleware.NewRoundGuard(middleware.NewOTelObserver(metrics), metrics)
	return application.NewTabulator(s, guard, c.logger), nil
}

func (c *cli) close() error {
	var errs []error
	if c.registry != nil && c.metricsFile != "" {
		if err := prometheus.WriteToTextfile(c.metricsFile, c.registry); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}
