// Package main provides the tap-sendgrid entry point: it extracts SendGrid
// resources and writes JSON-line messages to stdout.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rivermill/tap-sendgrid/pkg/catalog"
	"github.com/rivermill/tap-sendgrid/pkg/client"
	"github.com/rivermill/tap-sendgrid/pkg/config"
	"github.com/rivermill/tap-sendgrid/pkg/logging"
	"github.com/rivermill/tap-sendgrid/pkg/sink"
	"github.com/rivermill/tap-sendgrid/pkg/state"
	"github.com/rivermill/tap-sendgrid/pkg/sync"
)

var (
	configPath   string
	catalogPath  string
	statePath    string
	redisURL     string
	metricsAddr  string
	logLevel     string
	pretty       bool
	validateOut  bool
)

var rootCmd = &cobra.Command{
	Use:   "tap-sendgrid",
	Short: "Incremental SendGrid extractor",
	Long: `tap-sendgrid extracts contacts, lists, segments, suppression groups and
suppression events from the SendGrid API and emits them as JSON-line
SCHEMA/RECORD/STATE messages on stdout. Bookmarks are persisted between
runs so each invocation resumes where the last one stopped.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the tap config file (JSON or YAML)")
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "path to the catalog file")
	rootCmd.Flags().StringVar(&statePath, "state", "state.json", "path to the state file")
	rootCmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis address for state storage (overrides --state)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus metrics (disabled when empty)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable log output")
	rootCmd.Flags().BoolVar(&validateOut, "validate", false, "validate records against their schema before emission")

	rootCmd.MarkFlagRequired("config")
	rootCmd.MarkFlagRequired("catalog")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: pretty,
		Output: os.Stderr,
	})

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStateStore(ctx)
	if err != nil {
		return err
	}

	c, err := client.New(client.Config{
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Retry:     client.DefaultRetryConfig(),
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	var opts []sink.Option
	if validateOut {
		opts = append(opts, sink.WithValidation())
	}
	writer := sink.NewWriter(os.Stdout, opts...)

	logger.Info().
		Int("streams", len(cat.Selected())).
		Str("start_date", cfg.StartDate).
		Msg("Starting sync")

	if err := sync.New(c, store, writer, cfg).Sync(ctx, cat); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	logger.Info().Msg("Sync complete")
	return nil
}

// newStateStore picks Redis when an address is configured, the local state
// file otherwise.
func newStateStore(ctx context.Context) (state.Store, error) {
	if redisURL == "" {
		return state.NewFileStore(statePath), nil
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", redisURL, err)
	}
	return state.NewRedisStore(redisClient, state.DefaultRedisKey), nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
