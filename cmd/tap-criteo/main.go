package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-criteo/internal/pipeline"
	"github.com/ajitpratap0/nebula-criteo/pkg/auth"
	"github.com/ajitpratap0/nebula-criteo/pkg/catalog"
	"github.com/ajitpratap0/nebula-criteo/pkg/clients"
	"github.com/ajitpratap0/nebula-criteo/pkg/config"
	"github.com/ajitpratap0/nebula-criteo/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-criteo/pkg/logger"
	"github.com/ajitpratap0/nebula-criteo/pkg/metrics"
	"github.com/ajitpratap0/nebula-criteo/pkg/observability"
	"github.com/ajitpratap0/nebula-criteo/pkg/singer"

	// Register the Criteo streams
	_ "github.com/ajitpratap0/nebula-criteo/pkg/connector/sources/criteo"
)

var version = "0.1.0"

// flags shared by discover and sync
type commonFlags struct {
	configFile  string
	logLevel    string
	metricsAddr string
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tap-criteo",
		Short: "Singer tap for the Criteo Marketing Solutions API",
		Long: `tap-criteo extracts advertisers, audiences, ad sets, campaigns and the
statistics report from the Criteo API and writes Singer messages to stdout.`,
		SilenceUsage: true,
	}

	var flags commonFlags
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to the tap configuration (JSON or YAML)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log_level")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tap-criteo v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available streams",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available streams:")
			for _, info := range registry.GetRegistry().Info() {
				suffix := ""
				if info.Dynamic {
					suffix = " (schema follows the field selection)"
				}
				fmt.Printf("  - %s: %s%s\n", info.Name, info.Description, suffix)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "Print the catalog of available streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd.Context(), &flags)
		},
	})

	var catalogFile, stateFile string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync selected streams as Singer messages",
		Long: `Sync the streams selected in the catalog and write SCHEMA, RECORD and STATE
messages to stdout. Without --catalog every stream and field is synced.

Example:
  tap-criteo sync --config config.json --catalog catalog.json --state state.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), &flags, catalogFile, stateFile)
		},
	}
	syncCmd.Flags().StringVar(&catalogFile, "catalog", "", "Path to the catalog (JSON or YAML)")
	syncCmd.Flags().StringVar(&stateFile, "state", "", "Path to a state file from a previous run")
	root.AddCommand(syncCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// runtimeEnv is what a command needs after startup
type runtimeEnv struct {
	config   *config.TapConfig
	tap      *pipeline.Tap
	logger   *zap.Logger
	shutdown func()
}

// setup loads configuration and wires logging, tracing, metrics, the
// authenticator and the API client into a tap
func setup(ctx context.Context, flags *commonFlags) (*runtimeEnv, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}
	log := logger.Get()

	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.EnableTracing
	tracingCfg.ServiceVersion = version
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg)
	if err != nil {
		return nil, err
	}

	var metricsServer *http.Server
	if flags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              flags.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", flags.metricsAddr))
	}

	authenticator := auth.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, log)

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.BaseURL = cfg.APIURL
	httpCfg.RequestTimeout = cfg.RequestTimeout
	httpCfg.RateLimit = cfg.RateLimitPerSec
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RetryDelay = cfg.RetryDelay
	httpCfg.UserAgent = "tap-criteo/" + version
	client := clients.NewHTTPClient(httpCfg, authenticator, log)

	tap, err := pipeline.NewTap(cfg, registry.GetRegistry(), client, singer.NewWriter(os.Stdout), log)
	if err != nil {
		_ = client.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	return &runtimeEnv{
		config: cfg,
		tap:    tap,
		logger: log,
		shutdown: func() {
			_ = client.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
			if metricsServer != nil {
				_ = metricsServer.Shutdown(shutdownCtx)
			}
		},
	}, nil
}

func runDiscover(ctx context.Context, flags *commonFlags) error {
	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.shutdown()

	return catalog.Write(os.Stdout, env.tap.Discover())
}

func runSync(ctx context.Context, flags *commonFlags, catalogFile, stateFile string) error {
	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.shutdown()

	var cat *catalog.Catalog
	if catalogFile != "" {
		if cat, err = catalog.Load(catalogFile); err != nil {
			return err
		}
	}

	state := singer.NewState()
	if stateFile != "" {
		if state, err = singer.LoadState(stateFile); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := env.tap.Sync(ctx, cat, state); err != nil {
		return err
	}
	env.logger.Info("tap finished", zap.Duration("duration", time.Since(start)))
	return nil
}
