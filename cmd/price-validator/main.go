package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/StrathCole/oracle-validator/pkg/api"
	"github.com/StrathCole/oracle-validator/pkg/config"
	"github.com/StrathCole/oracle-validator/pkg/flags"
	"github.com/StrathCole/oracle-validator/pkg/logging"
	"github.com/StrathCole/oracle-validator/pkg/metrics"
	"github.com/StrathCole/oracle-validator/pkg/notify"
	"github.com/StrathCole/oracle-validator/pkg/registry"
	"github.com/StrathCole/oracle-validator/pkg/sources"
	"github.com/StrathCole/oracle-validator/pkg/sources/aggregate"
	"github.com/StrathCole/oracle-validator/pkg/upkeep"
	"github.com/StrathCole/oracle-validator/pkg/validator"
	"github.com/StrathCole/oracle-validator/pkg/version"

	// Import sources to register them
	_ "github.com/StrathCole/oracle-validator/pkg/sources/evm"
	_ "github.com/StrathCole/oracle-validator/pkg/sources/priceserver"
)

const dryRunSink = "dry-run"

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
	dryRun     = flag.Bool("dry-run", false, "Log invalid assets instead of raising flags")
	once       = flag.Bool("once", false, "Run a single upkeep cycle and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-validator version %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		cfg.Sinks = []config.SourceConfig{{Name: dryRunSink, Type: "log"}}
		cfg.Active.Sink = dryRunSink
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-validator", "version", version.Version, "registry", cfg.Registry.Backend)
	if *dryRun {
		logger.Warn("DRY RUN MODE ENABLED - invalid assets are logged, no flags are raised")
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- run(ctx, cfg, logger)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Validator failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Shutdown complete")
		return
	}

	logger.Info("Shutting down gracefully...")
	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	case <-time.After(10 * time.Second):
		logger.Warn("Shutdown timed out")
	}
	logger.Info("Shutdown complete")
}

// run wires the components and serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	owner, err := cfg.OwnerCredential()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifiers := notify.Multi{notify.NewLogNotifier(logger.With("component", "notify"))}
	var hub *api.EventHub
	if cfg.Server.WebSocket.Enabled {
		hub = api.NewEventHub(logger.With("component", "events"))
		go hub.Run(ctx)
		notifiers = append(notifiers, hub)
	}

	reg := registry.New(store, notifiers, logger.With("component", "registry"))

	primary, err := sources.NewPrimary(ctx, cfg.Primary.Type, cfg.Primary.WithLogger(logger.With("source", "primary")))
	if err != nil {
		return fmt.Errorf("failed to create primary source: %w", err)
	}
	logger.Info("Primary source ready", "type", cfg.Primary.Type)

	// Median references aggregate the plain ones, so they are built last.
	references := make(map[string]sources.ReferenceSource, len(cfg.References))
	members := make(map[string]sources.ReferenceSource, len(cfg.References))
	for _, aggregates := range []bool{false, true} {
		for _, rc := range cfg.References {
			if (rc.Type == aggregate.Type) != aggregates {
				continue
			}
			rcfg := rc.WithLogger(logger.With("source", rc.Name))
			if aggregates {
				rcfg["references"] = members
			}
			ref, err := sources.NewReference(ctx, rc.Type, rcfg)
			if err != nil {
				return fmt.Errorf("failed to create reference source %s: %w", rc.Name, err)
			}
			references[rc.Name] = ref
			if !aggregates {
				members[rc.Name] = ref
			}
			logger.Info("Reference source ready", "name", rc.Name, "type", rc.Type)
		}
	}

	sinks := make(map[string]flags.Sink, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		sink, err := flags.New(ctx, sc.Type, sc.WithLogger(logger.With("sink", sc.Name)))
		if err != nil {
			return fmt.Errorf("failed to create flag sink %s: %w", sc.Name, err)
		}
		sinks[sc.Name] = sink
		logger.Info("Flag sink ready", "name", sc.Name, "type", sc.Type)
	}

	engine := validator.NewEngine(reg, primary, cfg.Engine.Concurrency, logger.With("component", "engine"))
	v, err := validator.New(engine, reg, validator.Options{
		Owner:      owner,
		References: references,
		Sinks:      sinks,
		Reference:  cfg.Active.Reference,
		Sink:       cfg.Active.Sink,
		Notifier:   notifiers,
		Logger:     logger.With("component", "validator"),
	})
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	for _, b := range cfg.Bindings {
		binding := registry.FeedBinding{Symbol: b.Symbol, Decimals: b.Decimals, Denominator: b.Denominator}
		if err := v.SetBinding(ctx, owner, common.HexToAddress(b.Asset), binding); err != nil {
			return fmt.Errorf("failed to seed binding for %s: %w", b.Asset, err)
		}
	}
	if len(cfg.Bindings) > 0 {
		logger.Info("Seeded bindings", "count", len(cfg.Bindings))
	}

	adapter, err := upkeep.NewAdapter(v, logger.With("component", "upkeep"))
	if err != nil {
		return fmt.Errorf("failed to create upkeep adapter: %w", err)
	}

	assets := make([]common.Address, len(cfg.Upkeep.Assets))
	for i, a := range cfg.Upkeep.Assets {
		assets[i] = common.HexToAddress(a)
	}

	if *once {
		scheduler, err := upkeep.NewScheduler(adapter, reg, cfg.Upkeep.Schedule, assets, cfg.Upkeep.Timeout.ToDuration(), logger.With("component", "scheduler"))
		if err != nil {
			return err
		}
		runCtx, runCancel := context.WithTimeout(ctx, cfg.Upkeep.Timeout.ToDuration())
		defer runCancel()
		r, err := scheduler.RunOnce(runCtx)
		if err != nil {
			return err
		}
		logger.Info("Upkeep cycle finished", "run_id", r.ID.String(), "checked", r.Checked, "performed", r.Performed)
		return nil
	}

	var scheduler *upkeep.Scheduler
	if cfg.Upkeep.Enabled {
		scheduler, err = upkeep.NewScheduler(adapter, reg, cfg.Upkeep.Schedule, assets, cfg.Upkeep.Timeout.ToDuration(), logger.With("component", "scheduler"))
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	server := api.NewServer(v, adapter, api.Options{
		Addr:           cfg.Server.HTTP.Addr,
		TLSCert:        tlsValue(cfg.Server.HTTP.TLS.Enabled, cfg.Server.HTTP.TLS.Cert),
		TLSKey:         tlsValue(cfg.Server.HTTP.TLS.Enabled, cfg.Server.HTTP.TLS.Key),
		RequestTimeout: cfg.Server.RequestTimeout.ToDuration(),
		RateLimit:      cfg.Server.RateLimit.RPS,
		RateBurst:      cfg.Server.RateLimit.Burst,
		Events:         hub,
		Logger:         logger.With("component", "api"),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown failed", "error", err)
		}
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
	}()

	return server.Start()
}

func tlsValue(enabled bool, v string) string {
	if !enabled {
		return ""
	}
	return v
}

// openStore connects the configured binding store and returns its closer.
func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (registry.Store, func(), error) {
	switch cfg.Registry.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Registry.Redis.Addr,
			Password: cfg.RedisPassword(),
			DB:       cfg.Registry.Redis.DB,
		})
		store := registry.NewRedisStore(client, cfg.Registry.Redis.Key)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Using redis binding store", "addr", cfg.Registry.Redis.Addr, "key", cfg.Registry.Redis.Key)
		return store, func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		store, err := registry.OpenPostgres(cfg.Registry.Postgres.DSN, cfg.Registry.Postgres.Table)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
		logger.Info("Using postgres binding store", "table", cfg.Registry.Postgres.Table)
		return store, func() { _ = store.Close() }, nil

	case config.BackendMemory:
		logger.Warn("Using in-memory binding store; bindings are lost on restart")
		return registry.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", config.ErrInvalidRegistryBackend, cfg.Registry.Backend)
	}
}
