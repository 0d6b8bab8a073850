package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bondcurve/config"
	"bondcurve/core"
	"bondcurve/crypto"
	"bondcurve/native/bonding"
	"bondcurve/observability/logging"
	telemetry "bondcurve/observability/otel"
	"bondcurve/rpc"
	"bondcurve/storage"
	"bondcurve/storage/audit"
)

const envVar = "BONDING_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	allowMigrate := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	env := strings.TrimSpace(os.Getenv(envVar))
	if env == "" {
		env = cfg.Environment
	}
	logger, logCloser := logging.SetupWithOptions(logging.Options{
		Service: "bondingd",
		Env:     env,
		File:    cfg.LogFile,
	})
	defer logCloser.Close()

	if err := run(cfg, env, *allowMigrate, logger); err != nil {
		logger.Error("bondingd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, env string, allowMigrate bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "bondingd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.MetricsEnabled,
		Traces:      cfg.Telemetry.TracesEnabled,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	contract := strings.TrimSpace(cfg.Contract.ContractAddress)
	if contract == "" {
		addr, err := crypto.ContractAddress(crypto.DefaultPrefix, cfg.Contract.Symbol)
		if err != nil {
			return fmt.Errorf("derive contract address: %w", err)
		}
		contract = addr.String()
	}
	var opts []core.Option
	if allowMigrate {
		opts = append(opts, core.WithAllowMigrate())
	}
	exec, err := core.NewExecutor(db, contract, opts...)
	if err != nil {
		return err
	}
	exec.SetLogger(logger)
	if err := exec.SetProtocolFee(cfg.ProtocolFeePermille); err != nil {
		return err
	}

	var store *audit.Store
	if dsn := strings.TrimSpace(cfg.AuditDSN); dsn != "" {
		store, err = audit.Open(dsn)
		if err != nil {
			return err
		}
		defer store.Close()
		exec.SetAudit(store)
	}

	if err := instantiateIfAbsent(ctx, exec, cfg, logger); err != nil {
		return err
	}

	serverCfg := rpc.Config{
		ListenAddress: cfg.ListenAddress,
		RateLimit: rpc.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		QuoteCacheSize: cfg.QuoteCacheSize,
		Logger:         logger,
	}
	if store != nil {
		serverCfg.Audit = store
	}
	server, err := rpc.NewServer(exec, serverCfg)
	if err != nil {
		return err
	}
	logger.Info("bondingd starting",
		slog.String("contract", contract),
		slog.String("listen", cfg.ListenAddress),
		slog.String("telemetry", cfg.Telemetry.String()))
	return server.Run(ctx)
}

// instantiateIfAbsent creates the configured curve on first start. A node
// without a configured owner serves an uninstantiated store read-only.
func instantiateIfAbsent(ctx context.Context, exec *core.Executor, cfg *config.Config, logger *slog.Logger) error {
	_, err := exec.CurveInfo(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, bonding.ErrNotInstantiated) {
		return fmt.Errorf("read curve: %w", err)
	}
	owner := strings.TrimSpace(cfg.Contract.Owner)
	if owner == "" {
		logger.Warn("curve not instantiated and no owner configured")
		return nil
	}
	msg, err := cfg.Contract.InstantiateMsg()
	if err != nil {
		return err
	}
	if _, err := exec.Instantiate(ctx, bonding.MessageInfo{Sender: owner}, msg); err != nil {
		return fmt.Errorf("instantiate curve: %w", err)
	}
	logger.Info("curve instantiated",
		slog.String("owner", owner),
		slog.String("curve", msg.CurveType.Kind.String()),
		slog.String("reserve_denom", msg.ReserveDenom))
	return nil
}
