package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cognicore/epimine/pkg/epimine"
	"github.com/cognicore/epimine/pkg/epimine/config"
	"github.com/cognicore/epimine/pkg/epimine/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		input      = flag.String("input", "processed_papers.json", "Preprocessed papers JSON")
		output     = flag.String("output", "categorized_papers.json", "Categorized output JSON")
		provider   = flag.String("oracle", "", "Oracle provider: none, llm or nli")
		threshold  = flag.Float64("threshold", 0, "Oracle confidence threshold")
		workers    = flag.Int("workers", 0, "Worker count (0 = one per CPU)")
		timeout    = flag.Duration("document-timeout", 0, "Per-paper oracle timeout (0 disables)")
		storePath  = flag.String("store", "", "SQLite run store path")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat  = flag.String("log-format", "", "Log format: console or json")
		metrics    = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("environment: %v", err)
	}

	// Flags given on the command line win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "oracle":
			cfg.Oracle.Provider = *provider
		case "threshold":
			cfg.Oracle.Threshold = *threshold
		case "workers":
			cfg.Pipeline.Workers = *workers
		case "document-timeout":
			cfg.Pipeline.DocumentTimeout = *timeout
		case "store":
			cfg.Store.Path = *storePath
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		case "metrics-addr":
			cfg.Metrics.Addr = *metrics
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reg *prometheus.Registry
	if cfg.Metrics.Addr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	app, err := epimine.NewFromConfig(ctx, cfg, logger, registerer)
	if err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}
	defer app.Close()

	report, err := app.Run(ctx, *input, *output)
	if err != nil {
		code := 1
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted, partial output written", zap.String("output", *output))
			code = 130
		} else {
			logger.Error("run failed", zap.Error(err))
		}
		app.Close()
		_ = logger.Sync()
		os.Exit(code)
	}

	fmt.Printf("run %s: %d processed, %d skipped, %d failed -> %s\n",
		report.Run.ID, report.Run.Processed, report.Run.Skipped, report.Run.Failed, *output)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
