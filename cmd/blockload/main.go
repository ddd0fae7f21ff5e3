// blockload loads research projects from JSON or parquet exports into the configured content store.
//
// Usage:
//
//	blockload -input ./projects
//	blockload -input project.json -metrics-port 9090
//	blockload -input ./warehouse  # blocks.parquet + blocks.sources.parquet
//
// Each file holds one project object or an array of them. The store is taken
// from config/<ENV>.yaml, the same file the API server reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/researchrag/internal/config"
	logpkg "github.com/kailas-cloud/researchrag/internal/logger"
	researchrag "github.com/kailas-cloud/researchrag/pkg/sdk"
)

type options struct {
	input       string
	metricsPort string
	failFast    bool
}

func parseFlags() options {
	o := options{}
	flag.StringVar(&o.input, "input", "projects", "project JSON or parquet file, or a directory of *.json and *.parquet files")
	flag.StringVar(&o.metricsPort, "metrics-port", "", "serve Prometheus metrics on this port (empty = off)")
	flag.BoolVar(&o.failFast, "fail-fast", false, "exit non-zero if any project fails to load")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, &cfg, opts, logger); err != nil {
		logger.Error("blockload failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	start := time.Now()

	projects, err := readProjects(opts.input)
	if err != nil {
		return err
	}
	logger.Info("projects read", zap.String("input", opts.input), zap.Int("projects", len(projects)))

	reg := prometheus.NewRegistry()
	if opts.metricsPort != "" {
		srv := serveMetrics(opts.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	storeOpt, err := storeOption(cfg)
	if err != nil {
		return err
	}
	client, err := researchrag.New(ctx, storeOpt,
		researchrag.WithKeyPrefix(cfg.Storage.KeyPrefix),
		researchrag.WithPrometheus(reg),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	results := client.Blocks().Load(ctx, projects)

	var blocks, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Warn("project failed", zap.String("project_id", r.ProjectID), zap.Error(r.Err))
			continue
		}
		blocks += r.Blocks
	}

	total, err := client.Blocks().Count(ctx)
	if err != nil {
		logger.Warn("count blocks", zap.Error(err))
	}

	logger.Info("load finished",
		zap.Int("projects", len(results)),
		zap.Int("failed", failed),
		zap.Int("blocks_written", blocks),
		zap.Int("blocks_total", total),
		zap.Duration("elapsed", time.Since(start)),
	)

	if opts.failFast && failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(results))
	}
	return nil
}

func storeOption(cfg *config.Config) (researchrag.Option, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return researchrag.WithPostgres(cfg.Database.URL), nil
	case "redis":
		if len(cfg.Database.Addrs) == 0 {
			return nil, fmt.Errorf("database.addrs is required for redis")
		}
		return researchrag.WithRedis(cfg.Database.Addrs[0], cfg.Database.Password), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
