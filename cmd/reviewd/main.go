// reviewd serves review reports over HTTP, computing them on a
// single-flight background queue.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/localeforge/vetqueue/internal/api"
	"github.com/localeforge/vetqueue/internal/app/review"
	reviewmetrics "github.com/localeforge/vetqueue/internal/app/review/metrics"
	"github.com/localeforge/vetqueue/internal/config"
	"github.com/localeforge/vetqueue/internal/config/fileloader"
	"github.com/localeforge/vetqueue/internal/infra/localedata"
	"github.com/localeforge/vetqueue/internal/infra/memory/resolvers"
	"github.com/localeforge/vetqueue/internal/infra/reportgen"
	"github.com/localeforge/vetqueue/pkg/common/logger"
	"github.com/localeforge/vetqueue/pkg/common/otel"
)

const serviceType = "reviewd"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		stdlog.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("REVIEWD-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, metadata)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, hostname); err != nil {
		log.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, hostname string) error {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	var tracer trace.Tracer
	queueMetrics := reviewmetrics.QueueMetrics(reviewmetrics.Noop{})
	if cfg.Telemetry.Enabled {
		excluded := map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		}
		for _, p := range cfg.Telemetry.ExcludePaths {
			excluded[p] = struct{}{}
		}

		tp, telemetryTeardown, err := otel.InitTelemetry(log, otel.Config{
			ServiceName:      serviceType,
			ExporterEndpoint: cfg.Telemetry.Endpoint,
			ExcludedRoutes:   excluded,
			Probability:      cfg.Telemetry.SampleRate,
			ResourceAttributes: map[string]string{
				"library.language": "go",
				"host.name":        hostname,
			},
			InsecureExporter: true,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer telemetryTeardown(ctx)
		tracer = tp.Tracer(serviceType)

		qm, err := reviewmetrics.New(otelapi.GetMeterProvider())
		if err != nil {
			return fmt.Errorf("initializing queue metrics: %w", err)
		}
		queueMetrics = qm
	} else {
		tracer = tracenoop.NewTracerProvider().Tracer(serviceType)
	}

	store, err := localedata.NewStore(cfg.Data.Dir)
	if err != nil {
		return err
	}
	coverage, err := localedata.LoadCoverage(cfg.Data.CoverageFile)
	if err != nil {
		return err
	}

	generator := reportgen.New(store, coverage, tracer)
	resolverCache := resolvers.New(store, cfg.Queue.ResolverCacheSize)

	queue, err := review.New(review.Config{
		Generator: generator,
		Coverage:  coverage,
		Counter:   store,
		Resolvers: resolverCache,
		Logger:    log,
		Tracer:    tracer,
		Metrics:   queueMetrics,
	})
	if err != nil {
		return fmt.Errorf("building review queue: %w", err)
	}

	server, err := api.NewServer(cfg, log, tracer, queue)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	log.Info(ctx, "reviewd starting",
		"addr", cfg.Server.Addr,
		"data_dir", cfg.Data.Dir)

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	log.Info(ctx, "reviewd stopped")
	return nil
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := fileloader.NewFileLoader(path).Load(ctx)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}
