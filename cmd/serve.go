package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-outreach/config"
	"github.com/otherjamesbrown/penf-outreach/pkg/api"
	"github.com/otherjamesbrown/penf-outreach/pkg/db"
	"github.com/otherjamesbrown/penf-outreach/pkg/decisions"
	"github.com/otherjamesbrown/penf-outreach/pkg/logging"
	"github.com/otherjamesbrown/penf-outreach/pkg/observability"
)

const serviceName = "outreach"

type serveOptions struct {
	httpAddress string
	grpcAddress string
	rulesFile   string
	migrate     bool
}

// NewServeCommand creates the 'serve' command.
func NewServeCommand(deps *Deps) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the channel selection service",
		Long: `Run the HTTP channel selection service.

Endpoints:
  POST /api/ai-auto-messages/select-channel          Recommend a channel
  POST /api/ai-auto-messages/select-channel/explain  Recommend with the decision trace
  GET  /health                                       Liveness and dependency checks
  GET  /metrics                                      Prometheus metrics
  GET  /version                                      Build information

When grpc.address is set a grpc.health.v1 service is served there too.

Each decision is handed to the sinks listed under recorder.sinks (log,
postgres, redis, kafka) through a bounded asynchronous buffer. Recording
failures are logged and counted but never fail a request.`,
		Example: `  outreach serve
  outreach serve --http-address :9000 --rules ./rules.yaml
  OUTREACH_RECORDER_SINKS=log,postgres outreach serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, deps, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddress, "http-address", "", "HTTP listen address (overrides http.address)")
	cmd.Flags().StringVar(&opts.grpcAddress, "grpc-address", "", "gRPC health listen address (overrides grpc.address)")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "Rules file (overrides rules_file)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "Apply decision store migrations at startup when the postgres sink is enabled")

	return cmd
}

func runServe(ctx context.Context, deps *Deps, opts *serveOptions) error {
	cfg, err := deps.loadConfigWithSecrets()
	if err != nil {
		return err
	}
	if opts.httpAddress != "" {
		cfg.HTTP.Address = opts.httpAddress
	}
	if opts.grpcAddress != "" {
		cfg.GRPC.Address = opts.grpcAddress
	}
	if opts.rulesFile != "" {
		cfg.RulesFile = opts.rulesFile
	}

	logger := logging.NewLogger(cfg.LoggingConfig())
	logging.SetGlobal(logger)

	eng, err := loadEngine(cfg.RulesFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	tp := observability.NewTracerProvider()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	rt, err := buildRuntime(ctx, cfg, deps, logger, reg, metrics, opts.migrate)
	if err != nil {
		return err
	}
	defer rt.close(logger)

	server, err := api.NewServer(cfg.HTTP, api.Deps{
		Engine:      eng,
		Recorder:    rt.recorder,
		Metrics:     metrics,
		Gatherer:    reg,
		Tracer:      observability.NewTracerWithProvider(tp),
		Logger:      logger,
		Checks:      rt.checks,
		ServiceName: serviceName,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grpcErr := make(chan error, 1)
	if cfg.GRPC.Address != "" {
		go func() { grpcErr <- api.ServeGRPC(ctx, cfg.GRPC.Address, rt.checks, logger) }()
	} else {
		close(grpcErr)
	}

	logger.Info("Outreach service starting",
		logging.F("http_address", cfg.HTTP.Address),
		logging.F("grpc_address", cfg.GRPC.Address),
		logging.F("sinks", cfg.Recorder.Sinks),
		logging.F("rules_file", cfg.RulesFile))

	httpErr := server.Run(ctx)
	cancel()
	return errors.Join(httpErr, <-grpcErr)
}

// serveRuntime holds the recorder chain and the resources behind it.
type serveRuntime struct {
	recorder decisions.Recorder
	checks   map[string]api.HealthCheck
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (rt *serveRuntime) addCloser(name string, fn func() error) {
	rt.closers = append(rt.closers, namedCloser{name: name, close: fn})
}

// close releases resources in reverse order of acquisition.
func (rt *serveRuntime) close(logger logging.Logger) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.close(); err != nil {
			logger.Warn("Error closing "+c.name, logging.Err(err))
		}
	}
	rt.closers = nil
}

// buildRuntime connects the configured sinks and wraps them in an
// AsyncRecorder. On error everything opened so far is closed.
func buildRuntime(ctx context.Context, cfg *config.Config, deps *Deps, logger logging.Logger,
	reg prometheus.Registerer, metrics *observability.Metrics, migrate bool) (_ *serveRuntime, err error) {
	rt := &serveRuntime{checks: make(map[string]api.HealthCheck)}
	defer func() {
		if err != nil {
			rt.close(logger)
		}
	}()

	var sinks decisions.Multi
	for _, sink := range cfg.Recorder.Sinks {
		switch sink {
		case config.SinkLog:
			sinks = append(sinks, decisions.NewLogRecorder(logger))

		case config.SinkPostgres:
			pool, err := deps.connect(ctx, cfg)
			if err != nil {
				return nil, err
			}
			rt.addCloser("postgres", func() error { pool.Close(); return nil })

			if migrate {
				result, err := db.RunMigrations(ctx, pool, db.Migrations())
				if err != nil {
					return nil, fmt.Errorf("applying migrations: %w", err)
				}
				if len(result.Applied) > 0 {
					logger.Info("Applied migrations", logging.F("versions", result.Applied))
				}
			}
			if _, err := db.RegisterPoolStats(reg, pool, observability.Namespace, serviceName); err != nil {
				return nil, err
			}
			rt.checks["postgres"] = func(ctx context.Context) error { return db.Check(ctx, pool).Error }
			sinks = append(sinks, decisions.NewPostgresStore(pool))

		case config.SinkRedis:
			client, err := decisions.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return nil, err
			}
			rt.addCloser("redis", client.Close)
			rt.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			sinks = append(sinks, decisions.NewRedisPublisher(client, cfg.Redis.Channel, logger))

		case config.SinkKafka:
			k, err := decisions.NewKafkaRecorder(cfg.Kafka)
			if err != nil {
				return nil, err
			}
			rt.addCloser("kafka", k.Close)
			sinks = append(sinks, k)

		default:
			return nil, fmt.Errorf("unknown recorder sink %q", sink)
		}
	}

	if len(sinks) == 0 {
		return rt, nil
	}

	async := decisions.NewAsyncRecorder(decisions.AsyncConfig{
		Writer:        sinks,
		BufferSize:    cfg.Recorder.BufferSize,
		BatchSize:     cfg.Recorder.BatchSize,
		FlushInterval: cfg.Recorder.FlushInterval,
		OnDrop: func(d decisions.Decision) {
			metrics.DecisionsDropped.Inc()
		},
		OnError: func(err error, n int) {
			metrics.ObserveRecordError("async", n)
			logger.Warn("Failed to write decision batch", logging.Err(err), logging.F("decisions", n))
		},
	})
	rt.addCloser("decision recorder", async.Close)
	rt.recorder = async
	return rt, nil
}
