package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/config"
	"github.com/vedangtiwari01-dev/vs-demo/internal/infrastructure/telemetry"
	"github.com/vedangtiwari01-dev/vs-demo/internal/metrics"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
)

type rootOptions struct {
	configPath string
	logLevel   string
	compact    bool
}

// app holds what every command needs once configuration is loaded.
type app struct {
	opts *rootOptions
	out  io.Writer

	config   *config.Config
	logger   *zap.Logger
	provider *telemetry.Provider
	registry *metrics.Registry
	runStats *runMetrics

	newRegistry func(metric.MeterProvider, string) (*metrics.Registry, error)
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	a := &app{opts: opts, out: out, newRegistry: metrics.NewRegistry}

	cmd := &cobra.Command{
		Use:   "auditor",
		Short: "Detect and analyze compliance deviations in loan-processing workflows",
		Long: `auditor compares workflow event logs against compliance rules, cleans and
summarizes the resulting deviations, and selects a representative sample for
downstream pattern analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	flags.BoolVar(&opts.compact, "compact", false, "write single-line JSON instead of indented output")

	cmd.AddCommand(
		newDetectCommand(a),
		newAnalyzeCommand(a),
		newVersionCommand(out),
	)
	return cmd
}

// run wraps a command body with configuration loading, telemetry setup and
// teardown. Teardown also runs when setup fails part way, and its errors are
// joined onto the command's error.
func (a *app) run(body func(ctx context.Context, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		defer func() {
			err = stderrors.Join(err, a.stop())
		}()
		if err := a.start(ctx); err != nil {
			if a.runStats != nil {
				a.runStats.observeFailure(cmd.Name())
			}
			return err
		}
		return body(ctx, cmd)
	}
}

func (a *app) start(ctx context.Context) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}
	a.config = cfg
	a.runStats = newRunMetrics()

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	a.logger = logger.Named("auditor")

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetryConfig(cfg))
	if err != nil {
		return errors.Wrap(err, "initializing telemetry")
	}
	a.provider = provider

	registry, err := a.newRegistry(provider.MeterProvider, "auditor")
	if err != nil {
		return errors.Wrap(err, "creating metrics registry")
	}
	a.registry = registry

	a.logger.Debug("Configuration loaded",
		zap.String("config_file", a.opts.configPath),
		zap.String("environment", cfg.Environment),
		zap.Bool("telemetry", cfg.Telemetry.Enabled))
	return nil
}

func (a *app) stop() error {
	var errs []error
	if a.config != nil && a.config.Metrics.TextfilePath != "" && a.runStats != nil {
		path := a.config.Metrics.TextfilePath
		if err := a.runStats.writeTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics textfile: %w", err))
		}
	}
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return stderrors.Join(errs...)
}

func (a *app) newPipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(a.logger, pipelineConfig(a.config), a.registry)
}

func (a *app) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	if !a.opts.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
