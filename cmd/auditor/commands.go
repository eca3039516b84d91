package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/errors"
	"github.com/vedangtiwari01-dev/vs-demo/internal/domain/workflow"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/detection"
	"github.com/vedangtiwari01-dev/vs-demo/internal/service/pipeline"
)

type inputFlags struct {
	events     string
	rules      string
	deviations string
}

// DetectOutput is written by the detect command
type DetectOutput struct {
	Detection  *detection.Result    `json:"detection"`
	Rejections []workflow.Rejection `json:"rejections,omitempty"`
}

func newDetectCommand(a *app) *cobra.Command {
	in := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Evaluate workflow events against compliance rules",
		Example: `  auditor detect --events events.json --rules rules.yaml
  cat events.json | auditor detect --events - --rules rules.yaml`,
	}
	cmd.RunE = a.run(func(ctx context.Context, cmd *cobra.Command) error {
		return a.detect(ctx, cmd.InOrStdin(), in)
	})

	cmd.Flags().StringVar(&in.events, "events", "", "workflow events file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&in.rules, "rules", "", "compliance rules file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("events")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func (a *app) detect(ctx context.Context, stdin io.Reader, in *inputFlags) error {
	start := time.Now()
	events, rules, rejections, err := loadWorkflow(stdin, in.events, in.rules)
	if err != nil {
		return err
	}

	detector := detection.NewDetector(a.logger, pipelineConfig(a.config).Detection)
	res, err := detector.Detect(ctx, events, rules)
	if err != nil {
		a.runStats.observeFailure("detect")
		return fmt.Errorf("detection: %w", err)
	}
	a.registry.RecordDetection(ctx, res.CasesEvaluated, len(res.Failures), len(res.Deviations))
	a.runStats.observeDetection(res, len(rejections), time.Since(start))

	a.logger.Info("Detection finished",
		zap.Int("events", len(events)),
		zap.Int("rules", len(rules)),
		zap.Int("rejected_records", len(rejections)),
		zap.Int("cases", res.CasesEvaluated),
		zap.Int("deviations", len(res.Deviations)))

	return a.writeJSON(DetectOutput{Detection: res, Rejections: rejections})
}

func newAnalyzeCommand(a *app) *cobra.Command {
	in := &inputFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Clean, summarize and sample deviations for pattern analysis",
		Long: `analyze runs the full pipeline. Input is either a deviation list produced
elsewhere (--deviations) or workflow events and rules (--events and --rules),
in which case detection runs first.`,
		Example: `  auditor analyze --deviations deviations.json
  auditor analyze --events events.yaml --rules rules.yaml --compact`,
	}
	cmd.RunE = a.run(func(ctx context.Context, cmd *cobra.Command) error {
		return a.analyze(ctx, cmd.InOrStdin(), in)
	})

	cmd.Flags().StringVar(&in.deviations, "deviations", "", "deviations file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&in.events, "events", "", "workflow events file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&in.rules, "rules", "", "compliance rules file (JSON or YAML)")
	cmd.MarkFlagsMutuallyExclusive("deviations", "events")
	cmd.MarkFlagsMutuallyExclusive("deviations", "rules")
	cmd.MarkFlagsRequiredTogether("events", "rules")
	cmd.MarkFlagsOneRequired("deviations", "events")
	return cmd
}

func (a *app) analyze(ctx context.Context, stdin io.Reader, in *inputFlags) error {
	start := time.Now()
	p, err := a.newPipeline()
	if err != nil {
		return err
	}

	res, err := a.runPipeline(ctx, p, stdin, in)
	if err != nil {
		a.runStats.observeFailure("analyze")
		if errors.IsType(err, errors.ErrorTypeConfiguration) {
			return err
		}
		return fmt.Errorf("analysis: %w", err)
	}

	a.runStats.observeAnalysis(res, time.Since(start))
	return a.writeJSON(res.Payload)
}

func (a *app) runPipeline(ctx context.Context, p *pipeline.Pipeline, stdin io.Reader, in *inputFlags) (*pipeline.Result, error) {
	if in.deviations != "" {
		devs, err := loadDeviations(stdin, in.deviations)
		if err != nil {
			return nil, err
		}
		return p.Run(ctx, devs, 0)
	}

	events, rules, rejections, err := loadWorkflow(stdin, in.events, in.rules)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, events, rules, rejections)
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the auditor version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(out, "auditor %s\n", version)
		},
	}
}
