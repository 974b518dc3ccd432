package main

import (
	"context"
	"drivetime-accessibility/internal/config"
	"drivetime-accessibility/internal/domain"
	"drivetime-accessibility/internal/render"
	"drivetime-accessibility/internal/services"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the accessibility analysis and write its artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := runAnalysis(ctx, cfg)
		if err != nil {
			return err
		}

		return render.WriteWaffle(os.Stdout, report.Buckets)
	},
}

// runAnalysis runs the pipeline once and writes every artifact to the output dir.
func runAnalysis(ctx context.Context, cfg *config.Config) (*domain.Report, error) {
	env, err := initPipeline(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	report, err := services.Run(ctx, env.deps, env.req)
	if err != nil {
		return nil, err
	}

	paths, err := render.WriteArtifacts(ctx, cfg.Output.Dir, report)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("run_id", report.RunID),
		zap.Strings("artifacts", paths),
		zap.Int("failed", report.Failed),
		zap.Int("unreachable", report.Unreachable),
	}
	if lr := report.Longest; lr != nil {
		fields = append(fields,
			zap.String("longest_area", lr.Area.AreaID),
			zap.Float64("longest_minutes", lr.Area.Minutes),
			zap.String("longest_destination", lr.Destination.Name),
		)
	}
	zap.L().Info("run complete", fields...)

	return report, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
