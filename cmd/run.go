package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runName string

var runCmd = &cobra.Command{
	Use:   "run <project-id>",
	Short: "Process a project in this process",
	Long:  "Starts a new run of the project, builds its partial results, aggregates and stores every scenario, then finalizes indicator bounds.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initProcessor(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Processor.Run(ctx, args[0], runName)
		if err != nil {
			return eris.Wrapf(err, "run %s", args[0])
		}

		zap.L().Info("run complete",
			zap.String("project_id", report.ProjectID),
			zap.Int("rows", report.Diagnostics.Rows),
			zap.Int("skipped", report.Diagnostics.SkippedTotal()),
			zap.Int("failed_chunks", len(report.Diagnostics.FailedChunks)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runName, "name", "", "project display name")
	rootCmd.AddCommand(runCmd)
}
