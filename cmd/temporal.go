package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/workflow"
)

var submitName string

var submitCmd = &cobra.Command{
	Use:   "submit <project-id>",
	Short: "Start a project run on Temporal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("submit"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := workflow.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		sub, err := workflow.NewDispatcher(c, st, cfg.Temporal).Submit(ctx, args[0], submitName)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(sub)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker processing project runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initProcessor(ctx, "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := workflow.Dial(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		w := workflow.NewWorker(c, cfg.Temporal.TaskQueue, workflow.NewActivities(env.Processor), cfg.Pipeline.Concurrency)

		zap.L().Info("starting worker",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.String("namespace", cfg.Temporal.Namespace),
		)
		if err := w.Run(interruptOn(ctx.Done())); err != nil {
			return eris.Wrap(err, "worker run")
		}
		return nil
	},
}

// interruptOn adapts a done channel to the worker's interrupt channel.
func interruptOn(done <-chan struct{}) <-chan interface{} {
	ch := make(chan interface{})
	go func() {
		<-done
		close(ch)
	}()
	return ch
}

func init() {
	submitCmd.Flags().StringVar(&submitName, "name", "", "project display name")
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(workerCmd)
}
