package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"runqd/internal/worker"
)

// newWorkerCommand is the entry point of a re-executed worker child. Any
// returned error makes the process exit with status 1.
func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var assignment worker.Assignment
	cmd := &cobra.Command{
		Use:          "worker",
		Short:        "Run a single job (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(assignment.TaskName) == "" {
				return fmt.Errorf("--task is required")
			}
			if assignment.JobID <= 0 {
				return fmt.Errorf("--job must be a positive job id")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// Termination signals keep their default action so the daemon
			// sees the worker as killed and leaves its job queued.
			return worker.RunProcess(cmd.Context(), cfg, assignment)
		},
	}
	cmd.Flags().StringVar(&assignment.RunnerID, "runner", "", "Runner slot id")
	cmd.Flags().StringVar(&assignment.TaskName, "task", "", "Task name")
	cmd.Flags().IntVar(&assignment.JobType, "type", 0, "Task type id")
	cmd.Flags().Int64Var(&assignment.JobID, "job", 0, "Job id")
	cmd.Flags().DurationVar(&assignment.Repeat, "repeat", 0, "Repeat interval for recurring tasks")
	return cmd
}
