package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"runqd/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		worker bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon or worker logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logs.Path(cfg.Paths.LogDir, worker)
			out := cmd.OutOrStdout()
			emit := func(line string) { fmt.Fprintln(out, line) }

			if !follow {
				tail, _, err := logs.LastLines(path, lines)
				if err != nil {
					return err
				}
				if len(tail) == 0 {
					fmt.Fprintf(out, "No log output at %s\n", path)
					return nil
				}
				for _, line := range tail {
					emit(line)
				}
				return nil
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(signalCtx, path, logs.FollowOptions{Lines: lines}, emit)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().BoolVar(&worker, "worker", false, "Show the worker process log instead of the daemon log")
	return cmd
}
