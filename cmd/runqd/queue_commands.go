package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"runqd/internal/api"
	"runqd/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		taskType int
		subtask  string
		focus    string
		at       string
		in       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a job for a task type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskType <= 0 {
				return fmt.Errorf("--type must be a positive task type id")
			}
			scheduled, err := resolveSchedule(at, in, time.Now())
			if err != nil {
				return err
			}
			job := queue.NewJob{
				TaskType:    taskType,
				Subtask:     strings.TrimSpace(subtask),
				Focus:       strings.TrimSpace(focus),
				ScheduledAt: scheduled,
			}
			return ctx.withQueue(func(q queueAPI) error {
				created, err := q.Add(cmd.Context(), job)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d (type %d, scheduled %s)\n",
					created.ID, created.TaskType, formatJobTime(created.ScheduledAt))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&taskType, "type", 0, "Task type id of the runner that should pick the job up")
	cmd.Flags().StringVar(&subtask, "subtask", "", "Opaque subtask passed to the task")
	cmd.Flags().StringVar(&focus, "focus", "", "Opaque focus passed to the task")
	cmd.Flags().StringVar(&at, "at", "", "Schedule the job at an RFC3339 time")
	cmd.Flags().DurationVar(&in, "in", 0, "Schedule the job after a delay (e.g. 10m)")
	cmd.MarkFlagsMutuallyExclusive("at", "in")
	return cmd
}

// resolveSchedule returns the zero time, meaning "now", when neither flag is set.
func resolveSchedule(at string, in time.Duration, now time.Time) (time.Time, error) {
	if value := strings.TrimSpace(at); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at value %q: expected RFC3339", value)
		}
		return parsed.UTC(), nil
	}
	if in < 0 {
		return time.Time{}, fmt.Errorf("--in must not be negative")
	}
	if in > 0 {
		return now.Add(in).UTC(), nil
	}
	return time.Time{}, nil
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		dueOnly  bool
		taskType int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				jobs, err := q.List(cmd.Context(), queue.Filter{
					TaskType: taskType,
					DueOnly:  dueOnly,
					Limit:    limit,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Type", "Subtask", "Focus", "Scheduled", "Due"},
					buildJobRows(jobs),
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dueOnly, "due", false, "Only show jobs that are due now")
	cmd.Flags().IntVar(&taskType, "type", 0, "Only show jobs of this task type")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs to show")
	return cmd
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			strconv.Itoa(job.TaskType),
			dashIfEmpty(job.Subtask),
			dashIfEmpty(job.Focus),
			formatJobTime(job.ScheduledAt),
			yesNo(job.Due),
		})
	}
	return rows
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				job, err := q.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", ids[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %d\n", job.ID)
				fmt.Fprintf(out, "Type:      %d\n", job.TaskType)
				fmt.Fprintf(out, "Subtask:   %s\n", dashIfEmpty(job.Subtask))
				fmt.Fprintf(out, "Focus:     %s\n", dashIfEmpty(job.Focus))
				fmt.Fprintf(out, "Scheduled: %s\n", formatJobTime(job.ScheduledAt))
				fmt.Fprintf(out, "Due:       %s\n", yesNo(job.Due))
				fmt.Fprintf(out, "Created:   %s\n", formatJobTime(job.CreatedAt))
				fmt.Fprintf(out, "Updated:   %s\n", formatJobTime(job.UpdatedAt))
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove jobs by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				removed, busy, err := q.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d job(s)\n", removed)
				if len(busy) > 0 {
					fmt.Fprintf(out, "Skipped running job(s): %s\n", joinIDs(busy))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every job that is not currently running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				removed, err := q.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d job(s)\n", removed)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil && health.Error == "" {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Queue Database", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Path", statusInfo, health.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Exists", boolKind(health.DatabaseExists), yesNo(health.DatabaseExists), colorize))
				fmt.Fprintln(out, renderStatusLine("Readable", boolKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize))
				fmt.Fprintln(out, renderStatusLine("Schema version", statusInfo, strconv.Itoa(health.SchemaVersion), colorize))
				fmt.Fprintln(out, renderStatusLine("Integrity check", boolKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize))
				fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize))
				if health.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				return nil
			})
		},
	}
}

func parseJobIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

func formatJobTime(value string) string {
	parsed := api.ParseTime(value)
	if parsed.IsZero() {
		return dashIfEmpty(value)
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
