package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"runqd/internal/config"
	"runqd/internal/deps"
	"runqd/internal/logging"
	"runqd/internal/runner"
	"runqd/internal/task"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit [scheduler] tasks and add [[tasks.command]] entries before starting runqd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// newConfigValidateCommand runs the same checks the daemon runs at startup:
// config structure, task catalog, and runner registration.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.NewNop()
			catalog, err := task.NewCatalog(cfg, logger)
			if err != nil {
				return fmt.Errorf("build task catalog: %w", err)
			}
			tasks, err := catalog.Resolve(cfg.Scheduler.Tasks)
			if err != nil {
				return fmt.Errorf("resolve tasks: %w", err)
			}
			if err := runner.NewRegistry(logger).Initialize(tasks, cfg.Scheduler.MaxRunners); err != nil {
				return fmt.Errorf("register runners: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				repeat := "-"
				if interval := task.RepeatInterval(t); interval > 0 {
					repeat = interval.String()
				}
				rows = append(rows, []string{t.Name(), fmt.Sprint(t.TypeID()), repeat, yesNo(task.IsSingleton(t))})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Task", "Type", "Repeat", "Singleton"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			if len(cfg.Tasks.Command) > 0 {
				colorize := shouldColorize(out)
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Commands", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range commandLines(deps.CheckBinaries(deps.ForCommandTasks(cfg.Tasks.Command, cfg.Scheduler.Tasks)), colorize) {
					fmt.Fprintln(out, line)
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func commandLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		switch {
		case s.Available:
			lines = append(lines, renderStatusLine(s.Name, statusOK, "Ready ("+s.Path+")", colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusInfo, s.Detail+" (task not enabled)", colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		}
	}
	return lines
}
