package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeTasks()
	c.normalizeLogging()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	tasks := make([]string, 0, len(c.Scheduler.Tasks))
	for _, name := range c.Scheduler.Tasks {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		tasks = append(tasks, trimmed)
	}
	c.Scheduler.Tasks = tasks

	// An unset timeout falls back to the default; negative values are left for Validate.
	if c.Scheduler.TimeoutSeconds == 0 {
		c.Scheduler.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Scheduler.ShutdownGraceSeconds == 0 {
		c.Scheduler.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
	c.Scheduler.Isolation = strings.ToLower(strings.TrimSpace(c.Scheduler.Isolation))
	if c.Scheduler.Isolation == "" {
		c.Scheduler.Isolation = defaultIsolation
	}
}

func (c *Config) normalizeTasks() {
	for i := range c.Tasks.Command {
		task := &c.Tasks.Command[i]
		task.Name = strings.TrimSpace(task.Name)
		task.Command = strings.TrimSpace(task.Command)
		task.Repeat = strings.TrimSpace(task.Repeat)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
