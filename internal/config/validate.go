package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateCommandTasks(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.TimeoutSeconds < 0 {
		return errors.New("scheduler.timeout_seconds must be positive")
	}
	if c.Scheduler.ShutdownGraceSeconds < 0 {
		return errors.New("scheduler.shutdown_grace_seconds must not be negative")
	}
	if c.Scheduler.MaxRunners < 0 {
		return errors.New("scheduler.max_runners must not be negative")
	}
	switch c.Scheduler.Isolation {
	case IsolationProcess, IsolationInline:
	default:
		return fmt.Errorf("scheduler.isolation: unsupported value %q (use %q or %q)", c.Scheduler.Isolation, IsolationProcess, IsolationInline)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "critical":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCommandTasks() error {
	seen := make(map[string]struct{}, len(c.Tasks.Command))
	for i, task := range c.Tasks.Command {
		if task.Name == "" {
			return fmt.Errorf("tasks.command[%d].name must be set", i)
		}
		key := strings.ToLower(task.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("tasks.command: duplicate task name %q", task.Name)
		}
		seen[key] = struct{}{}
		if task.Command == "" {
			return fmt.Errorf("tasks.command %q: command must be set", task.Name)
		}
		if task.TypeID <= 0 {
			return fmt.Errorf("tasks.command %q: type_id must be positive", task.Name)
		}
		if task.TimeoutSeconds < 0 {
			return fmt.Errorf("tasks.command %q: timeout_seconds must not be negative", task.Name)
		}
	}
	return nil
}
