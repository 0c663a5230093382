package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Scheduler contains the runner pool and loop timing configuration.
type Scheduler struct {
	// Tasks lists the task names to register, one runner per entry.
	Tasks                []string `toml:"tasks"`
	MaxRunners           int      `toml:"max_runners"`
	TimeoutSeconds       int      `toml:"timeout_seconds"`
	Isolation            string   `toml:"isolation"`
	ShutdownGraceSeconds int      `toml:"shutdown_grace_seconds"`
}

// API contains configuration for the HTTP status and metrics listener.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// CommandTask declares a task that runs an external command for each job.
type CommandTask struct {
	Name           string   `toml:"name"`
	TypeID         int      `toml:"type_id"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	Repeat         string   `toml:"repeat"`
	Singleton      bool     `toml:"singleton"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Tasks groups task declarations.
type Tasks struct {
	Command []CommandTask `toml:"command"`
}

// Config encapsulates all configuration values for runqd.
//
// Configuration sections by subsystem:
//   - Paths: state directory (queue database, lock, pid, socket) and logs
//   - Scheduler: configured task types, runner limit, loop timeout, isolation
//   - API: HTTP status and metrics bind address
//   - Logging: log format, level, and retention
//   - Tasks: command tasks declared in configuration
type Config struct {
	Paths     Paths     `toml:"paths"`
	Scheduler Scheduler `toml:"scheduler"`
	API       API       `toml:"api"`
	Logging   Logging   `toml:"logging"`
	Tasks     Tasks     `toml:"tasks"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/runqd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("runqd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the job queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "runqd.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "runqd.lock")
}

// PIDPath returns the daemon pidfile location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "runqd.pid")
}

// Timeout returns the scheduler iteration sleep.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Scheduler.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns how long the loop waits for in-flight workers on stop.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Scheduler.ShutdownGraceSeconds) * time.Second
}

// CommandTask returns the declared command task with the given name.
func (c *Config) CommandTask(name string) (CommandTask, bool) {
	for _, task := range c.Tasks.Command {
		if strings.EqualFold(task.Name, name) {
			return task, true
		}
	}
	return CommandTask{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
