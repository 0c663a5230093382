package testsupport

import (
	"path/filepath"
	"testing"

	"runqd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Scheduler.Isolation = config.IsolationInline
	cfgVal.Scheduler.TimeoutSeconds = 1
	cfgVal.Scheduler.ShutdownGraceSeconds = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTasks sets the configured task names.
func WithTasks(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.Tasks = append([]string(nil), names...)
	}
}

// WithMaxRunners overrides the runner limit.
func WithMaxRunners(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.MaxRunners = n
	}
}

// WithCommandTask declares a command task on the test config.
func WithCommandTask(task config.CommandTask) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tasks.Command = append(b.cfg.Tasks.Command, task)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
