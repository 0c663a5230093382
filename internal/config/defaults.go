package config

const (
	defaultStateDir             = "~/.local/share/runqd"
	defaultLogDir               = "~/.local/share/runqd/logs"
	defaultMaxRunners           = 4
	defaultTimeoutSeconds       = 2
	defaultShutdownGraceSeconds = 10
	defaultIsolation            = IsolationProcess
	defaultAPIBind              = "127.0.0.1:7490"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Isolation modes for task execution.
const (
	IsolationProcess = "process"
	IsolationInline  = "inline"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Scheduler: Scheduler{
			MaxRunners:           defaultMaxRunners,
			TimeoutSeconds:       defaultTimeoutSeconds,
			Isolation:            defaultIsolation,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
