package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Runner state labels.
const (
	RunnerIdle    = "idle"
	RunnerRunning = "running"
)

// Job describes a queued job in a transport-friendly format.
type Job struct {
	ID          int64  `json:"id"`
	TaskType    int    `json:"taskType"`
	Subtask     string `json:"subtask,omitempty"`
	Focus       string `json:"focus,omitempty"`
	ScheduledAt string `json:"scheduledAt"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	Due         bool   `json:"due"`
}

// Runner describes one runner slot.
type Runner struct {
	ID        string `json:"id"`
	Task      string `json:"task"`
	JobType   int    `json:"jobType"`
	State     string `json:"state"`
	PID       int    `json:"pid,omitempty"`
	JobID     int64  `json:"jobId,omitempty"`
	Repeat    string `json:"repeat,omitempty"`
	Singleton bool   `json:"singleton"`
	StartedAt string `json:"startedAt,omitempty"`
}

// TypeStats counts jobs of one task type.
type TypeStats struct {
	TaskType int `json:"taskType"`
	Total    int `json:"total"`
	Due      int `json:"due"`
	Deferred int `json:"deferred"`
}

// QueueStats summarizes queue contents.
type QueueStats struct {
	Total    int         `json:"total"`
	Due      int         `json:"due"`
	Deferred int         `json:"deferred"`
	ByType   []TypeStats `json:"byType"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	State        string     `json:"state"`
	Isolation    string     `json:"isolation"`
	Passes       int64      `json:"passes"`
	QueueDBPath  string     `json:"queueDbPath"`
	LockFilePath string     `json:"lockFilePath"`
	LogPath      string     `json:"logPath,omitempty"`
	Runners      []Runner   `json:"runners"`
	Queue        QueueStats `json:"queue"`
}

// QueueListResponse wraps a collection of jobs.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// RunnersResponse wraps the runner table.
type RunnersResponse struct {
	Runners []Runner `json:"runners"`
}

// HealthResponse reports liveness and queue database diagnostics.
type HealthResponse struct {
	Status         string `json:"status"`
	SchedulerState string `json:"schedulerState"`
	SchemaVersion  int    `json:"schemaVersion"`
	IntegrityCheck bool   `json:"integrityCheck"`
	TotalJobs      int    `json:"totalJobs"`
	Error          string `json:"error,omitempty"`
}
