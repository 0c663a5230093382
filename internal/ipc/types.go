package ipc

import "runqd/internal/api"

// serviceName is the RPC receiver name registered by the server.
const serviceName = "Runqd"

// StartRequest triggers scheduler startup.
type StartRequest struct{}

// StartResponse indicates whether the scheduler was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the scheduler and shuts the daemon process down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Job mirrors the HTTP API job DTO.
type Job = api.Job

// Runner mirrors the HTTP API runner DTO.
type Runner = api.Runner

// QueueStats mirrors the HTTP API queue counts.
type QueueStats = api.QueueStats

// StatusResponse represents combined daemon and scheduler status.
type StatusResponse struct {
	Running     bool       `json:"running"`
	PID         int        `json:"pid"`
	State       string     `json:"state"`
	Isolation   string     `json:"isolation"`
	Passes      int64      `json:"passes"`
	Runners     []Runner   `json:"runners"`
	Queue       QueueStats `json:"queue"`
	QueueError  string     `json:"queue_error,omitempty"`
	LockPath    string     `json:"lock_path"`
	QueueDBPath string     `json:"queue_db_path"`
	LogPath     string     `json:"log_path"`
	APIAddress  string     `json:"api_address,omitempty"`
}

// QueueAddRequest enqueues a job. A zero ScheduledAtMillis means now.
type QueueAddRequest struct {
	TaskType          int    `json:"task_type"`
	Subtask           string `json:"subtask"`
	Focus             string `json:"focus"`
	ScheduledAtMillis int64  `json:"scheduled_at_ms"`
}

// QueueAddResponse contains the created job.
type QueueAddResponse struct {
	Job Job `json:"job"`
}

// QueueListRequest filters queue listing.
type QueueListRequest struct {
	TaskType int  `json:"task_type"`
	DueOnly  bool `json:"due_only"`
	Limit    int  `json:"limit"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Job Job `json:"job"`
}

// QueueRemoveRequest deletes specific jobs.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports removed and skipped jobs.
type QueueRemoveResponse struct {
	Removed int64   `json:"removed"`
	Busy    []int64 `json:"busy,omitempty"`
}

// QueueClearRequest removes all idle jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// DatabaseHealthRequest fetches database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse contains database diagnostics.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    int    `json:"schema_version"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalJobs        int    `json:"total_jobs"`
	Error            string `json:"error,omitempty"`
}
