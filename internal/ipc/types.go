package ipc

import "dispatch/internal/api"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// EnqueueRequest inserts a new job. ID may be empty to have the daemon
// assign one.
type EnqueueRequest struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params"`
}

// EnqueueResponse returns the persisted job.
type EnqueueResponse struct {
	Job Job `json:"job"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queue_db_path"`
	LockPath     string         `json:"lock_path"`
	WorkerActive bool           `json:"worker_active"`
	QueueStats   map[string]int `json:"queue_stats"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Job Job `json:"job"`
}

// QueueStatsRequest fetches per-status job counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports per-status job counts.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    string `json:"schema_version"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalJobs        int    `json:"total_jobs"`
	Error            string `json:"error"`
}
