package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Queue names, priority ordered high > default > low.
const (
	QueueHigh    = "high"    // manual, user-initiated syncs
	QueueDefault = "default" // scheduled syncs
	QueueLow     = "low"     // enrichment and merge jobs
)

// Job function names dispatched by the sync worker.
const (
	JobSyncLibrary      = "sync_library"
	JobSyncAchievements = "sync_achievements"
)

// Job is the envelope stored in the queue. Args stays raw JSON so the queue
// does not depend on the argument shapes of individual job functions.
type Job struct {
	ID            uuid.UUID       `json:"id"`
	Queue         string          `json:"queue"`
	Function      string          `json:"function"`
	Args          json.RawMessage `json:"args"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	NotBefore     *time.Time      `json:"not_before,omitempty"`
	TimeoutMs     int64           `json:"timeout_ms"`
	MaxAttempts   int             `json:"max_attempts"`
	Attempt       int             `json:"attempt"`
	ResultTTLSec  int             `json:"result_ttl_sec"`
	FailureTTLSec int             `json:"failure_ttl_sec"`
}

// Timeout returns the per-job execution budget.
func (j *Job) Timeout() time.Duration {
	return time.Duration(j.TimeoutMs) * time.Millisecond
}

// JobResult is retained after execution for observability.
type JobResult struct {
	JobID      uuid.UUID       `json:"job_id"`
	Queue      string          `json:"queue"`
	Function   string          `json:"function"`
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Attempt    int             `json:"attempt"`
	FinishedAt time.Time       `json:"finished_at"`
	DurationMs int64           `json:"duration_ms"`
}

// SyncJobArgs are the arguments of a sync_library job.
type SyncJobArgs struct {
	LibraryID uuid.UUID `json:"library_id"`
	Force     bool      `json:"force"`
	SyncType  SyncType  `json:"sync_type"`
}

// AchievementJobArgs are the arguments of a sync_achievements job.
type AchievementJobArgs struct {
	LibraryID uuid.UUID `json:"library_id"`
}
