package indexer

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/korenlab/lexkb/internal/storage"
)

// JobState is the lifecycle of a long-running job.
type JobState string

const (
	JobIdle    JobState = "idle"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobError   JobState = "error"
)

// Status is the polling contract for a job. Progress carries the
// job-specific counters; everything else is shared across jobs.
type Status[P any] struct {
	OK         bool     `json:"ok"`
	State      JobState `json:"state"`
	JobID      string   `json:"job_id,omitempty"`
	UpdatedAt  string   `json:"updated_at"`
	StartedAt  string   `json:"started_at,omitempty"`
	FinishedAt string   `json:"finished_at,omitempty"`
	Message    string   `json:"message,omitempty"`
	ElapsedSec float64  `json:"elapsed_sec,omitempty"`
	EtaSec     *float64 `json:"eta_sec,omitempty"`
	Progress   P        `json:"progress"`
}

// StatusManager persists one job's status file atomically, so a poller
// never observes a partial write.
type StatusManager[P any] struct {
	path    string
	jobID   string
	started time.Time
	current Status[P]
}

// NewStatusManager creates a manager for the given status file path.
func NewStatusManager[P any](path string) *StatusManager[P] {
	return &StatusManager[P]{path: path}
}

func utcISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// LoadStatus reads a status file; a missing file reads as idle and a
// corrupt one as not-ok, never as an error.
func LoadStatus[P any](path string) Status[P] {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status[P]{OK: true, State: JobIdle, UpdatedAt: utcISO()}
	}
	var st Status[P]
	if err := json.Unmarshal(data, &st); err != nil {
		return Status[P]{OK: false, State: "unknown", UpdatedAt: utcISO()}
	}
	return st
}

// Start marks the job running under a fresh job id.
func (m *StatusManager[P]) Start(message string, progress P) error {
	m.jobID = uuid.NewString()
	m.started = time.Now()
	m.current = Status[P]{
		OK:        true,
		State:     JobRunning,
		JobID:     m.jobID,
		StartedAt: utcISO(),
		Message:   message,
		Progress:  progress,
	}
	return m.write()
}

// Update publishes a progress snapshot. etaSec < 0 means unknown.
func (m *StatusManager[P]) Update(message string, progress P, etaSec float64) error {
	m.current.Message = message
	m.current.Progress = progress
	m.current.ElapsedSec = round3(time.Since(m.started).Seconds())
	if etaSec >= 0 {
		eta := round1(etaSec)
		m.current.EtaSec = &eta
	} else {
		m.current.EtaSec = nil
	}
	return m.write()
}

// Complete marks terminal success.
func (m *StatusManager[P]) Complete(message string, progress P) error {
	m.current.OK = true
	m.current.State = JobDone
	m.current.Message = message
	m.current.Progress = progress
	m.current.ElapsedSec = round3(time.Since(m.started).Seconds())
	m.current.EtaSec = nil
	m.current.FinishedAt = utcISO()
	return m.write()
}

// Fail marks terminal failure.
func (m *StatusManager[P]) Fail(message string) error {
	m.current.OK = false
	m.current.State = JobError
	m.current.Message = message
	m.current.EtaSec = nil
	m.current.FinishedAt = utcISO()
	return m.write()
}

// JobID returns the id assigned by Start.
func (m *StatusManager[P]) JobID() string { return m.jobID }

func (m *StatusManager[P]) write() error {
	m.current.UpdatedAt = utcISO()
	return storage.AtomicWriteJSON(m.path, m.current)
}

func round3(v float64) float64 { return float64(int64(v*1000)) / 1000 }
func round1(v float64) float64 { return float64(int64(v*10)) / 10 }
