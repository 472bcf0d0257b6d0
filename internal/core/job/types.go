package job

import "time"

// Status is the lifecycle state of a job. Transitions only move forward:
// uploaded -> processing -> completed|failed.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is valid from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one uploaded genome file and its single processing attempt.
type Job struct {
	ID           string     `json:"uuid"`
	Status       Status     `json:"status"`
	OriginalName string     `json:"original_filename"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorDetail  string     `json:"error,omitempty"`

	// Opaque storage handles. InputPath is set at creation, OutputDir is
	// where the engine is expected to write the result.
	InputPath string `json:"-"`
	OutputDir string `json:"-"`
}
