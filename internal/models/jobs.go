package models

import "time"

// Job status constants
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Pipeline step labels, set before each stage starts
const (
	StepQueued       = "queued"
	StepNews         = "news"
	StepFundamentals = "fundamentals"
	StepPeers        = "peers"
	StepSignal       = "signal"
	StepDone         = "done"
)

// Progress checkpoints at stage boundaries
const (
	ProgressStarted      = 10
	ProgressNews         = 30
	ProgressFundamentals = 60
	ProgressPeers        = 80
	ProgressSignal       = 95
	ProgressDone         = 100
)

// Report types accepted on submission
const (
	ReportTypeAnnual    = "annual"
	ReportTypeQuarterly = "quarterly"
)

// AnalysisJob tracks one analysis pipeline run. State transitions:
// queued -> running -> completed | failed | cancelled. Cancellation is
// cooperative and observed at stage boundaries only.
type AnalysisJob struct {
	ID          string          `json:"job_id"`
	CompanyName string          `json:"company_name"`
	ReportType  string          `json:"report_type"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"` // 0..100, monotonically increasing
	CurrentStep string          `json:"current_step"`
	Error       string          `json:"error,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *AnalysisJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
