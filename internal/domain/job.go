package domain

import "time"

// JobStatus represents the pipeline state of a processing job.
// The happy path is pending -> parsing -> normalizing -> validating ->
// generating -> completed, with pm_review holding between validating and
// generating when the quality gate flags candidates for human review.
type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusParsing     JobStatus = "parsing"
	JobStatusNormalizing JobStatus = "normalizing"
	JobStatusValidating  JobStatus = "validating"
	JobStatusPMReview    JobStatus = "pm_review"
	JobStatusGenerating  JobStatus = "generating"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// String returns the string representation of the status.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether a transition from s to target is legal.
// failed is reachable from any non-terminal state; pm_review only leaves
// through generating.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == JobStatusFailed {
		return true
	}
	switch s {
	case JobStatusPending:
		return target == JobStatusParsing
	case JobStatusParsing:
		return target == JobStatusNormalizing
	case JobStatusNormalizing:
		return target == JobStatusValidating
	case JobStatusValidating:
		return target == JobStatusGenerating || target == JobStatusPMReview
	case JobStatusPMReview:
		return target == JobStatusGenerating
	case JobStatusGenerating:
		return target == JobStatusCompleted
	default:
		return false
	}
}

// PipelineStages lists the working stages in execution order. pm_review is a
// hold, not a working stage, so it is excluded from progress accounting.
var PipelineStages = []JobStatus{
	JobStatusParsing,
	JobStatusNormalizing,
	JobStatusValidating,
	JobStatusGenerating,
}

// Job represents one end-to-end PRD generation request.
type Job struct {
	ID              string      `gorm:"type:text;primaryKey" json:"id"`
	Status          JobStatus   `gorm:"type:text;index:idx_jobs_status;default:pending" json:"status"`
	CurrentStage    JobStatus   `gorm:"type:text" json:"current_stage"`
	InputRefs       StringArray `gorm:"type:text" json:"input_refs"`
	InputFilenames  StringArray `gorm:"type:text" json:"input_filenames"`
	PRDID           *string     `gorm:"type:text" json:"prd_id,omitempty"`
	Error           string      `json:"error,omitempty"`
	CancelRequested bool        `gorm:"default:false" json:"cancel_requested"`
	CompletedStages int         `gorm:"default:0" json:"completed_stages"`
	StageResults    JSONMap     `gorm:"type:text" json:"stage_results"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// Progress returns the completed fraction of the pipeline in [0,1].
func (j *Job) Progress() float64 {
	return float64(j.CompletedStages) / float64(len(PipelineStages))
}

// RecordStageResult stores a per-stage outcome on the job record.
func (j *Job) RecordStageResult(stage JobStatus, durationMs int64, detail map[string]interface{}) {
	if j.StageResults == nil {
		j.StageResults = JSONMap{}
	}
	result := map[string]interface{}{
		"status":      "success",
		"duration_ms": durationMs,
	}
	for k, v := range detail {
		result[k] = v
	}
	j.StageResults[string(stage)] = result
	j.CompletedStages++
}

// JobSnapshot is the externally visible view of a job's progress.
type JobSnapshot struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	CurrentStage    JobStatus `json:"current_stage"`
	Progress        float64   `json:"progress"`
	Documents       []string  `json:"documents"`
	PRDID           *string   `json:"prd_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	PendingReviews  int       `json:"pending_reviews"`
	ResolvedReviews int       `json:"resolved_reviews"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
