package types

import "time"

// TaskStatus is the externally visible state of a generation task.
type TaskStatus string

const (
	// TaskPending covers both queued and running tasks.
	TaskPending TaskStatus = "pending"
	// TaskCompleted means Script and Validation are populated.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed means Error is populated.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskStage is the finer-grained progress of a pending task.
type TaskStage string

// Stages a task moves through while pending.
const (
	StageQueued      TaskStage = "queued"
	StageChunking    TaskStage = "chunking"
	StageSummarizing TaskStage = "summarizing"
	StageGenerating  TaskStage = "generating"
	StageValidating  TaskStage = "validating"
	StageImproving   TaskStage = "improving"
	StageDone        TaskStage = "done"
)

// ScriptTask is an asynchronous generation job.
type ScriptTask struct {
	ID          string            `json:"task_id"`
	Status      TaskStatus        `json:"status"`
	Stage       TaskStage         `json:"stage,omitempty"`
	Request     GenerateRequest   `json:"-"`
	Script      string            `json:"script,omitempty"`
	Validation  *ValidationReport `json:"validation,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// StatusResponse is the body of GET /api/script-status/{id}.
type StatusResponse struct {
	TaskID     string            `json:"task_id"`
	Status     TaskStatus        `json:"status"`
	Stage      TaskStage         `json:"stage,omitempty"`
	Script     string            `json:"script,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// StatusOf converts a task into its API representation.
func StatusOf(task *ScriptTask) StatusResponse {
	return StatusResponse{
		TaskID:     task.ID,
		Status:     task.Status,
		Stage:      task.Stage,
		Script:     task.Script,
		Validation: task.Validation,
		Error:      task.Error,
	}
}
