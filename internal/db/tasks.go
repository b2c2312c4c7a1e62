package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/script-generator/internal/jobs"
	"github.com/jonathan/script-generator/internal/types"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// TaskStore implements jobs.Store on top of the script_tasks table.
type TaskStore struct {
	db *DB
}

var _ jobs.Store = (*TaskStore)(nil)

// NewTaskStore returns a store backed by db.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// taskRow mirrors a script_tasks row.
type taskRow struct {
	ID          uuid.UUID
	Status      string
	Stage       string
	Request     []byte
	Script      string
	Validation  []byte
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func rowFromTask(task *types.ScriptTask) (*taskRow, error) {
	id, err := uuid.Parse(task.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", task.ID, err)
	}
	request, err := json.Marshal(task.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var validation []byte
	if task.Validation != nil {
		validation, err = json.Marshal(task.Validation)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal validation: %w", err)
		}
	}
	return &taskRow{
		ID:          id,
		Status:      string(task.Status),
		Stage:       string(task.Stage),
		Request:     request,
		Script:      task.Script,
		Validation:  validation,
		Error:       task.Error,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		CompletedAt: task.CompletedAt,
	}, nil
}

func (r *taskRow) toTask() (*types.ScriptTask, error) {
	task := &types.ScriptTask{
		ID:          r.ID.String(),
		Status:      types.TaskStatus(r.Status),
		Stage:       types.TaskStage(r.Stage),
		Script:      r.Script,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CompletedAt: r.CompletedAt,
	}
	if len(r.Request) > 0 {
		if err := json.Unmarshal(r.Request, &task.Request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}
	}
	if len(r.Validation) > 0 {
		task.Validation = &types.ValidationReport{}
		if err := json.Unmarshal(r.Validation, task.Validation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation: %w", err)
		}
	}
	return task, nil
}

// Create inserts a new task.
func (s *TaskStore) Create(ctx context.Context, task *types.ScriptTask) error {
	row, err := rowFromTask(task)
	if err != nil {
		return err
	}
	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO script_tasks
		   (id, status, stage, request, script, validation, error, created_at, updated_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.Status, row.Stage, row.Request, row.Script, row.Validation, row.Error,
		row.CreatedAt, row.UpdatedAt, row.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return jobs.ErrTaskExists
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Get loads a task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (*types.ScriptTask, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, jobs.ErrTaskNotFound
	}

	var row taskRow
	err = s.db.pool.QueryRow(ctx,
		`SELECT id, status, stage, request, script, validation, error, created_at, updated_at, completed_at
		 FROM script_tasks WHERE id = $1`,
		taskID,
	).Scan(&row.ID, &row.Status, &row.Stage, &row.Request, &row.Script, &row.Validation,
		&row.Error, &row.CreatedAt, &row.UpdatedAt, &row.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return row.toTask()
}

// Update overwrites a pending task. Terminal rows are left untouched.
func (s *TaskStore) Update(ctx context.Context, task *types.ScriptTask) error {
	row, err := rowFromTask(task)
	if err != nil {
		return err
	}
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE script_tasks
		 SET status = $2, stage = $3, script = $4, validation = $5, error = $6,
		     updated_at = $7, completed_at = $8
		 WHERE id = $1 AND status = $9`,
		row.ID, row.Status, row.Stage, row.Script, row.Validation, row.Error,
		row.UpdatedAt, row.CompletedAt, string(types.TaskPending),
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM script_tasks WHERE id = $1)`, row.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task %s: %w", task.ID, err)
	}
	if !exists {
		return jobs.ErrTaskNotFound
	}
	return jobs.ErrTaskFinalized
}

// DeleteFinishedBefore removes completed and failed tasks last updated before cutoff.
func (s *TaskStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.db.pool.Exec(ctx,
		`DELETE FROM script_tasks WHERE status IN ($1, $2) AND updated_at < $3`,
		string(types.TaskCompleted), string(types.TaskFailed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MsgInterrupted is recorded on tasks that were still pending when the
// process that owned them went away.
const MsgInterrupted = "server restarted before the task finished"

// FailPending marks every pending task as failed. Tasks run in-process, so a
// pending row found at startup belongs to a server that died without
// finishing it and would otherwise be polled forever.
func (s *TaskStore) FailPending(ctx context.Context) (int, error) {
	tag, err := s.db.pool.Exec(ctx,
		`UPDATE script_tasks
		 SET status = $1, error = $2, updated_at = NOW(), completed_at = NOW()
		 WHERE status = $3`,
		string(types.TaskFailed), MsgInterrupted, string(types.TaskPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to recover pending tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the underlying pool.
func (s *TaskStore) Close() error {
	s.db.Close()
	return nil
}
