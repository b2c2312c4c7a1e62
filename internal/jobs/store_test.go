package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/jonathan/script-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	task := &types.ScriptTask{ID: "t1", Status: types.TaskPending, Stage: types.StageQueued}
	require.NoError(t, store.Create(ctx, task))
	assert.ErrorIs(t, store.Create(ctx, task), ErrTaskExists)

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.StageQueued, got.Stage)

	got.Stage = types.StageGenerating
	stored, _ := store.Get(ctx, "t1")
	assert.Equal(t, types.StageQueued, stored.Stage, "Get returns a copy")

	require.NoError(t, store.Update(ctx, got))
	stored, _ = store.Get(ctx, "t1")
	assert.Equal(t, types.StageGenerating, stored.Stage)
}

func TestMemoryStore_Missing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, store.Update(ctx, &types.ScriptTask{ID: "nope"}), ErrTaskNotFound)
}

func TestMemoryStore_TerminalTasksAreFrozen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &types.ScriptTask{ID: "t1", Status: types.TaskPending}))
	require.NoError(t, store.Update(ctx, &types.ScriptTask{ID: "t1", Status: types.TaskCompleted, Script: "done"}))

	err := store.Update(ctx, &types.ScriptTask{ID: "t1", Status: types.TaskFailed, Error: "late"})
	assert.ErrorIs(t, err, ErrTaskFinalized)

	got, _ := store.Get(ctx, "t1")
	assert.Equal(t, types.TaskCompleted, got.Status)
	assert.Equal(t, "done", got.Script)
}

func TestMemoryStore_DeleteFinishedBefore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()

	require.NoError(t, store.Create(ctx, &types.ScriptTask{ID: "old-done", Status: types.TaskCompleted, UpdatedAt: old}))
	require.NoError(t, store.Create(ctx, &types.ScriptTask{ID: "old-pending", Status: types.TaskPending, UpdatedAt: old}))
	require.NoError(t, store.Create(ctx, &types.ScriptTask{ID: "new-failed", Status: types.TaskFailed, UpdatedAt: recent}))

	n, err := store.DeleteFinishedBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, store.Len())

	_, err = store.Get(ctx, "old-done")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
