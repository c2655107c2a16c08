package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	task, err := store.GetTask(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, task)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "b", Name: "B"}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "a", Name: "A"}))

	got, err := store.GetTask(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Name)

	got.Name = "changed"
	again, err := store.GetTask(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name, "returned tasks are copies")
}

func TestSchedulerStore_HistoryAndPrune(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:    "t",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Error:     fmt.Sprintf("run %d", i),
		}))
	}
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{TaskID: "other"}))

	history, err := store.GetTaskHistory(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run 4", history[0].Error)
	assert.Equal(t, "run 3", history[1].Error)

	require.NoError(t, store.PruneHistory(ctx, 3))
	history, err = store.GetTaskHistory(ctx, "t", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "run 2", history[2].Error)

	other, err := store.GetTaskHistory(ctx, "other", 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
