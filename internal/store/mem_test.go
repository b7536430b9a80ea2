package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/powerctl/internal/model"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	first := model.NewTask(model.ServerTarget{Identifier: "a"}, "Power On")
	second := model.NewTask(model.ServerTarget{Identifier: "b"}, "Power On")

	for _, task := range []*model.Task{first, second} {
		id, err := s.AddTask(ctx, *task)
		require.Nil(t, err)
		assert.Equal(t, task.ID, id)
	}

	_ = second.SetState(model.StateFailed)
	second.Error = "server not found"
	require.Nil(t, s.UpdateTask(ctx, *second))

	got, err := s.TaskByID(ctx, second.ID.String())
	require.Nil(t, err)
	assert.Equal(t, model.StateFailed, got.TaskState)
	assert.Equal(t, "server not found", got.Error)

	all, err := s.Tasks(ctx)
	require.Nil(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	failed, err := s.TasksByState(ctx, model.StateFailed)
	require.Nil(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second.ID, failed[0].ID)

	_, err = s.TasksByState(ctx, model.StateSucceeded)
	assert.ErrorIs(t, err, ErrNoTasksFound)

	require.Nil(t, s.RemoveTask(ctx, first.ID.String()))

	_, err = s.TaskByID(ctx, first.ID.String())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	all, _ = s.Tasks(ctx)
	assert.Len(t, all, 1)

	err = s.UpdateTask(ctx, *first)
	assert.ErrorIs(t, err, ErrTaskUpdate)
}
