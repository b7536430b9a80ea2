package store

import (
	"context"

	sw "github.com/filanov/stateswitch"
	"github.com/google/uuid"

	"github.com/metal-toolbox/powerctl/internal/model"
)

// Storage records the tasks of a run.
type Storage interface {
	// Tasks returns all tasks in the order they were added.
	Tasks(ctx context.Context) ([]model.Task, error)
	TasksByState(ctx context.Context, state sw.State) ([]model.Task, error)
	TaskByID(ctx context.Context, id string) (model.Task, error)
	AddTask(ctx context.Context, task model.Task) (uuid.UUID, error)
	UpdateTask(ctx context.Context, task model.Task) error
	RemoveTask(ctx context.Context, id string) error
}
