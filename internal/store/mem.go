package store

import (
	"context"
	"sync"
	"time"

	sw "github.com/filanov/stateswitch"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/metal-toolbox/powerctl/internal/model"
)

var (
	ErrNoTasksFound = errors.New("no tasks found")
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskUpdate   = errors.New("error in task update")
)

// MemStore is an in-memory task store, its contents last for the process lifetime.
type MemStore struct {
	mu *sync.RWMutex

	// tasks is a map of task IDs to tasks
	tasks map[string]model.Task

	// order holds the task IDs in the order they were added
	order []string
}

func NewMemStore() *MemStore {
	return &MemStore{tasks: map[string]model.Task{}, mu: &sync.RWMutex{}}
}

func (c *MemStore) AddTask(_ context.Context, task model.Task) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	if _, exists := c.tasks[task.ID.String()]; !exists {
		c.order = append(c.order, task.ID.String())
	}

	c.tasks[task.ID.String()] = task

	return task.ID, nil
}

func (c *MemStore) UpdateTask(_ context.Context, task model.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tasks[task.ID.String()]; !exists {
		return errors.Wrap(ErrTaskUpdate, "task not found: "+task.ID.String())
	}

	task.UpdatedAt = time.Now()

	c.tasks[task.ID.String()] = task

	return nil
}

func (c *MemStore) Tasks(_ context.Context) ([]model.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tasks := make([]model.Task, 0, len(c.order))
	for _, id := range c.order {
		tasks = append(tasks, c.tasks[id])
	}

	return tasks, nil
}

func (c *MemStore) TasksByState(ctx context.Context, state sw.State) ([]model.Task, error) {
	all, _ := c.Tasks(ctx)

	tasks := []model.Task{}

	for _, t := range all {
		if t.TaskState == state {
			tasks = append(tasks, t)
		}
	}

	if len(tasks) == 0 {
		return tasks, errors.Wrap(ErrNoTasksFound, "with state "+string(state))
	}

	return tasks, nil
}

func (c *MemStore) TaskByID(_ context.Context, id string) (model.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	task, exists := c.tasks[id]
	if !exists {
		return model.Task{}, errors.Wrap(ErrTaskNotFound, id)
	}

	return task, nil
}

func (c *MemStore) RemoveTask(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tasks, id)

	for idx, tid := range c.order {
		if tid == id {
			c.order = append(c.order[:idx], c.order[idx+1:]...)
			break
		}
	}

	return nil
}
