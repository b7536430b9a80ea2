package model

import (
	"encoding/json"
	"time"

	sw "github.com/filanov/stateswitch"
	"github.com/google/uuid"
)

const (
	// task states
	//
	// states the task state machine transitions through
	StatePending   sw.State = "pending"
	StateActive    sw.State = "active"
	StateSucceeded sw.State = "succeeded"
	StateFailed    sw.State = "failed"

	TaskVersion = "0.1"
)

// TaskStates returns the states a task can be in.
func TaskStates() []sw.State {
	return []sw.State{StatePending, StateActive, StateSucceeded, StateFailed}
}

// Task is the unit of work for a single ServerTarget within a run.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type Task struct {
	// StructVersion indicates the Task object version.
	StructVersion string `json:"task_version"`

	// Task unique identifier.
	ID uuid.UUID `json:"id"`

	// Target is the server this task changes the power state of.
	Target ServerTarget `json:"target"`

	// PowerState is the power state name as requested.
	PowerState string `json:"power_state"`

	// BackendValue is the AdminPowerState value submitted to Intersight.
	BackendValue string `json:"backend_value,omitempty"`

	// Server is the reference to the resolved compute.Blade or compute.RackUnit object.
	Server *ObjectReference `json:"server,omitempty"`

	// ServerName is the name of the resolved server, for reporting.
	ServerName string `json:"server_name,omitempty"`

	// SettingsMoid identifies the compute.ServerSettings object the power state is written to.
	SettingsMoid string `json:"settings_moid,omitempty"`

	// TaskState is the state of the task.
	TaskState sw.State `json:"state"`

	// Status holds informational data on the state.
	Status StatusRecord `json:"status"`

	// Error is set when the task failed.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewTask returns a pending task for the given target and power state.
func NewTask(target ServerTarget, powerState string) *Task {
	return &Task{
		StructVersion: TaskVersion,
		ID:            uuid.New(),
		Target:        target.WithDefaults(),
		PowerState:    powerState,
		TaskState:     StatePending,
		Status:        NewTaskStatusRecord("initialized task"),
		CreatedAt:     time.Now(),
	}
}

// State implements the stateswitch.StateSwitch interface
func (t *Task) State() sw.State {
	return t.TaskState
}

// SetState implements the stateswitch.StateSwitch interface
func (t *Task) SetState(state sw.State) error {
	t.TaskState = state
	t.UpdatedAt = time.Now()

	if state == StateSucceeded || state == StateFailed {
		t.CompletedAt = t.UpdatedAt
	}

	return nil
}

// Completed returns true when the task is in a final state.
func (t *Task) Completed() bool {
	return t.TaskState == StateSucceeded || t.TaskState == StateFailed
}

func NewTaskStatusRecord(s string) StatusRecord {
	sr := StatusRecord{}
	if s == "" {
		return sr
	}

	sr.Append(s)

	return sr
}

type StatusRecord struct {
	StatusMsgs []StatusMsg `json:"records"`
}

type StatusMsg struct {
	Timestamp time.Time `json:"ts,omitempty"`
	Msg       string    `json:"msg,omitempty"`
}

func (sr *StatusRecord) Append(s string) {
	if s == "" {
		return
	}

	for _, r := range sr.StatusMsgs {
		if r.Msg == s {
			return
		}
	}

	if len(sr.StatusMsgs) > 4 {
		sr.StatusMsgs = sr.StatusMsgs[1:]
	}

	n := StatusMsg{Timestamp: time.Now(), Msg: s}

	sr.StatusMsgs = append(sr.StatusMsgs, n)
}

func (sr *StatusRecord) Last() string {
	if len(sr.StatusMsgs) == 0 {
		return ""
	}

	return sr.StatusMsgs[len(sr.StatusMsgs)-1].Msg
}

func (sr *StatusRecord) MustMarshal() json.RawMessage {
	b, err := json.Marshal(sr)
	if err != nil {
		panic(err)
	}

	return b
}
