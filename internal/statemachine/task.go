package statemachine

import (
	"context"
	"fmt"

	sw "github.com/filanov/stateswitch"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/powerctl/internal/model"
)

const (
	// TransitionTypeResolve locates the server and its settings object.
	TransitionTypeResolve sw.TransitionType = "resolve"
	// TransitionTypeSubmit writes the power state to the server settings object.
	TransitionTypeSubmit sw.TransitionType = "submit"
	// TransitionTypeTaskFail marks the task failed.
	TransitionTypeTaskFail sw.TransitionType = "taskFailed"
)

var (
	// errors
	ErrInvalidTransitionHandler  = errors.New("expected a valid transitionHandler{} type")
	ErrInvalidTaskHandlerContext = errors.New("expected a HandlerContext{} type")
	ErrTaskTransition            = errors.New("error in task transition")
	ErrTaskTypeAssertion         = errors.New("error asserting the Task type")
)

// HandlerContext holds working attributes of a task
//
// This struct is passed to transition handlers which
// depend on the values provided in this struct.
type HandlerContext struct {
	// ctx is the parent context
	Ctx context.Context

	// TaskID is the task being worked on.
	TaskID string

	// Err is set when a transition fails in Run()
	Err error

	Logger *logrus.Entry
}

// TaskTransitioner defines stateswitch methods that handle state transitions.
type TaskTransitioner interface {
	Resolve(sw sw.StateSwitch, args sw.TransitionArgs) error
	Submit(sw sw.StateSwitch, args sw.TransitionArgs) error
	SaveState(sw sw.StateSwitch, args sw.TransitionArgs) error
	FailedState(sw sw.StateSwitch, args sw.TransitionArgs) error
}

// TaskStateMachine drives the task
type TaskStateMachine struct {
	sm          sw.StateMachine
	transitions []sw.TransitionType
	rules       []sw.TransitionRule
}

// TransitionRules returns the task transition rules for the handler.
func TransitionRules(handler TaskTransitioner) []sw.TransitionRule {
	return []sw.TransitionRule{
		{
			TransitionType:   TransitionTypeResolve,
			SourceStates:     sw.States{model.StatePending},
			DestinationState: model.StateActive,

			// Condition for the transition, transition will be executed only if this function return true
			// Can be nil, in this case it's considered as return true, nil
			Condition: nil,

			// Transition is users business logic, should not set the state or return next state
			// If condition returns true this function will be executed
			Transition: handler.Resolve,

			// PostTransition will be called if condition and transition are successful.
			PostTransition: handler.SaveState,
			Documentation: sw.TransitionRuleDoc{
				Name:        "Resolve server",
				Description: "Locate the server and its server settings object, map the power state.",
			},
		},
		{
			TransitionType:   TransitionTypeSubmit,
			SourceStates:     sw.States{model.StateActive},
			DestinationState: model.StateSucceeded,
			Transition:       handler.Submit,
			PostTransition:   handler.SaveState,
			Documentation: sw.TransitionRuleDoc{
				Name:        "Submit power state",
				Description: "Update the AdminPowerState on the server settings object.",
			},
		},
		{
			TransitionType:   TransitionTypeTaskFail,
			SourceStates:     sw.States{model.StatePending, model.StateActive},
			DestinationState: model.StateFailed,
			Transition:       handler.FailedState,
			PostTransition:   handler.SaveState,
			Documentation: sw.TransitionRuleDoc{
				Name:        "Task failed",
				Description: "Record the failure on the task.",
			},
		},
	}
}

// NewTaskStateMachine returns a task statemachine with the transitions handled by handler.
func NewTaskStateMachine(handler TaskTransitioner) *TaskStateMachine {
	// transitions are executed in this order
	transitionOrder := []sw.TransitionType{
		TransitionTypeResolve,
		TransitionTypeSubmit,
	}

	m := &TaskStateMachine{
		sm:          sw.NewStateMachine(),
		transitions: transitionOrder,
		rules:       TransitionRules(handler),
	}

	// The SM has transition rules define the transitionHandler methods
	// each transitionHandler method is passed as values to the transition rule.
	for _, rule := range m.rules {
		m.sm.AddTransition(rule)
	}

	for _, doc := range stateDocumentation {
		m.sm.DescribeState(sw.State(doc.Name), doc)
	}

	return m
}

var stateDocumentation = []sw.StateDoc{
	{Name: string(model.StatePending), Description: "The task is initialized, the server is not yet resolved."},
	{Name: string(model.StateActive), Description: "The server and its settings object were resolved."},
	{Name: string(model.StateSucceeded), Description: "The power state update was accepted by Intersight."},
	{Name: string(model.StateFailed), Description: "The task failed, the error is recorded on the task."},
}

// SetTransitionOrder sets the expected order of transition execution.
func (m *TaskStateMachine) SetTransitionOrder(transitions []sw.TransitionType) {
	m.transitions = transitions
}

// DescribeAsJSON returns a JSON output describing the task statemachine.
func (m *TaskStateMachine) DescribeAsJSON() ([]byte, error) {
	return m.sm.AsJSON()
}

// Run executes the task transitions in order, on failure the task is transitioned to the failed state
// and the error is returned.
func (m *TaskStateMachine) Run(ctx context.Context, task *model.Task, handler TaskTransitioner, tctx *HandlerContext) error {
	var err error

	if tctx.Ctx == nil {
		tctx.Ctx = ctx
	}

	for _, transitionType := range m.transitions {
		err = m.sm.Run(transitionType, task, tctx)
		if err == nil {
			continue
		}

		// update error to include some useful context
		if errors.Is(err, sw.NoConditionPassedToRunTransaction) {
			err = errors.Wrap(
				ErrTaskTransition,
				fmt.Sprintf("no transition rule found for transition type '%s' and state '%s'", transitionType, task.State()),
			)
		}

		// set task handler err
		tctx.Err = err

		break
	}

	if err == nil {
		return nil
	}

	// the task is marked failed through the statemachine when its current state allows it,
	// errors from the fallback are ignored so as to not overwrite the original error
	if failErr := m.sm.Run(TransitionTypeTaskFail, task, tctx); failErr != nil {
		task.Error = err.Error()
		_ = task.SetState(model.StateFailed)
		_ = handler.SaveState(task, tctx)
	}

	return err
}
