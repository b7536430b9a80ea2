package statemachine

import (
	sw "github.com/filanov/stateswitch"
)

// MockTaskHandler implements the TaskTransitioner interface
//
// Errors set on the handler are returned by the corresponding transition.
type MockTaskHandler struct {
	ResolveErr error
	SubmitErr  error

	Saved  int
	Failed int
}

func (h *MockTaskHandler) Resolve(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.ResolveErr
}

func (h *MockTaskHandler) Submit(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	return h.SubmitErr
}

func (h *MockTaskHandler) SaveState(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	h.Saved++
	return nil
}

func (h *MockTaskHandler) FailedState(_ sw.StateSwitch, _ sw.TransitionArgs) error {
	h.Failed++
	return nil
}
