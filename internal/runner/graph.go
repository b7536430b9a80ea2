package runner

import (
	"encoding/json"

	"github.com/emicklei/dot"
	sw "github.com/filanov/stateswitch"
	"github.com/pkg/errors"

	"github.com/metal-toolbox/powerctl/internal/model"
	sm "github.com/metal-toolbox/powerctl/internal/statemachine"
)

// DescribeTaskStateMachine returns the task statemachine description for the handler.
func DescribeTaskStateMachine(handler sm.TaskTransitioner) (*sw.StateMachineJSON, error) {
	b, err := sm.NewTaskStateMachine(handler).DescribeAsJSON()
	if err != nil {
		return nil, err
	}

	desc := &sw.StateMachineJSON{}
	if err := json.Unmarshal(b, desc); err != nil {
		return nil, errors.Wrap(err, "task statemachine description")
	}

	return desc, nil
}

// Graph returns the task statemachine transitions along with the run level handling of each final task state.
func Graph(desc *sw.StateMachineJSON) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := map[string]dot.Node{}

	node := func(name string) dot.Node {
		n, exists := nodes[name]
		if !exists {
			n = g.Node(name)
			nodes[name] = n
		}

		return n
	}

	for _, transition := range desc.TransitionRules {
		for _, sourceState := range transition.SourceStates {
			g.Edge(node(sourceState), node(transition.DestinationState), transition.Name)
		}
	}

	next := node("Next target")
	halted := node("Run halted")

	g.Edge(node(string(model.StateSucceeded)), next)
	g.Edge(node(string(model.StateFailed)), next, "Lookup or power state update error")
	g.Edge(node(string(model.StateFailed)), halted, "Account or API key error")
	g.Edge(next, node(string(model.StatePending)), "Targets remaining")

	return g
}
