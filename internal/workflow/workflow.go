// Package workflow defines order lifecycle states and the named transitions between them.
package workflow

import (
	"errors"
	"fmt"
)

// ErrUnknownWorkflow is returned for workflow ids with no definition.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// Order states.
const (
	StateDraft       = "draft"
	StateFulfillment = "fulfillment"
	StateCompleted   = "completed"
	StateCanceled    = "canceled"
)

// Workflow ids.
const (
	DefaultID     = "order_default"
	FulfillmentID = "order_fulfillment"
)

// Transition moves an order from any of From to To.
type Transition struct {
	ID    string
	Label string
	From  []string
	To    string
}

// Workflow is a named set of states and transitions.
type Workflow struct {
	ID          string
	Label       string
	States      []string
	Transitions []Transition
}

var registry = map[string]Workflow{
	DefaultID: {
		ID:     DefaultID,
		Label:  "Default",
		States: []string{StateDraft, StateCompleted, StateCanceled},
		Transitions: []Transition{
			{ID: "place", Label: "Place order", From: []string{StateDraft}, To: StateCompleted},
			{ID: "cancel", Label: "Cancel order", From: []string{StateDraft}, To: StateCanceled},
		},
	},
	FulfillmentID: {
		ID:     FulfillmentID,
		Label:  "Fulfillment",
		States: []string{StateDraft, StateFulfillment, StateCompleted, StateCanceled},
		Transitions: []Transition{
			{ID: "place", Label: "Place order", From: []string{StateDraft}, To: StateFulfillment},
			{ID: "fulfill", Label: "Fulfill order", From: []string{StateFulfillment}, To: StateCompleted},
			{ID: "cancel", Label: "Cancel order", From: []string{StateDraft, StateFulfillment}, To: StateCanceled},
		},
	},
}

// Lookup returns the workflow registered under id.
func Lookup(id string) (Workflow, error) {
	w, ok := registry[id]
	if !ok {
		return Workflow{}, fmt.Errorf("%w %q", ErrUnknownWorkflow, id)
	}
	return w, nil
}

// HasState reports whether state belongs to the workflow.
func (w Workflow) HasState(state string) bool {
	for _, s := range w.States {
		if s == state {
			return true
		}
	}
	return false
}

// Allowed returns the transitions legal from state, keyed by id.
func (w Workflow) Allowed(state string) map[string]Transition {
	out := make(map[string]Transition)
	for _, t := range w.Transitions {
		for _, from := range t.From {
			if from == state {
				out[t.ID] = t
				break
			}
		}
	}
	return out
}
