package workflow

import (
	"fmt"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// Transition names a workflow edge. Values match the API path segments.
type Transition string

const (
	TransitionClose            Transition = "close"
	TransitionVerify           Transition = "verify"
	TransitionReturn           Transition = "return"
	TransitionReopen           Transition = "reopen"
	TransitionSendToVerify     Transition = "send_to_verify"
	TransitionSendToDiscuss    Transition = "send_to_discuss"
	TransitionCantBeReproduced Transition = "cant_be_reproduced"
	TransitionUndo             Transition = "undo"
)

// statusTransitions lists the edges that move an item to a fixed target status.
// Undo is absent: its target comes from history.
var statusTransitions = []Transition{
	TransitionClose,
	TransitionVerify,
	TransitionReturn,
	TransitionReopen,
	TransitionSendToVerify,
	TransitionSendToDiscuss,
	TransitionCantBeReproduced,
}

var effects = map[Transition]func(domain.TrackableItem){
	TransitionClose:            domain.TrackableItem.Close,
	TransitionVerify:           domain.TrackableItem.Verify,
	TransitionReturn:           domain.TrackableItem.BugReturn,
	TransitionReopen:           domain.TrackableItem.Reopen,
	TransitionSendToVerify:     domain.TrackableItem.SendToVerify,
	TransitionSendToDiscuss:    domain.TrackableItem.SendToDiscuss,
	TransitionCantBeReproduced: domain.TrackableItem.CantBeReproduced,
}

var targets = map[Transition]domain.Status{
	TransitionClose:            domain.StatusClosed,
	TransitionVerify:           domain.StatusVerified,
	TransitionReturn:           domain.StatusReturned,
	TransitionReopen:           domain.StatusNew,
	TransitionSendToVerify:     domain.StatusToVerify,
	TransitionSendToDiscuss:    domain.StatusToBeDiscussed,
	TransitionCantBeReproduced: domain.StatusCantReproduce,
}

// StatusTransitions returns the fixed-target transitions in a stable order.
func StatusTransitions() []Transition {
	return append([]Transition(nil), statusTransitions...)
}

// Target returns the status a transition moves an item to.
func Target(t Transition) (domain.Status, bool) {
	s, ok := targets[t]
	return s, ok
}

// ParseTransition converts an API path segment into a fixed-target Transition.
func ParseTransition(raw string) (Transition, error) {
	t := Transition(raw)
	if _, ok := effects[t]; !ok {
		return "", fmt.Errorf("unknown transition %q", raw)
	}
	return t, nil
}
