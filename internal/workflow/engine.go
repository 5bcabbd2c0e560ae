package workflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/domain"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// Engine is the only writer of item status on the normal path.
type Engine struct {
	guards *Registry
	logger *zap.Logger
}

// NewEngine builds an engine over guards. A nil registry falls back to DefaultRegistry.
func NewEngine(guards *Registry, logger *zap.Logger) *Engine {
	if guards == nil {
		guards = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{guards: guards, logger: logger}
}

// Allowed reports whether actor may run transition on item right now.
func (e *Engine) Allowed(transition Transition, actor *domain.User, item domain.TrackableItem) bool {
	return e.guards.Allows(transition, actor, Subject{Item: item})
}

// Available lists the fixed-target transitions actor may run on item.
func (e *Engine) Available(actor *domain.User, item domain.TrackableItem) []Transition {
	out := make([]Transition, 0, len(statusTransitions))
	for _, t := range statusTransitions {
		if e.Allowed(t, actor, item) {
			out = append(out, t)
		}
	}
	return out
}

// Apply runs transition on item. On denial the item is left untouched and a FORBIDDEN error is returned.
func (e *Engine) Apply(transition Transition, actor *domain.User, item domain.TrackableItem) error {
	effect, ok := effects[transition]
	if !ok {
		return apperrors.NewForbidden(fmt.Sprintf("transition %q is not available", transition))
	}
	if !e.Allowed(transition, actor, item) {
		e.logger.Debug("transition denied",
			zap.String("transition", string(transition)),
			zap.String("kind", string(kindOf(item))),
			zap.String("item_id", idOf(item)),
			zap.String("status", string(statusOf(item))),
			zap.String("actor", usernameOf(actor)))
		return apperrors.NewForbidden(fmt.Sprintf("%s is not allowed", transition))
	}
	effect(item)
	return nil
}

// Close closes the item. Requires ROLE_QA.
func (e *Engine) Close(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionClose, actor, item)
}

// Verify verifies an item waiting in to_verify. Requires ROLE_QA.
func (e *Engine) Verify(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionVerify, actor, item)
}

// Return sends an item in to_verify back as returned. Requires ROLE_QA.
func (e *Engine) Return(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionReturn, actor, item)
}

// Reopen moves a verified or closed item back to new. Requires ROLE_QA.
func (e *Engine) Reopen(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionReopen, actor, item)
}

// SendToVerify moves an active item to to_verify for QA or the responsible person.
func (e *Engine) SendToVerify(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionSendToVerify, actor, item)
}

// SendToDiscuss moves an active item to to_be_discussed for QA or the responsible person.
func (e *Engine) SendToDiscuss(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionSendToDiscuss, actor, item)
}

// CantBeReproduced marks an active item cant_reproduce. Only the responsible person may do so.
func (e *Engine) CantBeReproduced(actor *domain.User, item domain.TrackableItem) error {
	return e.Apply(TransitionCantBeReproduced, actor, item)
}

func kindOf(item domain.TrackableItem) domain.ItemKind {
	if item == nil {
		return ""
	}
	return item.Kind()
}

func idOf(item domain.TrackableItem) string {
	if item == nil {
		return ""
	}
	return item.ItemID()
}

func statusOf(item domain.TrackableItem) domain.Status {
	if item == nil {
		return ""
	}
	return item.Status()
}

func usernameOf(actor *domain.User) string {
	if actor == nil {
		return ""
	}
	return actor.Username
}
