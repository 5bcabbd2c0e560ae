package workflow

import "github.com/spec-kit/bug-tracker/internal/domain"

// Subject is what a guard votes on: the item, and for undo the audit entry selected for reversal.
type Subject struct {
	Item  domain.TrackableItem
	Entry *domain.AuditEntry
}

// Guard decides whether actor may run a transition on subject. Guards never mutate.
type Guard func(actor *domain.User, subject Subject) bool

type guardKey struct {
	transition Transition
	kind       domain.ItemKind
}

// Registry maps (transition, kind) pairs to guards. Missing pairs deny.
type Registry struct {
	guards map[guardKey]Guard
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{guards: make(map[guardKey]Guard)}
}

// Register binds guard to transition for each kind. A later registration replaces an earlier one.
func (r *Registry) Register(transition Transition, guard Guard, kinds ...domain.ItemKind) {
	for _, kind := range kinds {
		r.guards[guardKey{transition: transition, kind: kind}] = guard
	}
}

// Allows evaluates the guard for transition on subject.
func (r *Registry) Allows(transition Transition, actor *domain.User, subject Subject) bool {
	if actor == nil || subject.Item == nil {
		return false
	}
	guard, ok := r.guards[guardKey{transition: transition, kind: subject.Item.Kind()}]
	if !ok {
		return false
	}
	return guard(actor, subject)
}

// DefaultRegistry wires the bug tracker's transition policy.
func DefaultRegistry() *Registry {
	both := []domain.ItemKind{domain.KindBug, domain.KindBugReport}

	r := NewRegistry()
	r.Register(TransitionClose, qaOnly, both...)
	r.Register(TransitionVerify, qaWhileToVerify, both...)
	r.Register(TransitionReturn, qaWhileToVerify, both...)
	r.Register(TransitionReopen, qaWhileInactive, both...)
	r.Register(TransitionSendToVerify, activeForQAOrResponsible, both...)
	r.Register(TransitionSendToDiscuss, activeForQAOrResponsible, both...)
	r.Register(TransitionCantBeReproduced, activeForResponsible, both...)
	r.Register(TransitionUndo, sameChangerOfStatus, domain.KindBugReport)
	return r
}

func qaOnly(actor *domain.User, _ Subject) bool {
	return actor.HasRole(domain.RoleQA)
}

func qaWhileToVerify(actor *domain.User, s Subject) bool {
	return s.Item.Status() == domain.StatusToVerify && actor.HasRole(domain.RoleQA)
}

func qaWhileInactive(actor *domain.User, s Subject) bool {
	return !s.Item.IsActive() && actor.HasRole(domain.RoleQA)
}

func activeForQAOrResponsible(actor *domain.User, s Subject) bool {
	return s.Item.IsActive() && (actor.HasRole(domain.RoleQA) || actor.Is(s.Item.ResponsiblePerson()))
}

func activeForResponsible(actor *domain.User, s Subject) bool {
	return s.Item.IsActive() && actor.Is(s.Item.ResponsiblePerson())
}

func sameChangerOfStatus(actor *domain.User, s Subject) bool {
	if s.Entry == nil || actor.Username == "" {
		return false
	}
	return s.Entry.Username == actor.Username && s.Entry.HasStatusChange()
}
