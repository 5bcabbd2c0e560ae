package workflow

import (
	"testing"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

func TestDefaultRegistryPolicy(t *testing.T) {
	type want map[*domain.User]bool
	tests := []struct {
		transition Transition
		status     domain.Status
		want       want
	}{
		{TransitionClose, domain.StatusNew, want{qaUser: true, adminUser: false, devUser: false, respUser: false}},
		{TransitionClose, domain.StatusClosed, want{qaUser: true, respUser: false}},
		{TransitionVerify, domain.StatusToVerify, want{qaUser: true, adminUser: false, respUser: false}},
		{TransitionVerify, domain.StatusNew, want{qaUser: false}},
		{TransitionReturn, domain.StatusToVerify, want{qaUser: true, devUser: false}},
		{TransitionReturn, domain.StatusReturned, want{qaUser: false}},
		{TransitionReopen, domain.StatusClosed, want{qaUser: true, devUser: false, respUser: false}},
		{TransitionReopen, domain.StatusVerified, want{qaUser: true}},
		{TransitionReopen, domain.StatusReturned, want{qaUser: false}},
		{TransitionSendToVerify, domain.StatusNew, want{qaUser: true, respUser: true, devUser: false, adminUser: false}},
		{TransitionSendToVerify, domain.StatusClosed, want{qaUser: false, respUser: false}},
		{TransitionSendToDiscuss, domain.StatusReturned, want{qaUser: true, respUser: true, devUser: false}},
		{TransitionSendToDiscuss, domain.StatusVerified, want{qaUser: false, respUser: false}},
		{TransitionCantBeReproduced, domain.StatusNew, want{respUser: true, qaUser: false, adminUser: false, devUser: false}},
		{TransitionCantBeReproduced, domain.StatusClosed, want{respUser: false}},
	}

	registry := DefaultRegistry()
	for _, tt := range tests {
		for _, item := range itemsIn(tt.status) {
			for actor, expected := range tt.want {
				got := registry.Allows(tt.transition, actor, Subject{Item: item})
				if got != expected {
					t.Fatalf("Allows(%s, %s, %s in %s) = %v, want %v",
						tt.transition, actor.Username, item.Kind(), tt.status, got, expected)
				}
			}
		}
	}
}

func TestVerifyAndReturnRequireToVerify(t *testing.T) {
	registry := DefaultRegistry()
	for _, status := range domain.Statuses() {
		for _, item := range itemsIn(status) {
			for _, tr := range []Transition{TransitionVerify, TransitionReturn} {
				got := registry.Allows(tr, qaUser, Subject{Item: item})
				if got != (status == domain.StatusToVerify) {
					t.Fatalf("Allows(%s, qa, %s) = %v", tr, status, got)
				}
			}
		}
	}
}

func TestUndoGuardOnlyForBugReports(t *testing.T) {
	registry := DefaultRegistry()
	items := itemsIn(domain.StatusVerified)
	entry := &domain.AuditEntry{Username: qaUser.Username, Data: map[string]any{domain.FieldStatus: "to_verify"}}

	if registry.Allows(TransitionUndo, qaUser, Subject{Item: items[0], Entry: entry}) {
		t.Fatal("undo on a bug must be denied: no guard is registered")
	}
	if !registry.Allows(TransitionUndo, qaUser, Subject{Item: items[1], Entry: entry}) {
		t.Fatal("undo on a bug report by the changer expected allowed")
	}
	if registry.Allows(TransitionUndo, devUser, Subject{Item: items[1], Entry: entry}) {
		t.Fatal("undo by another user expected denied")
	}
	noStatus := &domain.AuditEntry{Username: qaUser.Username, Data: map[string]any{domain.FieldPriority: "major"}}
	if registry.Allows(TransitionUndo, qaUser, Subject{Item: items[1], Entry: noStatus}) {
		t.Fatal("undo of an entry without status expected denied")
	}
	if registry.Allows(TransitionUndo, qaUser, Subject{Item: items[1]}) {
		t.Fatal("undo without an entry expected denied")
	}
}

func TestRegistryFailsClosed(t *testing.T) {
	registry := NewRegistry()
	item := itemsIn(domain.StatusNew)[0]
	if registry.Allows(TransitionClose, qaUser, Subject{Item: item}) {
		t.Fatal("empty registry must deny")
	}
	registry.Register(TransitionClose, func(*domain.User, Subject) bool { return true }, domain.KindBugReport)
	if registry.Allows(TransitionClose, qaUser, Subject{Item: item}) {
		t.Fatal("guard registered for bug reports must not apply to bugs")
	}
	if DefaultRegistry().Allows(TransitionClose, nil, Subject{Item: item}) {
		t.Fatal("nil actor must be denied")
	}
}
