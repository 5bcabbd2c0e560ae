package workflow

import (
	"testing"

	"github.com/spec-kit/bug-tracker/internal/domain"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

func TestApplyDeniedLeavesStatusUnchanged(t *testing.T) {
	engine := NewEngine(nil, nil)
	actors := []*domain.User{qaUser, adminUser, devUser, respUser}
	for _, status := range domain.Statuses() {
		for _, tr := range StatusTransitions() {
			for _, actor := range actors {
				for _, item := range itemsIn(status) {
					allowed := engine.Allowed(tr, actor, item)
					err := engine.Apply(tr, actor, item)
					if allowed {
						if err != nil {
							t.Fatalf("Apply(%s) by %s from %s error = %v", tr, actor.Username, status, err)
						}
						target, _ := Target(tr)
						if item.Status() != target {
							t.Fatalf("Apply(%s) status = %q, want %q", tr, item.Status(), target)
						}
						continue
					}
					if !apperrors.HasCode(err, apperrors.CodeForbidden) {
						t.Fatalf("Apply(%s) by %s from %s error = %v, want FORBIDDEN", tr, actor.Username, status, err)
					}
					if item.Status() != status {
						t.Fatalf("denied Apply(%s) changed status %q -> %q", tr, status, item.Status())
					}
				}
			}
		}
	}
}

func TestCloseThenReopenRestoresNew(t *testing.T) {
	engine := NewEngine(nil, nil)
	for _, status := range domain.Statuses() {
		for _, item := range itemsIn(status) {
			if err := engine.Close(qaUser, item); err != nil {
				t.Fatalf("Close() from %s error = %v", status, err)
			}
			if err := engine.Reopen(qaUser, item); err != nil {
				t.Fatalf("Reopen() error = %v", err)
			}
			if item.Status() != domain.StatusNew || !item.IsActive() {
				t.Fatalf("after close+reopen status = %q active = %v", item.Status(), item.IsActive())
			}
		}
	}
}

func TestCantBeReproducedOnlyByResponsible(t *testing.T) {
	engine := NewEngine(nil, nil)
	for _, item := range itemsIn(domain.StatusNew) {
		for _, actor := range []*domain.User{qaUser, adminUser, devUser} {
			if err := engine.CantBeReproduced(actor, item); !apperrors.HasCode(err, apperrors.CodeForbidden) {
				t.Fatalf("CantBeReproduced() by %s error = %v, want FORBIDDEN", actor.Username, err)
			}
		}
		if err := engine.CantBeReproduced(respUser, item); err != nil {
			t.Fatalf("CantBeReproduced() by responsible error = %v", err)
		}
		if item.Status() != domain.StatusCantReproduce {
			t.Fatalf("Status() = %q, want cant_reproduce", item.Status())
		}
	}
}

func TestBugLifecycleScenario(t *testing.T) {
	engine := NewEngine(nil, nil)
	bug := domain.NewBug(authorID, "tr-1", respUser.ID, "Crash on save", "", domain.PriorityCritical)

	if err := engine.SendToDiscuss(respUser, bug); err != nil {
		t.Fatalf("SendToDiscuss() error = %v", err)
	}
	if bug.Status() != domain.StatusToBeDiscussed {
		t.Fatalf("Status() = %q, want to_be_discussed", bug.Status())
	}
	if err := engine.Close(qaUser, bug); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if bug.Status() != domain.StatusClosed || bug.IsActive() {
		t.Fatalf("Status() = %q active = %v, want closed/inactive", bug.Status(), bug.IsActive())
	}
	if err := engine.Reopen(devUser, bug); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Reopen() by developer error = %v, want FORBIDDEN", err)
	}
	if bug.Status() != domain.StatusClosed {
		t.Fatalf("Status() = %q, want closed", bug.Status())
	}
}

func TestBugReportVerifyScenario(t *testing.T) {
	engine := NewEngine(nil, nil)
	report := itemsIn(domain.StatusToVerify)[1]

	if err := engine.Verify(qaUser, report); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if report.Status() != domain.StatusVerified {
		t.Fatalf("Status() = %q, want verified", report.Status())
	}
	if err := engine.Return(devUser, report); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Return() by developer error = %v, want FORBIDDEN", err)
	}
	if err := engine.Return(qaUser, report); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Return() by QA outside to_verify error = %v, want FORBIDDEN", err)
	}
	if report.Status() != domain.StatusVerified {
		t.Fatalf("Status() = %q, want verified", report.Status())
	}
}

func TestApplyUnknownTransitionIsForbidden(t *testing.T) {
	engine := NewEngine(nil, nil)
	item := itemsIn(domain.StatusNew)[1]
	if err := engine.Apply(TransitionUndo, qaUser, item); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Apply(undo) error = %v, want FORBIDDEN", err)
	}
	if err := engine.Apply("archive", qaUser, item); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("Apply(archive) error = %v, want FORBIDDEN", err)
	}
}

func TestAvailable(t *testing.T) {
	engine := NewEngine(nil, nil)
	item := itemsIn(domain.StatusToVerify)[0]

	got := engine.Available(respUser, item)
	want := []Transition{TransitionSendToVerify, TransitionSendToDiscuss, TransitionCantBeReproduced}
	if len(got) != len(want) {
		t.Fatalf("Available(responsible) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Available(responsible)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got = engine.Available(qaUser, item)
	if len(got) != 5 {
		t.Fatalf("Available(qa) = %v, want close verify return send_to_verify send_to_discuss", got)
	}
}

func TestParseTransition(t *testing.T) {
	if tr, err := ParseTransition("send_to_verify"); err != nil || tr != TransitionSendToVerify {
		t.Fatalf("ParseTransition(send_to_verify) = %q, %v", tr, err)
	}
	if _, err := ParseTransition("undo"); err == nil {
		t.Fatal("ParseTransition(undo) expected error: undo has no fixed target")
	}
}
