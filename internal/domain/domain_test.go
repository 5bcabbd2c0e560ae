package domain

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseStatus(%q) = %q", s, got)
		}
	}
	for _, raw := range []string{"", "open", "CLOSED", "in_progress"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("ParseStatus(%q) error = %v, want ErrInvalidStatus", raw, err)
		}
	}
	if len(Statuses()) != 7 {
		t.Fatalf("len(Statuses()) = %d, want 7", len(Statuses()))
	}
}

func TestParsePriority(t *testing.T) {
	for _, raw := range []string{"critical", "major", "normal", "minor"} {
		if _, err := ParsePriority(raw); err != nil {
			t.Fatalf("ParsePriority(%q) error = %v", raw, err)
		}
	}
	if _, err := ParsePriority("urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("ParsePriority(urgent) error = %v, want ErrInvalidPriority", err)
	}
}

func TestNewItemsStartNewAndActive(t *testing.T) {
	items := []TrackableItem{
		NewBug("author", "tracker", "dev", "title", "desc", PriorityMajor),
		NewBugReport("author", "tracker", "dev", "title", "desc", ""),
	}
	for _, item := range items {
		if item.Status() != StatusNew {
			t.Fatalf("%s Status() = %q, want new", item.Kind(), item.Status())
		}
		if !item.IsActive() {
			t.Fatalf("%s IsActive() = false, want true", item.Kind())
		}
		if item.AuthorID() != "author" {
			t.Fatalf("%s AuthorID() = %q, want author", item.Kind(), item.AuthorID())
		}
	}
	if got := items[1].Base().Priority; got != PriorityNormal {
		t.Fatalf("default priority = %q, want normal", got)
	}
}

func TestTransitionMethodsSetTargetStatus(t *testing.T) {
	tests := []struct {
		name  string
		apply func(TrackableItem)
		want  Status
	}{
		{"close", TrackableItem.Close, StatusClosed},
		{"verify", TrackableItem.Verify, StatusVerified},
		{"return", TrackableItem.BugReturn, StatusReturned},
		{"reopen", TrackableItem.Reopen, StatusNew},
		{"send to verify", TrackableItem.SendToVerify, StatusToVerify},
		{"send to discuss", TrackableItem.SendToDiscuss, StatusToBeDiscussed},
		{"cant be reproduced", TrackableItem.CantBeReproduced, StatusCantReproduce},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewBugReport("a", "t", "r", "title", "", PriorityMinor)
			item.Close()
			tt.apply(item)
			if item.Status() != tt.want {
				t.Fatalf("Status() = %q, want %q", item.Status(), tt.want)
			}
			if item.Priority != PriorityMinor || item.ResponsiblePersonID != "r" {
				t.Fatal("transition changed fields other than status")
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	for _, s := range Statuses() {
		bug := NewBug("a", "t", "r", "title", "", PriorityNormal)
		if err := bug.RestoreStatus(s); err != nil {
			t.Fatalf("RestoreStatus(%q) error = %v", s, err)
		}
		want := s != StatusVerified && s != StatusClosed
		if bug.IsActive() != want {
			t.Fatalf("IsActive() in %q = %v, want %v", s, bug.IsActive(), want)
		}
	}
}

func TestRestoreStatusRejectsUnknownValue(t *testing.T) {
	bug := NewBug("a", "t", "r", "title", "", PriorityNormal)
	bug.SendToVerify()
	if err := bug.RestoreStatus("archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("RestoreStatus(archived) error = %v, want ErrInvalidStatus", err)
	}
	if bug.Status() != StatusToVerify {
		t.Fatalf("Status() = %q after rejected restore, want to_verify", bug.Status())
	}
}

func TestLoadTrackableRoundTrip(t *testing.T) {
	report := NewBugReport("author", "tracker", "dev", "title", "desc", PriorityCritical)
	report.ID = "42"
	report.SendToDiscuss()

	loaded, err := LoadTrackable(report.Record())
	if err != nil {
		t.Fatalf("LoadTrackable() error = %v", err)
	}
	if loaded.Status() != StatusToBeDiscussed || loaded.AuthorID() != "author" || loaded.ID != "42" {
		t.Fatalf("LoadTrackable() = %+v", loaded.Record())
	}

	rec := report.Record()
	rec.Status = "bogus"
	if _, err := LoadTrackable(rec); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("LoadTrackable() error = %v, want ErrInvalidStatus", err)
	}
}

func TestChangePriority(t *testing.T) {
	bug := NewBug("a", "t", "r", "title", "", PriorityNormal)
	bug.ChangePriorityToCritical()
	if bug.Priority != PriorityCritical {
		t.Fatalf("Priority = %q, want critical", bug.Priority)
	}
	if err := bug.ChangePriority("blocker"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("ChangePriority(blocker) error = %v", err)
	}
	if bug.Priority != PriorityCritical {
		t.Fatalf("Priority = %q after rejected change, want critical", bug.Priority)
	}
}

func TestUserHasRole(t *testing.T) {
	qa := &User{ID: "1", Username: "qa", Roles: []Role{RoleQA}}
	if !qa.HasRole(RoleQA) || !qa.HasRole(RoleUser) {
		t.Fatal("HasRole() expected QA and implicit USER")
	}
	if qa.HasRole(RoleAdmin) {
		t.Fatal("HasRole(ADMIN) expected false")
	}
	var nobody *User
	if nobody.HasRole(RoleUser) || nobody.Is("1") {
		t.Fatal("nil user must hold no roles")
	}
	if qa.Is("") {
		t.Fatal("Is(\"\") expected false")
	}
}

func TestAuditEntryRecordedStatus(t *testing.T) {
	entry := &AuditEntry{Data: map[string]any{FieldStatus: "to_verify"}}
	if got, ok := entry.RecordedStatus(); !ok || got != "to_verify" {
		t.Fatalf("RecordedStatus() = %q, %v", got, ok)
	}
	entry = &AuditEntry{Data: map[string]any{FieldPriority: "major"}}
	if entry.HasStatusChange() {
		t.Fatal("HasStatusChange() expected false without status key")
	}
	entry = &AuditEntry{Data: map[string]any{FieldStatus: 7}}
	if got, ok := entry.RecordedStatus(); !ok || got != "" {
		t.Fatalf("RecordedStatus() with non-string value = %q, %v, want \"\", true", got, ok)
	}
	var nilEntry *AuditEntry
	if nilEntry.HasStatusChange() {
		t.Fatal("HasStatusChange() on nil expected false")
	}
}
