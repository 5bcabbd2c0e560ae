package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
)

var (
	_ repository.AuditRepository   = (*AuditRepository)(nil)
	_ repository.ItemRepository    = (*ItemRepository)(nil)
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.TrackerRepository = (*TrackerRepository)(nil)
	_ repository.CommentRepository = (*CommentRepository)(nil)
)

func TestItemWritesAppendVersionedHistory(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepository()
	items := NewItemRepository(audit)

	report := domain.NewBugReport("u-1", "t-1", "", "Glitch", "", domain.PriorityMinor)
	report.Browsers = []string{"safari"}
	if err := items.Create(ctx, report, "alice"); err != nil {
		t.Fatal(err)
	}

	loaded, err := items.GetByID(ctx, domain.KindBugReport, report.ID)
	if err != nil {
		t.Fatal(err)
	}
	loaded.SendToVerify()
	if err := items.Save(ctx, loaded, "bob"); err != nil {
		t.Fatal(err)
	}
	// No versioned change: nothing appended.
	if err := items.Save(ctx, loaded, "bob"); err != nil {
		t.Fatal(err)
	}

	entries, _ := audit.ListByObject(ctx, domain.KindBugReport, report.ID)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Version != 1 || entries[0].Action != domain.AuditActionCreate || entries[0].Username != "alice" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Version != 2 || entries[1].Data[domain.FieldStatus] != "to_verify" || entries[1].Username != "bob" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}

	prev, err := audit.EntryAt(ctx, domain.KindBugReport, report.ID, 1)
	if err != nil || prev.Version != 1 {
		t.Fatalf("EntryAt(1) = %+v, %v", prev, err)
	}
	if _, err := audit.EntryAt(ctx, domain.KindBugReport, report.ID, 2); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("EntryAt(2) error = %v, want pgx.ErrNoRows", err)
	}

	if got := loaded.(*domain.BugReport).Browsers; len(got) != 1 || got[0] != "safari" {
		t.Fatalf("Browsers = %v", got)
	}
	if _, err := items.GetByID(ctx, domain.KindBug, report.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("kinds must not share ids, got %v", err)
	}
}

func TestItemUpdate(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepository()
	items := NewItemRepository(audit)
	bug := domain.NewBug("u-1", "t-1", "", "Crash", "", domain.PriorityNormal)
	if err := items.Create(ctx, bug, "alice"); err != nil {
		t.Fatal(err)
	}

	refused := errors.New("refused")
	if _, err := items.Update(ctx, domain.KindBug, bug.ID, "bob", func(item domain.TrackableItem) error {
		item.Close()
		return refused
	}); !errors.Is(err, refused) {
		t.Fatalf("Update() error = %v, want the mutation error", err)
	}
	if _, err := items.Update(ctx, domain.KindBug, bug.ID, "bob", func(domain.TrackableItem) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if items.Saves() != 0 {
		t.Fatalf("saves = %d, want 0 after refused and no-op updates", items.Saves())
	}
	stored, _ := items.GetByID(ctx, domain.KindBug, bug.ID)
	if stored.Status() != domain.StatusNew {
		t.Fatalf("status = %s, refused mutation leaked", stored.Status())
	}

	got, err := items.Update(ctx, domain.KindBug, bug.ID, "bob", func(item domain.TrackableItem) error {
		item.SendToVerify()
		return nil
	})
	if err != nil || got.Status() != domain.StatusToVerify {
		t.Fatalf("Update() = %v, %v", got, err)
	}
	entries, _ := audit.ListByObject(ctx, domain.KindBug, bug.ID)
	if len(entries) != 2 || entries[1].Username != "bob" || entries[1].Data[domain.FieldStatus] != "to_verify" {
		t.Fatalf("entries = %+v", entries)
	}

	if _, err := items.Update(ctx, domain.KindBug, "missing", "bob", func(domain.TrackableItem) error { return nil }); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("Update(missing) error = %v, want pgx.ErrNoRows", err)
	}
}

func TestConcurrentUpdatesKeepHistoryInOrder(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditRepository()
	items := NewItemRepository(audit)
	bug := domain.NewBug("u-1", "t-1", "", "Flaky", "", domain.PriorityNormal)
	if err := items.Create(ctx, bug, "alice"); err != nil {
		t.Fatal(err)
	}

	priorities := []domain.Priority{domain.PriorityCritical, domain.PriorityMajor, domain.PriorityNormal, domain.PriorityMinor}
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = items.Update(ctx, domain.KindBug, bug.ID, "bob", func(item domain.TrackableItem) error {
				return item.Base().ChangePriority(priorities[i%len(priorities)])
			})
		}(i)
	}
	wg.Wait()

	entries, _ := audit.ListByObject(ctx, domain.KindBug, bug.ID)
	previous := string(domain.PriorityNormal)
	for i, e := range entries[1:] {
		got, _ := e.Data[domain.FieldPriority].(string)
		if e.Version != i+2 || got == "" || got == previous {
			t.Fatalf("entry %d = %+v, previous priority %s", e.Version, e.Data, previous)
		}
		previous = got
	}
	stored, _ := items.GetByID(ctx, domain.KindBug, bug.ID)
	if string(stored.Base().Priority) != previous {
		t.Fatalf("stored priority = %s, last recorded %s", stored.Base().Priority, previous)
	}
}

func TestItemListFilters(t *testing.T) {
	ctx := context.Background()
	items := NewItemRepository(NewAuditRepository())
	for _, title := range []string{"Crash on login", "Typo in footer", "Crash on logout"} {
		if err := items.Create(ctx, domain.NewBug("u-1", "t-1", "", title, "", domain.PriorityNormal), "alice"); err != nil {
			t.Fatal(err)
		}
	}
	other := domain.NewBug("u-1", "t-2", "", "Crash elsewhere", "", domain.PriorityNormal)
	_ = items.Create(ctx, other, "alice")

	tracker := "t-1"
	term := "CRASH"
	got, err := items.List(ctx, repository.ItemFilter{Kind: domain.KindBug, TrackerID: &tracker, SearchTerm: &term})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len(List) = %d, want 2", len(got))
	}

	got, _ = items.List(ctx, repository.ItemFilter{Kind: domain.KindBug, Statuses: []domain.Status{domain.StatusClosed}})
	if len(got) != 0 {
		t.Fatalf("closed filter returned %d items", len(got))
	}
	got, _ = items.List(ctx, repository.ItemFilter{Kind: domain.KindBug, Limit: 3, Offset: 2})
	if len(got) != 2 {
		t.Fatalf("page returned %d items, want 2", len(got))
	}
}

func TestUserRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(&domain.User{ID: "u-1", Username: "alice", Roles: []domain.Role{domain.RoleQA}})
	u, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	u.Roles[0] = domain.RoleAdmin
	again, _ := users.GetByID(ctx, "u-1")
	if !again.HasRole(domain.RoleQA) || again.HasRole(domain.RoleAdmin) {
		t.Fatalf("stored roles mutated through returned copy: %v", again.Roles)
	}
}
