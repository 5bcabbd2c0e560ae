// Package memory holds process-local repositories used when no database is
// configured and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
)

// AuditRepository assigns versions per object the same way the Postgres store does.
type AuditRepository struct {
	mu      sync.Mutex
	entries map[string][]domain.AuditEntry
	now     func() time.Time
}

// NewAuditRepository builds an empty store.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{entries: map[string][]domain.AuditEntry{}, now: time.Now}
}

func objectKey(class domain.ItemKind, id string) string { return string(class) + "/" + id }

func (r *AuditRepository) Append(_ context.Context, _ repository.DBTX, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := objectKey(entry.ObjectClass, entry.ObjectID)
	entry.ID = uuid.NewString()
	entry.Version = len(r.entries[key]) + 1
	entry.LoggedAt = r.now()
	stored := *entry
	stored.Data = copyData(entry.Data)
	r.entries[key] = append(r.entries[key], stored)
	return nil
}

func (r *AuditRepository) ListByObject(_ context.Context, class domain.ItemKind, objectID string) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[objectKey(class, objectID)]
	out := make([]domain.AuditEntry, len(list))
	for i, e := range list {
		e.Data = copyData(e.Data)
		out[i] = e
	}
	return out, nil
}

func (r *AuditRepository) EntryAt(_ context.Context, class domain.ItemKind, objectID string, offset int) (*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	list := r.entries[objectKey(class, objectID)]
	idx := len(list) - 1 - offset
	if idx < 0 {
		return nil, pgx.ErrNoRows
	}
	entry := list[idx]
	entry.Data = copyData(entry.Data)
	return &entry, nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
