package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/repository"
)

type storedItem struct {
	rec    domain.TrackableRecord
	report *domain.BugReport
}

// ItemRepository keeps flattened records so every read hands out a fresh item.
type ItemRepository struct {
	mu    sync.Mutex
	items map[string]storedItem
	audit repository.AuditRepository
	saves int
}

// NewItemRepository builds an empty store appending history to audit.
func NewItemRepository(audit repository.AuditRepository) *ItemRepository {
	return &ItemRepository{items: map[string]storedItem{}, audit: audit}
}

func (r *ItemRepository) Create(ctx context.Context, item domain.TrackableItem, username string) error {
	if _, err := kindOf(item); err != nil {
		return err
	}
	base := item.Base()

	r.mu.Lock()
	defer r.mu.Unlock()
	base.ID = uuid.NewString()
	base.CreatedAt = time.Now()
	base.UpdatedAt = base.CreatedAt
	r.items[objectKey(item.Kind(), base.ID)] = snapshot(item)

	return r.audit.Append(ctx, nil, &domain.AuditEntry{
		ObjectClass: item.Kind(),
		ObjectID:    base.ID,
		Username:    username,
		Action:      domain.AuditActionCreate,
		Data:        repository.CreateAuditData(base.Record()),
	})
}

func (r *ItemRepository) Save(ctx context.Context, item domain.TrackableItem, username string) error {
	if _, err := kindOf(item); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	before, ok := r.items[objectKey(item.Kind(), item.ItemID())]
	if !ok {
		return pgx.ErrNoRows
	}
	return r.persist(ctx, item, before.rec, username)
}

// Update holds the store lock from load to audit append, so concurrent updates of one item
// observe each other's results.
func (r *ItemRepository) Update(ctx context.Context, kind domain.ItemKind, id, username string, mutate repository.ItemMutation) (domain.TrackableItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[objectKey(kind, id)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	item, err := stored.load(kind)
	if err != nil {
		return nil, err
	}
	if err := mutate(item); err != nil {
		return nil, err
	}
	if len(repository.DiffAuditData(stored.rec, item.Base().Record())) == 0 {
		return item, nil
	}
	if err := r.persist(ctx, item, stored.rec, username); err != nil {
		return nil, err
	}
	return item, nil
}

// persist must be called with r.mu held.
func (r *ItemRepository) persist(ctx context.Context, item domain.TrackableItem, before domain.TrackableRecord, username string) error {
	item.Base().UpdatedAt = time.Now()
	r.items[objectKey(item.Kind(), item.ItemID())] = snapshot(item)
	r.saves++

	data := repository.DiffAuditData(before, item.Base().Record())
	if len(data) == 0 {
		return nil
	}
	return r.audit.Append(ctx, nil, &domain.AuditEntry{
		ObjectClass: item.Kind(),
		ObjectID:    item.ItemID(),
		Username:    username,
		Action:      domain.AuditActionUpdate,
		Data:        data,
	})
}

func (r *ItemRepository) GetByID(_ context.Context, kind domain.ItemKind, id string) (domain.TrackableItem, error) {
	r.mu.Lock()
	stored, ok := r.items[objectKey(kind, id)]
	r.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return stored.load(kind)
}

func (r *ItemRepository) List(_ context.Context, filter repository.ItemFilter) ([]domain.TrackableItem, error) {
	r.mu.Lock()
	matched := make([]storedItem, 0, len(r.items))
	prefix := string(filter.Kind) + "/"
	for key, stored := range r.items {
		if strings.HasPrefix(key, prefix) && matches(stored.rec, filter) {
			matched = append(matched, stored)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].rec.UpdatedAt.Equal(matched[j].rec.UpdatedAt) {
			return matched[i].rec.UpdatedAt.After(matched[j].rec.UpdatedAt)
		}
		return matched[i].rec.ID < matched[j].rec.ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]domain.TrackableItem, 0, end-offset)
	for _, stored := range matched[offset:end] {
		item, err := stored.load(filter.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Saves reports how many updates were written.
func (r *ItemRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func matches(rec domain.TrackableRecord, filter repository.ItemFilter) bool {
	if filter.TrackerID != nil && rec.TrackerID != *filter.TrackerID {
		return false
	}
	if filter.ResponsibleID != nil && rec.ResponsiblePersonID != *filter.ResponsibleID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(rec.Status, filter.Statuses) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsString(rec.Priority, filter.Priorities) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" && !strings.Contains(strings.ToLower(rec.Title), term) &&
			!strings.Contains(strings.ToLower(rec.Description), term) {
			return false
		}
	}
	return true
}

func containsString[T ~string](value string, set []T) bool {
	for _, v := range set {
		if string(v) == value {
			return true
		}
	}
	return false
}

func kindOf(item domain.TrackableItem) (domain.ItemKind, error) {
	switch item.(type) {
	case *domain.Bug:
		return domain.KindBug, nil
	case *domain.BugReport:
		return domain.KindBugReport, nil
	}
	return "", fmt.Errorf("%w: %T", domain.ErrInvalidKind, item)
}

func snapshot(item domain.TrackableItem) storedItem {
	s := storedItem{rec: item.Base().Record()}
	if r, ok := item.(*domain.BugReport); ok {
		s.report = &domain.BugReport{
			Browsers:    append([]string(nil), r.Browsers...),
			Resolutions: append([]string(nil), r.Resolutions...),
			Locales:     append([]string(nil), r.Locales...),
		}
	}
	return s
}

func (s storedItem) load(kind domain.ItemKind) (domain.TrackableItem, error) {
	base, err := domain.LoadTrackable(s.rec)
	if err != nil {
		return nil, err
	}
	if kind == domain.KindBugReport && s.report != nil {
		return &domain.BugReport{
			Trackable:   base,
			Browsers:    append([]string(nil), s.report.Browsers...),
			Resolutions: append([]string(nil), s.report.Resolutions...),
			Locales:     append([]string(nil), s.report.Locales...),
		}, nil
	}
	return &domain.Bug{Trackable: base}, nil
}
