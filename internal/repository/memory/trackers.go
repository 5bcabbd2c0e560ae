package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// TrackerRepository stores trackers by id.
type TrackerRepository struct {
	mu       sync.RWMutex
	trackers map[string]domain.Tracker
}

// NewTrackerRepository builds an empty store.
func NewTrackerRepository() *TrackerRepository {
	return &TrackerRepository{trackers: map[string]domain.Tracker{}}
}

// Add stores tracker, assigning an id when it has none.
func (r *TrackerRepository) Add(tracker domain.Tracker) domain.Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tracker.ID == "" {
		tracker.ID = uuid.NewString()
	}
	if tracker.CreatedAt.IsZero() {
		tracker.CreatedAt = time.Now()
	}
	tracker.DeveloperIDs = append([]string(nil), tracker.DeveloperIDs...)
	r.trackers[tracker.ID] = tracker
	return tracker
}

func (r *TrackerRepository) GetByID(_ context.Context, id string) (*domain.Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trackers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.DeveloperIDs = append([]string(nil), t.DeveloperIDs...)
	return &t, nil
}
