package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// TrackerRepository resolves the trackers items are filed against.
type TrackerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tracker, error)
}

type trackerRepository struct {
	pool *pgxpool.Pool
}

// NewTrackerRepository builds repository.
func NewTrackerRepository(pool *pgxpool.Pool) TrackerRepository {
	return &trackerRepository{pool: pool}
}

func (r *trackerRepository) GetByID(ctx context.Context, id string) (*domain.Tracker, error) {
	const query = `
        SELECT t.id, t.project_id, t.title, t.is_active, t.starts_at, t.ends_at, t.created_at,
               ARRAY(SELECT d.user_id::text FROM tracker_developers d WHERE d.tracker_id = t.id ORDER BY d.user_id)
        FROM trackers t WHERE t.id=$1`

	var (
		tracker   domain.Tracker
		projectID *string
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&tracker.ID,
		&projectID,
		&tracker.Title,
		&tracker.IsActive,
		&tracker.StartsAt,
		&tracker.EndsAt,
		&tracker.CreatedAt,
		&tracker.DeveloperIDs,
	); err != nil {
		return nil, err
	}
	tracker.ProjectID = deref(projectID)
	return &tracker, nil
}
