package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// AuditRepository stores the append-only change history of trackable items.
type AuditRepository interface {
	Append(ctx context.Context, db DBTX, entry *domain.AuditEntry) error
	ListByObject(ctx context.Context, class domain.ItemKind, objectID string) ([]domain.AuditEntry, error)
	EntryAt(ctx context.Context, class domain.ItemKind, objectID string, offset int) (*domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

// Append writes entry with the next version for its object. Run it inside the
// transaction that wrote the item so the version sequence stays gapless.
func (r *auditRepository) Append(ctx context.Context, db DBTX, entry *domain.AuditEntry) error {
	if db == nil {
		db = r.pool
	}
	const query = `
        INSERT INTO audit_entries (object_class, object_id, version, username, action, data)
        SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5
        FROM audit_entries WHERE object_class=$1 AND object_id=$2
        RETURNING id, version, logged_at`
	data := entry.Data
	if data == nil {
		data = map[string]any{}
	}
	return db.QueryRow(ctx, query,
		string(entry.ObjectClass),
		entry.ObjectID,
		nullable(entry.Username),
		string(entry.Action),
		data,
	).Scan(&entry.ID, &entry.Version, &entry.LoggedAt)
}

func (r *auditRepository) ListByObject(ctx context.Context, class domain.ItemKind, objectID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, object_class, object_id, version, logged_at, username, action, data
        FROM audit_entries WHERE object_class=$1 AND object_id=$2 ORDER BY version ASC`
	rows, err := r.pool.Query(ctx, query, string(class), objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

// EntryAt returns the entry offset positions back from the newest one, or pgx.ErrNoRows.
func (r *auditRepository) EntryAt(ctx context.Context, class domain.ItemKind, objectID string, offset int) (*domain.AuditEntry, error) {
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, object_class, object_id, version, logged_at, username, action, data
        FROM audit_entries WHERE object_class=$1 AND object_id=$2
        ORDER BY version DESC LIMIT 1 OFFSET $3`
	return scanAuditEntry(r.pool.QueryRow(ctx, query, string(class), objectID, offset))
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var (
		entry    domain.AuditEntry
		class    string
		action   string
		username *string
	)
	if err := row.Scan(
		&entry.ID,
		&class,
		&entry.ObjectID,
		&entry.Version,
		&entry.LoggedAt,
		&username,
		&action,
		&entry.Data,
	); err != nil {
		return nil, err
	}
	entry.ObjectClass = domain.ItemKind(class)
	entry.Action = domain.AuditAction(action)
	entry.Username = deref(username)
	return &entry, nil
}
