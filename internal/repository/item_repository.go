package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/persistence"
)

// ItemFilter captures list parameters for bugs and bug reports.
type ItemFilter struct {
	Kind          domain.ItemKind
	TrackerID     *string
	ResponsibleID *string
	Statuses      []domain.Status
	Priorities    []domain.Priority
	SearchTerm    *string
	Limit         int
	Offset        int
}

// ItemMutation inspects and changes an item while its row is locked. A returned error
// aborts the write and is passed back to the caller unchanged.
type ItemMutation func(item domain.TrackableItem) error

// ItemRepository persists bugs and bug reports. Every write appends one audit entry
// for the changed fields within the same transaction.
type ItemRepository interface {
	Create(ctx context.Context, item domain.TrackableItem, username string) error
	Save(ctx context.Context, item domain.TrackableItem, username string) error
	// Update loads the item under a row lock, applies mutate and persists the result in one
	// transaction. Nothing is written when mutate leaves every versioned field unchanged.
	Update(ctx context.Context, kind domain.ItemKind, id, username string, mutate ItemMutation) (domain.TrackableItem, error)
	GetByID(ctx context.Context, kind domain.ItemKind, id string) (domain.TrackableItem, error)
	List(ctx context.Context, filter ItemFilter) ([]domain.TrackableItem, error)
}

type itemRepository struct {
	pool  *pgxpool.Pool
	audit AuditRepository
}

// NewItemRepository instantiates repository.
func NewItemRepository(pool *pgxpool.Pool, audit AuditRepository) ItemRepository {
	return &itemRepository{pool: pool, audit: audit}
}

const trackableColumns = `id, tracker_id, title, description, status, priority, author_id,
               responsible_person_id, created_at, updated_at`

func tableFor(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.KindBug:
		return "bugs", nil
	case domain.KindBugReport:
		return "bug_reports", nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
}

func columnsFor(kind domain.ItemKind) string {
	if kind == domain.KindBugReport {
		return trackableColumns + ", browsers, resolutions, locales"
	}
	return trackableColumns
}

func (r *itemRepository) Create(ctx context.Context, item domain.TrackableItem, username string) error {
	rec := item.Base().Record()
	return persistence.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		switch it := item.(type) {
		case *domain.Bug:
			const query = `
                INSERT INTO bugs (tracker_id, title, description, status, priority, author_id, responsible_person_id)
                VALUES ($1,$2,$3,$4,$5,$6,$7)
                RETURNING id, created_at, updated_at`
			err = tx.QueryRow(ctx, query,
				rec.TrackerID, rec.Title, rec.Description, rec.Status, rec.Priority,
				rec.AuthorID, nullable(rec.ResponsiblePersonID),
			).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
		case *domain.BugReport:
			const query = `
                INSERT INTO bug_reports (tracker_id, title, description, status, priority, author_id,
                    responsible_person_id, browsers, resolutions, locales)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
                RETURNING id, created_at, updated_at`
			err = tx.QueryRow(ctx, query,
				rec.TrackerID, rec.Title, rec.Description, rec.Status, rec.Priority,
				rec.AuthorID, nullable(rec.ResponsiblePersonID),
				nonNil(it.Browsers), nonNil(it.Resolutions), nonNil(it.Locales),
			).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
		default:
			return fmt.Errorf("%w: %T", domain.ErrInvalidKind, item)
		}
		if err != nil {
			return err
		}

		return r.audit.Append(ctx, tx, &domain.AuditEntry{
			ObjectClass: item.Kind(),
			ObjectID:    item.ItemID(),
			Username:    username,
			Action:      domain.AuditActionCreate,
			Data:        CreateAuditData(item.Base().Record()),
		})
	})
}

func (r *itemRepository) Save(ctx context.Context, item domain.TrackableItem, username string) error {
	table, err := tableFor(item.Kind())
	if err != nil {
		return err
	}

	return persistence.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1 FOR UPDATE`, trackableColumns, table)
		before, err := scanRecord(tx.QueryRow(ctx, lockQuery, item.ItemID()))
		if err != nil {
			return err
		}
		if err := r.write(ctx, tx, item); err != nil {
			return err
		}
		return r.appendDiff(ctx, tx, item, before, username)
	})
}

func (r *itemRepository) Update(ctx context.Context, kind domain.ItemKind, id, username string, mutate ItemMutation) (domain.TrackableItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var item domain.TrackableItem
	err = persistence.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lockQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1 FOR UPDATE`, columnsFor(kind), table)
		locked, err := scanItem(kind, tx.QueryRow(ctx, lockQuery, id))
		if err != nil {
			return err
		}
		before := locked.Base().Record()
		if err := mutate(locked); err != nil {
			return err
		}
		item = locked
		if len(DiffAuditData(before, locked.Base().Record())) == 0 {
			return nil
		}
		if err := r.write(ctx, tx, locked); err != nil {
			return err
		}
		return r.appendDiff(ctx, tx, locked, before, username)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) write(ctx context.Context, tx pgx.Tx, item domain.TrackableItem) error {
	after := item.Base().Record()
	var (
		tag pgconn.CommandTag
		err error
	)
	switch it := item.(type) {
	case *domain.Bug:
		const query = `
                UPDATE bugs SET title=$1, description=$2, status=$3, priority=$4,
                    responsible_person_id=$5, updated_at=NOW()
                WHERE id=$6`
		tag, err = tx.Exec(ctx, query,
			after.Title, after.Description, after.Status, after.Priority,
			nullable(after.ResponsiblePersonID), after.ID)
	case *domain.BugReport:
		const query = `
                UPDATE bug_reports SET title=$1, description=$2, status=$3, priority=$4,
                    responsible_person_id=$5, browsers=$6, resolutions=$7, locales=$8, updated_at=NOW()
                WHERE id=$9`
		tag, err = tx.Exec(ctx, query,
			after.Title, after.Description, after.Status, after.Priority,
			nullable(after.ResponsiblePersonID),
			nonNil(it.Browsers), nonNil(it.Resolutions), nonNil(it.Locales), after.ID)
	default:
		return fmt.Errorf("%w: %T", domain.ErrInvalidKind, item)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *itemRepository) appendDiff(ctx context.Context, tx pgx.Tx, item domain.TrackableItem, before domain.TrackableRecord, username string) error {
	data := DiffAuditData(before, item.Base().Record())
	if len(data) == 0 {
		return nil
	}
	return r.audit.Append(ctx, tx, &domain.AuditEntry{
		ObjectClass: item.Kind(),
		ObjectID:    item.ItemID(),
		Username:    username,
		Action:      domain.AuditActionUpdate,
		Data:        data,
	})
}

func (r *itemRepository) GetByID(ctx context.Context, kind domain.ItemKind, id string) (domain.TrackableItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, columnsFor(kind), table)
	return scanItem(kind, r.pool.QueryRow(ctx, query, id))
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter) ([]domain.TrackableItem, error) {
	table, err := tableFor(filter.Kind)
	if err != nil {
		return nil, err
	}

	clauses := []string{"1=1"}
	args := []any{}
	if filter.TrackerID != nil {
		args = append(args, *filter.TrackerID)
		clauses = append(clauses, fmt.Sprintf("tracker_id=$%d", len(args)))
	}
	if filter.ResponsibleID != nil {
		args = append(args, *filter.ResponsibleID)
		clauses = append(clauses, fmt.Sprintf("responsible_person_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, string(pr))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		columnsFor(filter.Kind), table, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TrackableItem
	for rows.Next() {
		item, err := scanItem(filter.Kind, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func scanRecord(row pgx.Row, extra ...any) (domain.TrackableRecord, error) {
	var (
		rec         domain.TrackableRecord
		responsible *string
	)
	dest := []any{
		&rec.ID,
		&rec.TrackerID,
		&rec.Title,
		&rec.Description,
		&rec.Status,
		&rec.Priority,
		&rec.AuthorID,
		&responsible,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.TrackableRecord{}, err
	}
	rec.ResponsiblePersonID = deref(responsible)
	return rec, nil
}

func scanItem(kind domain.ItemKind, row pgx.Row) (domain.TrackableItem, error) {
	var browsers, resolutions, locales []string
	var extra []any
	if kind == domain.KindBugReport {
		extra = []any{&browsers, &resolutions, &locales}
	}

	rec, err := scanRecord(row, extra...)
	if err != nil {
		return nil, err
	}
	base, err := domain.LoadTrackable(rec)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, rec.ID, err)
	}

	if kind == domain.KindBugReport {
		return &domain.BugReport{Trackable: base, Browsers: browsers, Resolutions: resolutions, Locales: locales}, nil
	}
	return &domain.Bug{Trackable: base}, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func userRef(id string) any {
	if id == "" {
		return nil
	}
	return map[string]any{"id": id}
}

// CreateAuditData lists every versioned field of a newly created item.
func CreateAuditData(rec domain.TrackableRecord) map[string]any {
	return map[string]any{
		domain.FieldTitle:             rec.Title,
		domain.FieldDescription:       rec.Description,
		domain.FieldStatus:            rec.Status,
		domain.FieldPriority:          rec.Priority,
		domain.FieldAuthor:            userRef(rec.AuthorID),
		domain.FieldResponsiblePerson: userRef(rec.ResponsiblePersonID),
	}
}

// DiffAuditData returns the versioned fields whose values differ, keyed by field
// name and holding the new value. An empty map means nothing worth recording changed.
func DiffAuditData(before, after domain.TrackableRecord) map[string]any {
	data := map[string]any{}
	if before.Title != after.Title {
		data[domain.FieldTitle] = after.Title
	}
	if before.Description != after.Description {
		data[domain.FieldDescription] = after.Description
	}
	if before.Status != after.Status {
		data[domain.FieldStatus] = after.Status
	}
	if before.Priority != after.Priority {
		data[domain.FieldPriority] = after.Priority
	}
	if before.ResponsiblePersonID != after.ResponsiblePersonID {
		data[domain.FieldResponsiblePerson] = userRef(after.ResponsiblePersonID)
	}
	return data
}
