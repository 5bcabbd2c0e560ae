package audit

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/domain"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// EntryStore reads the append-only history of an item.
type EntryStore interface {
	ListByObject(ctx context.Context, class domain.ItemKind, objectID string) ([]domain.AuditEntry, error)
}

// UserDirectory looks up live accounts. Missing accounts are reported as pgx.ErrNoRows.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// referenceFields hold user ids in recorded data.
var referenceFields = []string{domain.FieldResponsiblePerson, domain.FieldAuthor}

// Actor is the resolved author of an entry. User is nil when the account no longer exists.
type Actor struct {
	User     *domain.User
	Username string
}

// Entry is an audit entry prepared for display.
type Entry struct {
	Action   domain.AuditAction
	LoggedAt time.Time
	ObjectID string
	Version  int
	Data     map[string]any
	Actor    Actor
}

// Log is a read-only view over item history that resolves stored references.
type Log struct {
	entries EntryStore
	users   UserDirectory
	strict  bool
	logger  *zap.Logger
}

// NewLog builds the adapter. strict turns unresolved references into DATA_INCONSISTENCY errors.
func NewLog(entries EntryStore, users UserDirectory, strict bool, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{entries: entries, users: users, strict: strict, logger: logger}
}

// Entries returns the item's history oldest first.
func (l *Log) Entries(ctx context.Context, item domain.TrackableItem) ([]domain.AuditEntry, error) {
	entries, err := l.entries.ListByObject(ctx, item.Kind(), item.ItemID())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// ResolveActor finds the account that wrote entry, falling back to the stored username.
func (l *Log) ResolveActor(ctx context.Context, entry domain.AuditEntry) (Actor, error) {
	return l.resolveActor(ctx, entry.Username, nil)
}

// ResolveFieldReferences replaces stored user ids with live users. With strict set, a reference to a
// missing account fails; otherwise the raw value is kept.
func (l *Log) ResolveFieldReferences(ctx context.Context, data map[string]any, strict bool) (map[string]any, error) {
	return l.resolveFields(ctx, data, strict, nil)
}

// Adapt returns the item's history ready for display. Each distinct user is looked up once.
func (l *Log) Adapt(ctx context.Context, item domain.TrackableItem) ([]Entry, error) {
	entries, err := l.Entries(ctx, item)
	if err != nil {
		return nil, err
	}
	memo := &lookupMemo{byID: map[string]*domain.User{}, byUsername: map[string]*domain.User{}}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		actor, err := l.resolveActor(ctx, e.Username, memo)
		if err != nil {
			return nil, err
		}
		data, err := l.resolveFields(ctx, e.Data, l.strict, memo)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Action:   e.Action,
			LoggedAt: e.LoggedAt,
			ObjectID: e.ObjectID,
			Version:  e.Version,
			Data:     data,
			Actor:    actor,
		})
	}
	return out, nil
}

// lookupMemo caches lookups within one Adapt call. A nil value records a missing account.
type lookupMemo struct {
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

func (l *Log) resolveActor(ctx context.Context, username string, memo *lookupMemo) (Actor, error) {
	actor := Actor{Username: username}
	if username == "" {
		return actor, nil
	}
	if memo != nil {
		if user, ok := memo.byUsername[username]; ok {
			actor.User = user
			return actor, nil
		}
	}
	user, err := l.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		user = nil
	case err != nil:
		return Actor{}, err
	}
	if memo != nil {
		memo.byUsername[username] = user
	}
	actor.User = user
	return actor, nil
}

func (l *Log) resolveFields(ctx context.Context, data map[string]any, strict bool, memo *lookupMemo) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, field := range referenceFields {
		raw, ok := out[field]
		if !ok || raw == nil {
			continue
		}
		id, ok := referenceID(raw)
		if !ok {
			continue
		}
		user, err := l.lookupID(ctx, id, memo)
		if err != nil {
			return nil, err
		}
		if user == nil {
			if strict {
				return nil, apperrors.NewDataInconsistency("referenced user no longer exists", map[string]any{
					"field": field,
					"id":    id,
				})
			}
			l.logger.Debug("unresolved audit reference", zap.String("field", field), zap.String("id", id))
			continue
		}
		out[field] = user
	}
	return out, nil
}

func (l *Log) lookupID(ctx context.Context, id string, memo *lookupMemo) (*domain.User, error) {
	if memo != nil {
		if user, ok := memo.byID[id]; ok {
			return user, nil
		}
	}
	user, err := l.users.GetByID(ctx, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		user = nil
	case err != nil:
		return nil, err
	}
	if memo != nil {
		memo.byID[id] = user
	}
	return user, nil
}

// referenceID accepts a bare id or an embedded {"id": ...} object.
func referenceID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		id, ok := v["id"].(string)
		return id, ok && id != ""
	}
	return "", false
}
