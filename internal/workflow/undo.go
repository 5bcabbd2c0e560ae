package workflow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/domain"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// DefaultUndoOffset skips the newest history entry. The newest entry records the status the
// item is in now, so the entry one step older holds the value to go back to.
const DefaultUndoOffset = 1

// HistoryReader returns the audit entry at offset in newest-first order for an item.
// It returns pgx.ErrNoRows (or a nil entry) when no entry exists at that position.
type HistoryReader interface {
	EntryAt(ctx context.Context, class domain.ItemKind, objectID string, offset int) (*domain.AuditEntry, error)
}

// UndoCoordinator reverts an item's status to a recorded value for the user who made the change.
type UndoCoordinator struct {
	guards  *Registry
	history HistoryReader
	offset  int
	logger  *zap.Logger
}

// NewUndoCoordinator builds a coordinator. A negative offset falls back to DefaultUndoOffset.
func NewUndoCoordinator(guards *Registry, history HistoryReader, offset int, logger *zap.Logger) *UndoCoordinator {
	if guards == nil {
		guards = DefaultRegistry()
	}
	if offset < 0 {
		offset = DefaultUndoOffset
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UndoCoordinator{guards: guards, history: history, offset: offset, logger: logger}
}

// Offset returns the newest-first position consulted by Undo.
func (u *UndoCoordinator) Offset() int {
	return u.offset
}

// Undo restores the status recorded in the selected history entry. The caller persists the item.
func (u *UndoCoordinator) Undo(ctx context.Context, actor *domain.User, item domain.TrackableItem) (*domain.AuditEntry, error) {
	if item == nil {
		return nil, apperrors.NewNotFound("item", nil)
	}
	entry, err := u.history.EntryAt(ctx, item.Kind(), item.ItemID(), u.offset)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if entry == nil {
		return nil, apperrors.NewConflict("unable to undo status change", map[string]any{
			"kind":    item.Kind(),
			"item_id": item.ItemID(),
		})
	}

	if !u.guards.Allows(TransitionUndo, actor, Subject{Item: item, Entry: entry}) {
		u.logger.Debug("undo denied",
			zap.String("kind", string(item.Kind())),
			zap.String("item_id", item.ItemID()),
			zap.Int("version", entry.Version),
			zap.String("changed_by", entry.Username),
			zap.String("actor", usernameOf(actor)))
		return nil, apperrors.NewForbidden("only the user who last changed the status can undo it")
	}

	raw, _ := entry.RecordedStatus()
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return nil, apperrors.NewDataInconsistency("recorded status is not valid", map[string]any{
			"version": entry.Version,
			"status":  entry.Data[domain.FieldStatus],
		})
	}
	if err := item.RestoreStatus(status); err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}
