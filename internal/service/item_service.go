package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/audit"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/events"
	"github.com/spec-kit/bug-tracker/internal/observability"
	"github.com/spec-kit/bug-tracker/internal/repository"
	"github.com/spec-kit/bug-tracker/internal/workflow"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// Transition outcomes recorded in metrics.
const (
	outcomeApplied = "applied"
	outcomeDenied  = "denied"
	outcomeFailed  = "failed"
)

// UserLookup resolves accounts referenced by items.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ItemService coordinates bug and bug report workflows.
type ItemService struct {
	items      repository.ItemRepository
	trackers   repository.TrackerRepository
	users      UserLookup
	engine     *workflow.Engine
	undo       *workflow.UndoCoordinator
	history    *audit.Log
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ItemDependencies bundles collaborators for the item service.
type ItemDependencies struct {
	ItemRepo    repository.ItemRepository
	TrackerRepo repository.TrackerRepository
	Users       UserLookup
	Engine      *workflow.Engine
	Undo        *workflow.UndoCoordinator
	History     *audit.Log
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ItemCreateInput describes bug and bug report creation payload.
type ItemCreateInput struct {
	TrackerID           string
	Title               string
	Description         string
	Priority            string
	ResponsiblePersonID string
	Browsers            []string
	Resolutions         []string
	Locales             []string
}

// ItemListFilter describes listing filters.
type ItemListFilter struct {
	TrackerID     *string
	ResponsibleID *string
	Statuses      []domain.Status
	Priorities    []domain.Priority
	SearchTerm    *string
	Limit         int
	Offset        int
}

// NewItemService constructs the service.
func NewItemService(deps ItemDependencies) *ItemService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = workflow.NewEngine(nil, logger)
	}
	return &ItemService{
		items:      deps.ItemRepo,
		trackers:   deps.TrackerRepo,
		users:      deps.Users,
		engine:     engine,
		undo:       deps.Undo,
		history:    deps.History,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Create files a new bug or bug report in the new status. Only QA files items.
func (s *ItemService) Create(ctx context.Context, actor *domain.User, kind domain.ItemKind, input ItemCreateInput) (domain.TrackableItem, error) {
	if err := requireQA(actor, "only QA can file bugs and bug reports"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := domain.PriorityNormal
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		p, err := domain.ParsePriority(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		priority = p
	}

	tracker, err := s.trackers.GetByID(ctx, input.TrackerID)
	if err != nil {
		return nil, notFoundOr(err, "tracker", input.TrackerID)
	}
	if err := s.ensureDeveloper(ctx, tracker, input.ResponsiblePersonID); err != nil {
		return nil, err
	}

	var item domain.TrackableItem
	switch kind {
	case domain.KindBug:
		item = domain.NewBug(actor.ID, input.TrackerID, input.ResponsiblePersonID, title, strings.TrimSpace(input.Description), priority)
	case domain.KindBugReport:
		report := domain.NewBugReport(actor.ID, input.TrackerID, input.ResponsiblePersonID, title, strings.TrimSpace(input.Description), priority)
		report.Browsers = input.Browsers
		report.Resolutions = input.Resolutions
		report.Locales = input.Locales
		item = report
	default:
		return nil, apperrors.NewValidationError("unknown item kind", map[string]any{"kind": string(kind)})
	}

	if err := s.items.Create(ctx, item, actor.Username); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("item created",
		zap.String("kind", string(kind)),
		zap.String("item_id", item.ItemID()),
		zap.String("actor", actor.Username))
	s.publishEvent(ctx, events.NewEvent(events.EventItemCreated, kind, item.ItemID(), actor, events.ItemCreatedPayload{
		TrackerID:           input.TrackerID,
		Title:               title,
		Priority:            priority,
		ResponsiblePersonID: input.ResponsiblePersonID,
	}))
	return item, nil
}

// Get loads one item.
func (s *ItemService) Get(ctx context.Context, kind domain.ItemKind, id string) (domain.TrackableItem, error) {
	item, err := s.items.GetByID(ctx, kind, id)
	if err != nil {
		return nil, notFoundOr(err, string(kind), id)
	}
	return item, nil
}

// List returns a page of items of one kind.
func (s *ItemService) List(ctx context.Context, kind domain.ItemKind, filter ItemListFilter) ([]domain.TrackableItem, error) {
	items, err := s.items.List(ctx, repository.ItemFilter{
		Kind:          kind,
		TrackerID:     filter.TrackerID,
		ResponsibleID: filter.ResponsibleID,
		Statuses:      filter.Statuses,
		Priorities:    filter.Priorities,
		SearchTerm:    filter.SearchTerm,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// Transition runs a guarded status transition. The guard sees the item as locked for the
// write, so a concurrent change cannot slip between the check and the update.
func (s *ItemService) Transition(ctx context.Context, actor *domain.User, kind domain.ItemKind, id string, transition workflow.Transition) (domain.TrackableItem, error) {
	var oldStatus domain.Status
	item, err := s.items.Update(ctx, kind, id, usernameOf(actor), func(item domain.TrackableItem) error {
		oldStatus = item.Status()
		return s.engine.Apply(transition, actor, item)
	})
	if err != nil {
		s.recordFailure(kind, transition, err)
		return nil, notFoundOr(err, string(kind), id)
	}
	s.metrics.RecordTransition(string(kind), string(transition), outcomeApplied)

	s.logger.Info("item status changed",
		zap.String("kind", string(kind)),
		zap.String("item_id", id),
		zap.String("transition", string(transition)),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(item.Status())),
		zap.String("actor", usernameOf(actor)))
	s.publishEvent(ctx, events.NewEvent(events.EventItemStatusChanged, kind, id, actor, events.ItemStatusChangedPayload{
		Transition: string(transition),
		OldStatus:  oldStatus,
		NewStatus:  item.Status(),
	}))
	return item, nil
}

// UndoStatusChange restores the status recorded in history for the actor who made the change.
func (s *ItemService) UndoStatusChange(ctx context.Context, actor *domain.User, kind domain.ItemKind, id string) (domain.TrackableItem, error) {
	if s.undo == nil {
		return nil, apperrors.NewForbidden("undo is not available")
	}

	var (
		oldStatus domain.Status
		entry     *domain.AuditEntry
	)
	item, err := s.items.Update(ctx, kind, id, usernameOf(actor), func(item domain.TrackableItem) error {
		oldStatus = item.Status()
		var err error
		entry, err = s.undo.Undo(ctx, actor, item)
		return err
	})
	if err != nil {
		s.recordFailure(kind, workflow.TransitionUndo, err)
		return nil, notFoundOr(err, string(kind), id)
	}
	s.metrics.RecordTransition(string(kind), string(workflow.TransitionUndo), outcomeApplied)

	s.logger.Info("item status change undone",
		zap.String("kind", string(kind)),
		zap.String("item_id", id),
		zap.Int("entry_version", entry.Version),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(item.Status())),
		zap.String("actor", usernameOf(actor)))
	s.publishEvent(ctx, events.NewEvent(events.EventItemStatusUndone, kind, id, actor, events.ItemStatusChangedPayload{
		Transition: string(workflow.TransitionUndo),
		OldStatus:  oldStatus,
		NewStatus:  item.Status(),
	}))
	return item, nil
}

// recordFailure counts a transition that did not apply. Missing items are not counted.
func (s *ItemService) recordFailure(kind domain.ItemKind, transition workflow.Transition, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return
	}
	outcome := outcomeFailed
	if apperrors.HasCode(err, apperrors.CodeForbidden) {
		outcome = outcomeDenied
	}
	s.metrics.RecordTransition(string(kind), string(transition), outcome)
}

// AvailableTransitions lists what actor may run on the item now.
func (s *ItemService) AvailableTransitions(ctx context.Context, actor *domain.User, kind domain.ItemKind, id string) ([]workflow.Transition, error) {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Available(actor, item), nil
}

// History returns the item's audit trail oldest first with user references resolved.
func (s *ItemService) History(ctx context.Context, kind domain.ItemKind, id string) ([]audit.Entry, error) {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	entries, err := s.history.Adapt(ctx, item)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ChangePriority sets a new priority. Only QA may change it; the workflow guards do not apply.
func (s *ItemService) ChangePriority(ctx context.Context, actor *domain.User, kind domain.ItemKind, id, rawPriority string) (domain.TrackableItem, error) {
	if err := requireQA(actor, "only QA can change priority"); err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(strings.TrimSpace(rawPriority))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": rawPriority})
	}
	item, err := s.items.Update(ctx, kind, id, usernameOf(actor), func(item domain.TrackableItem) error {
		return item.Base().ChangePriority(priority)
	})
	if err != nil {
		return nil, notFoundOr(err, string(kind), id)
	}
	return item, nil
}

// ChangeResponsiblePerson reassigns the item to a developer enrolled on its tracker. Only QA may
// reassign. An empty userID unassigns the item.
func (s *ItemService) ChangeResponsiblePerson(ctx context.Context, actor *domain.User, kind domain.ItemKind, id, userID string) (domain.TrackableItem, error) {
	if err := requireQA(actor, "only QA can change the responsible person"); err != nil {
		return nil, err
	}
	item, err := s.items.Update(ctx, kind, id, usernameOf(actor), func(item domain.TrackableItem) error {
		if item.ResponsiblePerson() == userID {
			return nil
		}
		tracker, err := s.trackers.GetByID(ctx, item.Base().TrackerID)
		if err != nil {
			return notFoundOr(err, "tracker", item.Base().TrackerID)
		}
		if err := s.ensureDeveloper(ctx, tracker, userID); err != nil {
			return err
		}
		item.Base().ChangeResponsiblePerson(userID)
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, string(kind), id)
	}
	return item, nil
}

// ensureDeveloper checks that userID names a developer enrolled on tracker. Any failure is
// reported as a missing developer.
func (s *ItemService) ensureDeveloper(ctx context.Context, tracker *domain.Tracker, userID string) error {
	if userID == "" || s.users == nil {
		return nil
	}
	details := map[string]any{"user_id": userID, "tracker_id": tracker.ID}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("developer", details)
		}
		return apperrors.MapError(err)
	}
	if !user.HasRole(domain.RoleDeveloper) || !tracker.HasDeveloper(user.ID) {
		return apperrors.NewNotFound("developer", details)
	}
	return nil
}

func requireQA(actor *domain.User, message string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.HasRole(domain.RoleQA) {
		return apperrors.NewForbidden(message)
	}
	return nil
}

func (s *ItemService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func usernameOf(user *domain.User) string {
	if user == nil {
		return ""
	}
	return user.Username
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
