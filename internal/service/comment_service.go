package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/events"
	"github.com/spec-kit/bug-tracker/internal/repository"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

const maxCommentLength = 10000

// CommentService manages comment threads. Only a comment's author may edit or delete it.
type CommentService struct {
	comments   repository.CommentRepository
	items      repository.ItemRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	ItemRepo    repository.ItemRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		comments:   deps.CommentRepo,
		items:      deps.ItemRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Add posts a comment on an existing item.
func (s *CommentService) Add(ctx context.Context, actor *domain.User, kind domain.ItemKind, itemID, text string) (*domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	text, err := validCommentText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.GetByID(ctx, kind, itemID); err != nil {
		return nil, notFoundOr(err, string(kind), itemID)
	}

	comment := &domain.Comment{ItemKind: kind, ItemID: itemID, AuthorID: actor.ID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventCommentAdded, kind, itemID, actor, events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			BodyPreview: stringPreview(text, 140),
		}))
	}
	return comment, nil
}

// List returns an item's comments oldest first.
func (s *CommentService) List(ctx context.Context, kind domain.ItemKind, itemID string) ([]domain.Comment, error) {
	if _, err := s.items.GetByID(ctx, kind, itemID); err != nil {
		return nil, notFoundOr(err, string(kind), itemID)
	}
	comments, err := s.comments.ListByItem(ctx, kind, itemID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// Edit replaces the text of actor's own comment.
func (s *CommentService) Edit(ctx context.Context, actor *domain.User, commentID, text string) (*domain.Comment, error) {
	text, err := validCommentText(text)
	if err != nil {
		return nil, err
	}
	comment, err := s.ownComment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	comment.Text = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	return comment, nil
}

// Delete removes actor's own comment.
func (s *CommentService) Delete(ctx context.Context, actor *domain.User, commentID string) error {
	if _, err := s.ownComment(ctx, actor, commentID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, "comment", commentID)
	}
	s.logger.Info("comment deleted", zap.String("comment_id", commentID), zap.String("actor", usernameOf(actor)))
	return nil
}

func (s *CommentService) ownComment(ctx context.Context, actor *domain.User, commentID string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	if !actor.Is(comment.AuthorID) {
		return nil, apperrors.NewForbidden("only the author can change a comment")
	}
	return comment, nil
}

func validCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewValidationError("comment text is required", map[string]any{"field": "text"})
	}
	if len(text) > maxCommentLength {
		return "", apperrors.NewValidationError("comment text is too long", map[string]any{"max": maxCommentLength})
	}
	return text, nil
}
