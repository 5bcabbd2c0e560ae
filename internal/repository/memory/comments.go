package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// CommentRepository keeps comments in insertion order.
type CommentRepository struct {
	mu       sync.RWMutex
	comments map[string]domain.Comment
	order    []string
}

// NewCommentRepository builds an empty store.
func NewCommentRepository() *CommentRepository {
	return &CommentRepository{comments: map[string]domain.Comment{}}
}

func (r *CommentRepository) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	r.comments[comment.ID] = *comment
	r.order = append(r.order, comment.ID)
	return nil
}

func (r *CommentRepository) Update(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[comment.ID]; !ok {
		return pgx.ErrNoRows
	}
	comment.UpdatedAt = time.Now()
	r.comments[comment.ID] = *comment
	return nil
}

func (r *CommentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.comments, id)
	return nil
}

func (r *CommentRepository) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (r *CommentRepository) ListByItem(_ context.Context, kind domain.ItemKind, itemID string) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Comment
	for _, id := range r.order {
		if c, ok := r.comments[id]; ok && c.ItemKind == kind && c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out, nil
}
