package dto

import (
	"time"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// CommentRequest payload for adding or editing a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse represents one comment.
type CommentResponse struct {
	ID        string          `json:"id"`
	ItemKind  domain.ItemKind `json:"item_kind"`
	ItemID    string          `json:"item_id"`
	AuthorID  string          `json:"author_id"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		ItemKind:  c.ItemKind,
		ItemID:    c.ItemID,
		AuthorID:  c.AuthorID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
