package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/bug-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventItemCreated       EventType = "item_created"
	EventItemStatusChanged EventType = "item_status_changed"
	EventItemStatusUndone  EventType = "item_status_undone"
	EventCommentAdded      EventType = "comment_added"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ActorFrom builds an Actor for user; nil yields the zero Actor.
func ActorFrom(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	return Actor{UserID: user.ID, Username: user.Username}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	ItemKind  domain.ItemKind `json:"item_kind"`
	ItemID    string          `json:"item_id"`
	Actor     Actor           `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// NewEvent stamps a fresh id and the current time on an event about one item.
func NewEvent(eventType EventType, kind domain.ItemKind, itemID string, actor *domain.User, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ItemKind:  kind,
		ItemID:    itemID,
		Actor:     ActorFrom(actor),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ItemCreatedPayload payload.
type ItemCreatedPayload struct {
	TrackerID           string          `json:"tracker_id"`
	Title               string          `json:"title"`
	Priority            domain.Priority `json:"priority"`
	ResponsiblePersonID string          `json:"responsible_person_id,omitempty"`
}

// ItemStatusChangedPayload payload, also used for undo.
type ItemStatusChangedPayload struct {
	Transition string        `json:"transition"`
	OldStatus  domain.Status `json:"old_status"`
	NewStatus  domain.Status `json:"new_status"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}
