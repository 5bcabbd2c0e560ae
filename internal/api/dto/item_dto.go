package dto

import (
	"time"

	"github.com/spec-kit/bug-tracker/internal/audit"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/workflow"
)

// CreateItemRequest payload for bugs and bug reports. Environment lists apply to bug reports only.
type CreateItemRequest struct {
	TrackerID           string   `json:"tracker_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Priority            string   `json:"priority"`
	ResponsiblePersonID string   `json:"responsible_person_id"`
	Browsers            []string `json:"browsers"`
	Resolutions         []string `json:"resolutions"`
	Locales             []string `json:"locales"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority string `json:"priority"`
}

// ChangeResponsibleRequest payload. An empty id unassigns the item.
type ChangeResponsibleRequest struct {
	ResponsiblePersonID string `json:"responsible_person_id"`
}

// ItemResponse is the shared representation of bugs and bug reports.
type ItemResponse struct {
	ID                  string          `json:"id"`
	Kind                domain.ItemKind `json:"kind"`
	TrackerID           string          `json:"tracker_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Status              domain.Status   `json:"status"`
	Priority            domain.Priority `json:"priority"`
	IsActive            bool            `json:"is_active"`
	AuthorID            string          `json:"author_id"`
	ResponsiblePersonID string          `json:"responsible_person_id,omitempty"`
	Browsers            []string        `json:"browsers,omitempty"`
	Resolutions         []string        `json:"resolutions,omitempty"`
	Locales             []string        `json:"locales,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// NewItemResponse maps an item.
func NewItemResponse(item domain.TrackableItem) ItemResponse {
	base := item.Base()
	resp := ItemResponse{
		ID:                  item.ItemID(),
		Kind:                item.Kind(),
		TrackerID:           base.TrackerID,
		Title:               base.Title,
		Description:         base.Description,
		Status:              item.Status(),
		Priority:            base.Priority,
		IsActive:            item.IsActive(),
		AuthorID:            item.AuthorID(),
		ResponsiblePersonID: item.ResponsiblePerson(),
		CreatedAt:           base.CreatedAt,
		UpdatedAt:           base.UpdatedAt,
	}
	if report, ok := item.(*domain.BugReport); ok {
		resp.Browsers = report.Browsers
		resp.Resolutions = report.Resolutions
		resp.Locales = report.Locales
	}
	return resp
}

// TransitionsResponse lists the actions available to the caller.
type TransitionsResponse struct {
	Transitions []workflow.Transition `json:"transitions"`
}

// HistoryActor identifies who wrote an entry. User is absent when the account was removed.
type HistoryActor struct {
	Username string        `json:"username"`
	User     *UserResponse `json:"user,omitempty"`
}

// HistoryEntryResponse is one resolved audit entry.
type HistoryEntryResponse struct {
	Version  int                `json:"version"`
	Action   domain.AuditAction `json:"action"`
	LoggedAt time.Time          `json:"logged_at"`
	Actor    HistoryActor       `json:"actor"`
	Data     map[string]any     `json:"data"`
}

// NewHistoryEntryResponse maps an entry, rendering resolved users as public views.
func NewHistoryEntryResponse(e audit.Entry) HistoryEntryResponse {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		if u, ok := v.(*domain.User); ok {
			data[k] = NewUserResponse(u)
			continue
		}
		data[k] = v
	}
	return HistoryEntryResponse{
		Version:  e.Version,
		Action:   e.Action,
		LoggedAt: e.LoggedAt,
		Actor:    HistoryActor{Username: e.Actor.Username, User: NewUserResponse(e.Actor.User)},
		Data:     data,
	}
}
