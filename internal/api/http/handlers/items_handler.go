package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bug-tracker/internal/api/dto"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/service"
	"github.com/spec-kit/bug-tracker/internal/workflow"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// ItemsHandler serves bug and bug report endpoints. Each method is bound to one item kind.
type ItemsHandler struct {
	service *service.ItemService
}

// NewItemsHandler constructs handler.
func NewItemsHandler(itemService *service.ItemService) *ItemsHandler {
	return &ItemsHandler{service: itemService}
}

// Create POST /{kind}.
func (h *ItemsHandler) Create(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.CreateItemRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		if req.TrackerID == "" || strings.TrimSpace(req.Title) == "" {
			return apperrors.NewValidationError("tracker_id and title required", nil)
		}

		item, err := h.service.Create(c.UserContext(), auth.UserFromContext(c), kind, service.ItemCreateInput{
			TrackerID:           req.TrackerID,
			Title:               req.Title,
			Description:         req.Description,
			Priority:            req.Priority,
			ResponsiblePersonID: req.ResponsiblePersonID,
			Browsers:            req.Browsers,
			Resolutions:         req.Resolutions,
			Locales:             req.Locales,
		})
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

// List GET /{kind}.
func (h *ItemsHandler) List(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter, err := parseItemQuery(c)
		if err != nil {
			return err
		}
		items, err := h.service.List(c.UserContext(), kind, filter)
		if err != nil {
			return err
		}
		out := make([]dto.ItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, dto.NewItemResponse(item))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// Get GET /{kind}/:id.
func (h *ItemsHandler) Get(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := h.service.Get(c.UserContext(), kind, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

// Transition PATCH /{kind}/:id/:transition.
func (h *ItemsHandler) Transition(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		transition, err := workflow.ParseTransition(c.Params("transition"))
		if err != nil {
			return apperrors.NewNotFound("transition", map[string]any{"transition": c.Params("transition")})
		}
		item, err := h.service.Transition(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"), transition)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

// UndoStatusChange PATCH /bug_reports/:id/undo_status_change.
func (h *ItemsHandler) UndoStatusChange(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := h.service.UndoStatusChange(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

// Transitions GET /{kind}/:id/transitions.
func (h *ItemsHandler) Transitions(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		available, err := h.service.AvailableTransitions(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.TransitionsResponse{Transitions: available}})
	}
}

// History GET /{kind}/:id/history.
func (h *ItemsHandler) History(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := h.service.History(c.UserContext(), kind, c.Params("id"))
		if err != nil {
			return err
		}
		out := make([]dto.HistoryEntryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, dto.NewHistoryEntryResponse(e))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// ChangePriority PATCH /{kind}/:id/priority.
func (h *ItemsHandler) ChangePriority(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.ChangePriorityRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		item, err := h.service.ChangePriority(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"), req.Priority)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

// ChangeResponsiblePerson PATCH /{kind}/:id/responsible_person.
func (h *ItemsHandler) ChangeResponsiblePerson(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.ChangeResponsibleRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		item, err := h.service.ChangeResponsiblePerson(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"), req.ResponsiblePersonID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewItemResponse(item)})
	}
}

func parseItemQuery(c *fiber.Ctx) (service.ItemListFilter, error) {
	filter := service.ItemListFilter{}
	if tracker := c.Query("tracker_id"); tracker != "" {
		filter.TrackerID = &tracker
	}
	if responsible := c.Query("responsible_person_id"); responsible != "" {
		filter.ResponsibleID = &responsible
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := domain.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			priority, err := domain.ParsePriority(strings.TrimSpace(part))
			if err != nil {
				return filter, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": part})
			}
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
