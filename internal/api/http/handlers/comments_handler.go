package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bug-tracker/internal/api/dto"
	"github.com/spec-kit/bug-tracker/internal/auth"
	"github.com/spec-kit/bug-tracker/internal/domain"
	"github.com/spec-kit/bug-tracker/internal/service"
	apperrors "github.com/spec-kit/bug-tracker/pkg/util"
)

// CommentsHandler serves comment threads.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// Add POST /{kind}/:id/comments.
func (h *CommentsHandler) Add(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.CommentRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		comment, err := h.service.Add(c.UserContext(), auth.UserFromContext(c), kind, c.Params("id"), req.Text)
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
	}
}

// List GET /{kind}/:id/comments.
func (h *CommentsHandler) List(kind domain.ItemKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		comments, err := h.service.List(c.UserContext(), kind, c.Params("id"))
		if err != nil {
			return err
		}
		out := make([]dto.CommentResponse, 0, len(comments))
		for i := range comments {
			out = append(out, dto.NewCommentResponse(&comments[i]))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// Edit PATCH /comments/:id.
func (h *CommentsHandler) Edit(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.Edit(c.UserContext(), auth.UserFromContext(c), c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Delete DELETE /comments/:id.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), auth.UserFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
