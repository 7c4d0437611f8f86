package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/blog-service/internal/api/dto"
	"github.com/blogkit/blog-service/internal/auth"
	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/service"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// CommentsHandler exposes comment endpoints.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: commentService}
}

// ListForPost handles GET /api/posts/:id/comments (approved only).
func (h *CommentsHandler) ListForPost(c *fiber.Ctx) error {
	comments, err := h.comments.ListApproved(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"comments": mapComments(comments)}})
}

// Create handles POST /api/posts/:id/comments. A logged-in caller is
// attributed as the author; anonymous comments carry name/email fields.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	account, _ := auth.AccountFromContext(c)
	comment, err := h.comments.CreateComment(c.Context(), c.Params("id"), account, service.CreateCommentInput{
		Content:     req.Content,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

func mapComments(comments []domain.Comment) []dto.CommentResponse {
	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, dto.NewCommentResponse(&comments[i]))
	}
	return out
}
