package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/blog-service/internal/api/dto"
	"github.com/blogkit/blog-service/internal/auth"
	"github.com/blogkit/blog-service/internal/repository"
	"github.com/blogkit/blog-service/internal/service"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// AdminHandler exposes administrator-only moderation endpoints. Routes are
// registered behind RequireAdmin.
type AdminHandler struct {
	accounts repository.AccountRepository
	comments *service.CommentService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(accounts repository.AccountRepository, comments *service.CommentService) *AdminHandler {
	return &AdminHandler{accounts: accounts, comments: comments}
}

// ListAccounts handles GET /api/admin/accounts.
func (h *AdminHandler) ListAccounts(c *fiber.Ctx) error {
	page, perPage := pagination(c, 20)
	accounts, total, err := h.accounts.List(c.Context(), perPage, (page-1)*perPage)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, dto.NewAccountResponse(&accounts[i]))
	}
	return c.JSON(paginatedResponse("accounts", out, total, page, perPage))
}

// ListComments handles GET /api/admin/comments.
func (h *AdminHandler) ListComments(c *fiber.Ctx) error {
	page, perPage := pagination(c, 20)
	comments, total, err := h.comments.ListForModeration(c.Context(), repository.CommentFilter{
		ApprovedOnly: c.Query("approved_only", "false") == "true",
		Limit:        perPage,
		Offset:       (page - 1) * perPage,
	})
	if err != nil {
		return err
	}
	return c.JSON(paginatedResponse("comments", mapComments(comments), total, page, perPage))
}

// ApproveComment handles POST /api/admin/comments/:id/approve.
func (h *AdminHandler) ApproveComment(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.comments.Approve(c.Context(), account, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "comment approved"}})
}
