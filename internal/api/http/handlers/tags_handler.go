package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/blog-service/internal/api/dto"
	"github.com/blogkit/blog-service/internal/repository"
	"github.com/blogkit/blog-service/internal/service"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// TagsHandler exposes tag endpoints.
type TagsHandler struct {
	posts *service.PostService
}

// NewTagsHandler constructs handler.
func NewTagsHandler(postService *service.PostService) *TagsHandler {
	return &TagsHandler{posts: postService}
}

// List handles GET /tags.
func (h *TagsHandler) List(c *fiber.Ctx) error {
	tags, err := h.posts.ListTags(c.Context())
	if err != nil {
		return err
	}
	out := make([]dto.TagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, dto.NewTagResponse(tag))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"tags": out}})
}

// Create handles POST /api/tags.
func (h *TagsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tag, err := h.posts.CreateTag(c.Context(), req.Name, req.Slug, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTagResponse(*tag)})
}

// PostsByTag handles GET /tags/:slug/posts.
func (h *TagsHandler) PostsByTag(c *fiber.Ctx) error {
	tag, err := h.posts.GetTagBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}

	page, perPage := pagination(c, 10)
	posts, total, err := h.posts.ListPosts(c.Context(), repository.PostFilter{
		PublishedOnly: true,
		TagSlug:       &tag.Slug,
		Limit:         perPage,
		Offset:        (page - 1) * perPage,
	})
	if err != nil {
		return err
	}

	resp := paginatedResponse("posts", mapPosts(posts), total, page, perPage)
	resp["data"].(fiber.Map)["tag"] = dto.NewTagResponse(*tag)
	return c.JSON(resp)
}
