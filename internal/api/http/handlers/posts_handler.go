package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/blogkit/blog-service/internal/api/dto"
	"github.com/blogkit/blog-service/internal/auth"
	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/repository"
	"github.com/blogkit/blog-service/internal/service"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// PostsHandler exposes post endpoints.
type PostsHandler struct {
	posts *service.PostService
}

// NewPostsHandler constructs handler.
func NewPostsHandler(postService *service.PostService) *PostsHandler {
	return &PostsHandler{posts: postService}
}

// List handles GET /api/posts.
func (h *PostsHandler) List(c *fiber.Ctx) error {
	page, perPage := pagination(c, 10)
	filter := repository.PostFilter{
		PublishedOnly: c.Query("published_only", "true") == "true",
		Limit:         perPage,
		Offset:        (page - 1) * perPage,
	}
	if tag := c.Query("tag"); tag != "" {
		filter.TagSlug = &tag
	}

	// Unauthenticated callers only ever see published posts.
	if _, ok := auth.AccountFromContext(c); !ok {
		filter.PublishedOnly = true
	}

	posts, total, err := h.posts.ListPosts(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(paginatedResponse("posts", mapPosts(posts), total, page, perPage))
}

// Get handles GET /api/posts/:id.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	post, err := h.posts.GetPost(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// GetBySlug handles GET /posts/:slug (published only).
func (h *PostsHandler) GetBySlug(c *fiber.Ctx) error {
	post, err := h.posts.GetPublishedBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Create handles POST /api/posts.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	post, err := h.posts.CreatePost(c.Context(), account, service.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Slug:      req.Slug,
		Published: req.Published,
		TagIDs:    req.TagIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Update handles PUT /api/posts/:id.
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	post, err := h.posts.UpdatePost(c.Context(), account, c.Params("id"), service.UpdatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Excerpt:   req.Excerpt,
		Published: req.Published,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Delete handles DELETE /api/posts/:id.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.posts.DeletePost(c.Context(), account, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "post deleted"}})
}

func mapPosts(posts []domain.Post) []dto.PostResponse {
	out := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, dto.NewPostResponse(&posts[i]))
	}
	return out
}

func pagination(c *fiber.Ctx, defaultPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.Query("per_page", strconv.Itoa(defaultPerPage)))
	if perPage < 1 || perPage > 100 {
		perPage = defaultPerPage
	}
	return page, perPage
}

func paginatedResponse(key string, items any, total, page, perPage int) fiber.Map {
	pages := total / perPage
	if total%perPage > 0 {
		pages++
	}
	return fiber.Map{
		"data": fiber.Map{
			key:     items,
			"total": total,
			"pages": pages,
			"page":  page,
		},
	}
}
