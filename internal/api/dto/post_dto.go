package dto

import (
	"time"

	"github.com/blogkit/blog-service/internal/domain"
)

// CreatePostRequest payload for new posts.
type CreatePostRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Excerpt   string   `json:"excerpt"`
	Slug      string   `json:"slug"`
	Published bool     `json:"published"`
	TagIDs    []string `json:"tag_ids"`
}

// UpdatePostRequest payload for partial post updates.
type UpdatePostRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Excerpt   *string `json:"excerpt"`
	Published *bool   `json:"published"`
}

// CreateTagRequest payload for new tags.
type CreateTagRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// PostResponse is the public view of a post.
type PostResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Excerpt     string        `json:"excerpt"`
	Slug        string        `json:"slug"`
	Published   bool          `json:"published"`
	PublishedAt *time.Time    `json:"published_at"`
	AuthorID    string        `json:"author_id"`
	Tags        []TagResponse `json:"tags,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TagResponse is the public view of a tag.
type TagResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPostResponse maps a domain post.
func NewPostResponse(post *domain.Post) PostResponse {
	resp := PostResponse{
		ID:          post.ID,
		Title:       post.Title,
		Content:     post.Content,
		Excerpt:     post.Excerpt,
		Slug:        post.Slug,
		Published:   post.Published,
		PublishedAt: post.PublishedAt,
		AuthorID:    post.AuthorID,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
	for _, tag := range post.Tags {
		resp.Tags = append(resp.Tags, NewTagResponse(tag))
	}
	return resp
}

// NewTagResponse maps a domain tag.
func NewTagResponse(tag domain.Tag) TagResponse {
	return TagResponse{
		ID:          tag.ID,
		Name:        tag.Name,
		Slug:        tag.Slug,
		Description: tag.Description,
		CreatedAt:   tag.CreatedAt,
	}
}
