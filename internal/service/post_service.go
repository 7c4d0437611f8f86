package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/events"
	"github.com/blogkit/blog-service/internal/repository"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// CreatePostInput carries post creation fields.
type CreatePostInput struct {
	Title     string
	Content   string
	Excerpt   string
	Slug      string
	Published bool
	TagIDs    []string
}

// UpdatePostInput carries optional post update fields.
type UpdatePostInput struct {
	Title     *string
	Content   *string
	Excerpt   *string
	Published *bool
}

// PostService manages posts and tags.
type PostService struct {
	posts      repository.PostRepository
	tags       repository.TagRepository
	dispatcher events.Dispatcher
}

// NewPostService builds the service.
func NewPostService(posts repository.PostRepository, tags repository.TagRepository, dispatcher events.Dispatcher) *PostService {
	return &PostService{posts: posts, tags: tags, dispatcher: dispatcher}
}

// CreatePost creates a post for the author, generating a unique slug from
// the title when none is supplied.
func (s *PostService) CreatePost(ctx context.Context, author *domain.Account, in CreatePostInput) (*domain.Post, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidationError("title and content required", nil)
	}

	base := in.Slug
	if base == "" {
		base = in.Title
	}
	slug, err := s.uniqueSlug(ctx, Slugify(base))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	post := &domain.Post{
		Title:     in.Title,
		Content:   in.Content,
		Excerpt:   in.Excerpt,
		Slug:      slug,
		Published: in.Published,
		AuthorID:  author.ID,
	}
	if post.Published {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(in.TagIDs) > 0 {
		if err := s.posts.SetTags(ctx, post.ID, in.TagIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	if post.Published {
		s.publishEvent(ctx, post, author.ID)
	}
	return post, nil
}

// UpdatePost applies partial updates. Only the owner or an admin may update.
func (s *PostService) UpdatePost(ctx context.Context, actor *domain.Account, postID string, in UpdatePostInput) (*domain.Post, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("not the post author")
	}

	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Excerpt != nil {
		post.Excerpt = *in.Excerpt
	}
	wasPublished := post.Published
	if in.Published != nil {
		post.Published = *in.Published
		if post.Published && post.PublishedAt == nil {
			now := time.Now().UTC()
			post.PublishedAt = &now
		}
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, apperrors.MapError(err)
	}
	if post.Published && !wasPublished {
		s.publishEvent(ctx, post, actor.ID)
	}
	return post, nil
}

// DeletePost removes a post. Only the owner or an admin may delete.
func (s *PostService) DeletePost(ctx context.Context, actor *domain.Account, postID string) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return apperrors.NewForbidden("not the post author")
	}
	return apperrors.MapError(s.posts.Delete(ctx, postID))
}

// GetPost loads a post with its tags.
func (s *PostService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTags(ctx, post)
}

// GetPublishedBySlug loads a published post by slug.
func (s *PostService) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("post", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !post.Published {
		return nil, apperrors.NewNotFound("post", nil)
	}
	return s.withTags(ctx, post)
}

// ListPosts returns posts matching the filter plus the total count.
func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter) ([]domain.Post, int, error) {
	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return posts, total, nil
}

// CreateTag creates a tag; duplicate names conflict.
func (s *PostService) CreateTag(ctx context.Context, name, slug, description string) (*domain.Tag, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("tag name required", nil)
	}
	if slug == "" {
		slug = Slugify(name)
	}
	tag := &domain.Tag{Name: name, Slug: slug, Description: description}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tag, nil
}

// ListTags returns all tags.
func (s *PostService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tags, nil
}

// GetTagBySlug resolves a tag for tag-filtered listings.
func (s *PostService) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	tag, err := s.tags.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("tag", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return tag, nil
}

func (s *PostService) getPost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("post", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return post, nil
}

func (s *PostService) withTags(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	tags, err := s.posts.TagsForPost(ctx, post.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	post.Tags = tags
	return post, nil
}

func (s *PostService) publishEvent(ctx context.Context, post *domain.Post, actorID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPostPublished,
		SubjectID: post.ID,
		ActorID:   &actorID,
		Timestamp: time.Now().UTC(),
		Payload:   events.PostPublishedPayload{Title: post.Title, Slug: post.Slug},
	})
}

// uniqueSlug appends a numeric suffix until the slug is free.
func (s *PostService) uniqueSlug(ctx context.Context, slug string) (string, error) {
	if slug == "" {
		slug = "post"
	}
	candidate := slug
	for counter := 1; ; counter++ {
		exists, err := s.posts.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", slug, counter)
	}
}

// Slugify lowercases the input, converts separators to dashes, strips
// everything that is not alphanumeric or a dash and collapses dash runs.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		case r == '-' && !prevDash:
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
