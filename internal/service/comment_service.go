package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/events"
	"github.com/blogkit/blog-service/internal/repository"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// CreateCommentInput carries comment creation fields. AuthorName and
// AuthorEmail only matter for anonymous comments.
type CreateCommentInput struct {
	Content     string
	AuthorName  string
	AuthorEmail string
}

// CommentService manages comments and their moderation.
type CommentService struct {
	comments   repository.CommentRepository
	posts      repository.PostRepository
	dispatcher events.Dispatcher
}

// NewCommentService builds the service.
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{comments: comments, posts: posts, dispatcher: dispatcher}
}

// CreateComment adds an unapproved comment to a post. A non-nil account
// attributes the comment; otherwise the anonymous author fields are kept.
func (s *CommentService) CreateComment(ctx context.Context, postID string, account *domain.Account, in CreateCommentInput) (*domain.Comment, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.NewValidationError("comment content required", nil)
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("post", nil)
		}
		return nil, apperrors.MapError(err)
	}

	comment := &domain.Comment{
		PostID:      postID,
		Content:     in.Content,
		AuthorName:  in.AuthorName,
		AuthorEmail: in.AuthorEmail,
		Approved:    false,
	}
	if account != nil {
		comment.AccountID = &account.ID
		comment.AuthorName = account.Username
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.emit(ctx, events.EventCommentCreated, comment.ID, comment.AccountID, events.CommentCreatedPayload{
		PostID:      postID,
		AuthorName:  comment.AuthorName,
		BodyPreview: preview(comment.Content),
	})
	return comment, nil
}

// ListApproved returns approved comments for a post.
func (s *CommentService) ListApproved(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("post", nil)
		}
		return nil, apperrors.MapError(err)
	}
	comments, err := s.comments.ListApprovedForPost(ctx, postID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// ListForModeration returns all comments for admin review.
func (s *CommentService) ListForModeration(ctx context.Context, filter repository.CommentFilter) ([]domain.Comment, int, error) {
	comments, total, err := s.comments.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return comments, total, nil
}

// Approve marks a comment as approved.
func (s *CommentService) Approve(ctx context.Context, actor *domain.Account, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("comment", nil)
		}
		return apperrors.MapError(err)
	}
	if err := s.comments.Approve(ctx, commentID); err != nil {
		return apperrors.MapError(err)
	}

	s.emit(ctx, events.EventCommentApproved, commentID, &actor.ID, events.CommentApprovedPayload{
		PostID: comment.PostID,
	})
	return nil
}

func (s *CommentService) emit(ctx context.Context, eventType events.EventType, subjectID string, actorID *string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// preview truncates to at most 80 bytes without splitting a rune.
func preview(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
