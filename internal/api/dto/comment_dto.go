package dto

import (
	"time"

	"github.com/blogkit/blog-service/internal/domain"
)

// CreateCommentRequest payload for new comments.
type CreateCommentRequest struct {
	Content     string `json:"content"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// CommentResponse is the public view of a comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AccountID  *string   `json:"account_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse maps a domain comment. The author email stays private.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		PostID:     comment.PostID,
		AccountID:  comment.AccountID,
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		Approved:   comment.Approved,
		CreatedAt:  comment.CreatedAt,
	}
}
