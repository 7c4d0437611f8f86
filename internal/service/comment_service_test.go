package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/repository"
)

func newTestCommentService(t *testing.T) (*CommentService, *domain.Post) {
	t.Helper()
	posts := newMemPostRepo()
	postSvc := NewPostService(posts, newMemTagRepo(), nil)
	post, err := postSvc.CreatePost(context.Background(), userAccount("acc-author"), CreatePostInput{
		Title:     "Commented Post",
		Content:   "body",
		Published: true,
	})
	require.NoError(t, err)
	return NewCommentService(newMemCommentRepo(), posts, nil), post
}

func TestCreateCommentStartsUnapproved(t *testing.T) {
	svc, post := newTestCommentService(t)

	comment, err := svc.CreateComment(context.Background(), post.ID, nil, CreateCommentInput{
		Content:     "nice post",
		AuthorName:  "visitor",
		AuthorEmail: "visitor@example.com",
	})
	require.NoError(t, err)
	assert.False(t, comment.Approved)
	assert.Nil(t, comment.AccountID)
	assert.Equal(t, "visitor", comment.AuthorName)

	// Unapproved comments stay out of the public listing.
	visible, err := svc.ListApproved(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestCreateCommentAttributesAccount(t *testing.T) {
	svc, post := newTestCommentService(t)
	account := userAccount("acc-1")

	comment, err := svc.CreateComment(context.Background(), post.ID, account, CreateCommentInput{
		Content:    "signed in",
		AuthorName: "ignored",
	})
	require.NoError(t, err)
	require.NotNil(t, comment.AccountID)
	assert.Equal(t, account.ID, *comment.AccountID)
	assert.Equal(t, account.Username, comment.AuthorName)
}

func TestCreateCommentValidation(t *testing.T) {
	svc, post := newTestCommentService(t)

	_, err := svc.CreateComment(context.Background(), post.ID, nil, CreateCommentInput{Content: "   "})
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = svc.CreateComment(context.Background(), "missing-post", nil, CreateCommentInput{Content: "hi"})
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestApproveCommentMakesItVisible(t *testing.T) {
	svc, post := newTestCommentService(t)
	admin := adminAccount("acc-admin")

	comment, err := svc.CreateComment(context.Background(), post.ID, nil, CreateCommentInput{
		Content:    "please approve",
		AuthorName: "visitor",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), admin, comment.ID))

	visible, err := svc.ListApproved(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, comment.ID, visible[0].ID)

	err = svc.Approve(context.Background(), admin, "missing-comment")
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	short := "fits entirely"
	assert.Equal(t, short, preview(short))

	// 30 three-byte runes are 90 bytes; the 80-byte cut lands mid-rune and
	// must back up to the previous boundary.
	long := strings.Repeat("€", 30)
	got := preview(long)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 80)
	assert.Equal(t, strings.Repeat("€", 26), got)
}

func TestListForModerationIncludesUnapproved(t *testing.T) {
	svc, post := newTestCommentService(t)
	admin := adminAccount("acc-admin")

	first, err := svc.CreateComment(context.Background(), post.ID, nil, CreateCommentInput{Content: "one", AuthorName: "a"})
	require.NoError(t, err)
	_, err = svc.CreateComment(context.Background(), post.ID, nil, CreateCommentInput{Content: "two", AuthorName: "b"})
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), admin, first.ID))

	all, total, err := svc.ListForModeration(context.Background(), repository.CommentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	approved, total, err := svc.ListForModeration(context.Background(), repository.CommentFilter{ApprovedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)
}
