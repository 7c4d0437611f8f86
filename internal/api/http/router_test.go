package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogkit/blog-service/internal/api/http/handlers"
	"github.com/blogkit/blog-service/internal/auth"
	"github.com/blogkit/blog-service/internal/config"
	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/observability"
	"github.com/blogkit/blog-service/internal/repository"
	"github.com/blogkit/blog-service/internal/service"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// fakeStore backs all repositories for the route tests with plain maps.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	posts    map[string]*domain.Post
	tags     map[string]*domain.Tag
	comments map[string]*domain.Comment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*domain.Account),
		posts:    make(map[string]*domain.Post),
		tags:     make(map[string]*domain.Tag),
		comments: make(map[string]*domain.Comment),
	}
}

type fakeAccountRepo struct{ s *fakeStore }

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return apperrors.NewDuplicateIdentifier("username or email already registered")
		}
	}
	account.ID = uuid.NewString()
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	r.s.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	r.s.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.accounts {
		if account.Username == identifier || account.Email == identifier {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = hash
	return nil
}

func (r *fakeAccountRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LastLogin = &at
	return nil
}

func (r *fakeAccountRepo) List(_ context.Context, _, _ int) ([]domain.Account, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Account, 0, len(r.s.accounts))
	for _, account := range r.s.accounts {
		out = append(out, *account)
	}
	return out, len(out), nil
}

type fakePostRepo struct{ s *fakeStore }

func (r *fakePostRepo) Create(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post.ID = uuid.NewString()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	copied := *post
	r.s.posts[post.ID] = &copied
	return nil
}

func (r *fakePostRepo) Update(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[post.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *post
	r.s.posts[post.ID] = &copied
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.posts, id)
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *post
	return &copied, nil
}

func (r *fakePostRepo) GetBySlug(_ context.Context, slug string) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, post := range r.s.posts {
		if post.Slug == slug {
			copied := *post
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePostRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, post := range r.s.posts {
		if post.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePostRepo) List(_ context.Context, filter repository.PostFilter) ([]domain.Post, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Post, 0, len(r.s.posts))
	for _, post := range r.s.posts {
		if filter.PublishedOnly && !post.Published {
			continue
		}
		out = append(out, *post)
	}
	return out, len(out), nil
}

func (r *fakePostRepo) SetTags(_ context.Context, _ string, _ []string) error { return nil }

func (r *fakePostRepo) TagsForPost(_ context.Context, _ string) ([]domain.Tag, error) {
	return nil, nil
}

type fakeTagRepo struct{ s *fakeStore }

func (r *fakeTagRepo) Create(_ context.Context, tag *domain.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tags {
		if existing.Name == tag.Name || existing.Slug == tag.Slug {
			return apperrors.NewDuplicateIdentifier("tag already exists")
		}
	}
	tag.ID = uuid.NewString()
	tag.CreatedAt = time.Now().UTC()
	copied := *tag
	r.s.tags[tag.ID] = &copied
	return nil
}

func (r *fakeTagRepo) GetBySlug(_ context.Context, slug string) (*domain.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tag := range r.s.tags {
		if tag.Slug == slug {
			copied := *tag
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTagRepo) List(_ context.Context) ([]domain.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Tag, 0, len(r.s.tags))
	for _, tag := range r.s.tags {
		out = append(out, *tag)
	}
	return out, nil
}

type fakeCommentRepo struct{ s *fakeStore }

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	copied := *comment
	r.s.comments[comment.ID] = &copied
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment, ok := r.s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *comment
	return &copied, nil
}

func (r *fakeCommentRepo) ListApprovedForPost(_ context.Context, postID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.s.comments {
		if comment.PostID == postID && comment.Approved {
			out = append(out, *comment)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) List(_ context.Context, filter repository.CommentFilter) ([]domain.Comment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.s.comments {
		if filter.ApprovedOnly && !comment.Approved {
			continue
		}
		out = append(out, *comment)
	}
	return out, len(out), nil
}

func (r *fakeCommentRepo) Approve(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment, ok := r.s.comments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	comment.Approved = true
	return nil
}

type testEnv struct {
	app   *fiber.App
	store *fakeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	accounts := &fakeAccountRepo{s: store}
	posts := &fakePostRepo{s: store}
	tags := &fakeTagRepo{s: store}
	comments := &fakeCommentRepo{s: store}

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 15,
			RefreshTokenTTLHours:  24,
			BcryptCost:            bcrypt.MinCost,
			MinPasswordLength:     8,
		},
	}

	authService := service.NewAuthService(cfg, service.AuthDependencies{AccountRepo: accounts})
	postService := service.NewPostService(posts, tags, nil)
	commentService := service.NewCommentService(comments, posts, nil)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("blog-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Posts:          handlers.NewPostsHandler(postService),
		Tags:           handlers.NewTagsHandler(postService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Admin:          handlers.NewAdminHandler(accounts, commentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), accounts),
	})

	return &testEnv{app: app, store: store}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func registerAccount(t *testing.T, env *testEnv, username string) (accessToken, refreshToken string) {
	t.Helper()
	status, body := env.request(t, "POST", "/auth/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "pw123456",
	})
	require.Equal(t, 201, status)
	authData := body["data"].(map[string]any)["auth"].(map[string]any)
	return authData["access_token"].(string), authData["refresh_token"].(string)
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return errObj["code"].(string)
}

func TestAuthFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	access, refresh := registerAccount(t, env, "alice")

	// Access token authenticates requests.
	status, body := env.request(t, "GET", "/auth/me", access, nil)
	require.Equal(t, 200, status)
	account := body["data"].(map[string]any)
	assert.Equal(t, "alice", account["username"])
	assert.Equal(t, false, account["is_admin"])
	assert.NotContains(t, account, "password")
	assert.NotContains(t, account, "password_hash")

	// A refresh token never passes the gate.
	status, body = env.request(t, "GET", "/auth/me", refresh, nil)
	require.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	// Refresh yields a fresh access token that also authenticates.
	status, body = env.request(t, "POST", "/auth/refresh", "", fiber.Map{"refresh_token": refresh})
	require.Equal(t, 200, status)
	newAccess := body["data"].(map[string]any)["access_token"].(string)
	assert.NotEqual(t, access, newAccess)

	status, _ = env.request(t, "GET", "/auth/me", newAccess, nil)
	assert.Equal(t, 200, status)

	// An access token presented as a refresh token is rejected.
	status, body = env.request(t, "POST", "/auth/refresh", "", fiber.Map{"refresh_token": access})
	require.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	registerAccount(t, env, "alice")

	status, body := env.request(t, "POST", "/auth/login", "", fiber.Map{
		"identifier": "alice",
		"password":   "pw123456",
	})
	require.Equal(t, 200, status)
	authData := body["data"].(map[string]any)["auth"].(map[string]any)
	assert.NotEmpty(t, authData["access_token"])
	assert.NotEmpty(t, authData["refresh_token"])

	status, body = env.request(t, "POST", "/auth/login", "", fiber.Map{
		"identifier": "alice",
		"password":   "wrong-password",
	})
	require.Equal(t, 401, status)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, body))

	status, body = env.request(t, "POST", "/auth/login", "", fiber.Map{
		"identifier": "nobody",
		"password":   "pw123456",
	})
	require.Equal(t, 401, status)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, body))
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	access, _ := registerAccount(t, env, "alice")

	status, body := env.request(t, "POST", "/auth/change-password", access, fiber.Map{
		"current_password": "wrong-password",
		"new_password":     "newpw12345",
	})
	require.Equal(t, 401, status)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, body))

	status, _ = env.request(t, "POST", "/auth/change-password", access, fiber.Map{
		"current_password": "pw123456",
		"new_password":     "newpw12345",
	})
	require.Equal(t, 200, status)

	status, _ = env.request(t, "POST", "/auth/login", "", fiber.Map{
		"identifier": "alice",
		"password":   "newpw12345",
	})
	assert.Equal(t, 200, status)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	access, _ := registerAccount(t, env, "alice")

	status, body := env.request(t, "POST", "/api/posts", "", fiber.Map{
		"title":   "Hello",
		"content": "body",
	})
	require.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, body = env.request(t, "POST", "/api/posts", access, fiber.Map{
		"title":     "Hello",
		"content":   "body",
		"published": true,
	})
	require.Equal(t, 201, status)
	created := body["data"].(map[string]any)
	assert.Equal(t, "hello", created["slug"])

	// The published post is browsable without credentials.
	status, _ = env.request(t, "GET", "/posts/hello", "", nil)
	assert.Equal(t, 200, status)
}

func TestAdminRoutesEnforceRole(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := registerAccount(t, env, "alice")

	status, body := env.request(t, "GET", "/api/admin/accounts", "", nil)
	require.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, body = env.request(t, "GET", "/api/admin/accounts", userToken, nil)
	require.Equal(t, 403, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	// Promote the account directly in the store; tokens carry no role claim,
	// so the next request sees the new role immediately.
	env.store.mu.Lock()
	for _, account := range env.store.accounts {
		account.Role = domain.RoleAdmin
	}
	env.store.mu.Unlock()

	status, _ = env.request(t, "GET", "/api/admin/accounts", userToken, nil)
	assert.Equal(t, 200, status)
}

func TestCommentModerationFlow(t *testing.T) {
	env := newTestEnv(t)
	authorToken, _ := registerAccount(t, env, "author")

	status, body := env.request(t, "POST", "/api/posts", authorToken, fiber.Map{
		"title":     "Commented",
		"content":   "body",
		"published": true,
	})
	require.Equal(t, 201, status)
	postID := body["data"].(map[string]any)["id"].(string)

	status, body = env.request(t, "POST", "/api/posts/"+postID+"/comments", "", fiber.Map{
		"content":     "nice post",
		"author_name": "visitor",
	})
	require.Equal(t, 201, status)
	commentID := body["data"].(map[string]any)["id"].(string)

	// Pending comments are hidden from the public listing.
	status, body = env.request(t, "GET", "/api/posts/"+postID+"/comments", "", nil)
	require.Equal(t, 200, status)
	comments := body["data"].(map[string]any)["comments"].([]any)
	assert.Empty(t, comments)

	// Only admins can approve.
	status, _ = env.request(t, "POST", "/api/admin/comments/"+commentID+"/approve", authorToken, nil)
	require.Equal(t, 403, status)

	env.store.mu.Lock()
	for _, account := range env.store.accounts {
		account.Role = domain.RoleAdmin
	}
	env.store.mu.Unlock()

	status, _ = env.request(t, "POST", "/api/admin/comments/"+commentID+"/approve", authorToken, nil)
	require.Equal(t, 200, status)

	status, body = env.request(t, "GET", "/api/posts/"+postID+"/comments", "", nil)
	require.Equal(t, 200, status)
	comments = body["data"].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)
}
