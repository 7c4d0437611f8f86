package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blogkit/blog-service/internal/domain"
	"github.com/blogkit/blog-service/internal/repository"
	apperrors "github.com/blogkit/blog-service/pkg/util"
)

// memAccountRepo is an in-memory stand-in for the Postgres repository. Like
// the real store it enforces username/email uniqueness inside Create, under
// a lock, so concurrent registrations cannot both win.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return apperrors.NewDuplicateIdentifier("username or email already registered")
		}
	}
	account.ID = uuid.NewString()
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *memAccountRepo) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *memAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Username == identifier || account.Email == identifier {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = hash
	return nil
}

func (r *memAccountRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.LastLogin = &at
	return nil
}

func (r *memAccountRepo) List(_ context.Context, limit, offset int) ([]domain.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		all = append(all, *account)
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// memPostRepo backs the slug and ownership tests.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[string]*domain.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[string]*domain.Post)}
}

func (r *memPostRepo) Create(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = uuid.NewString()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	copied := *post
	r.posts[post.ID] = &copied
	return nil
}

func (r *memPostRepo) Update(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *post
	r.posts[post.ID] = &copied
	return nil
}

func (r *memPostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.posts, id)
	return nil
}

func (r *memPostRepo) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *post
	return &copied, nil
}

func (r *memPostRepo) GetBySlug(_ context.Context, slug string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, post := range r.posts {
		if post.Slug == slug {
			copied := *post
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memPostRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, post := range r.posts {
		if post.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPostRepo) List(_ context.Context, filter repository.PostFilter) ([]domain.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Post
	for _, post := range r.posts {
		if filter.PublishedOnly && !post.Published {
			continue
		}
		out = append(out, *post)
	}
	return out, len(out), nil
}

func (r *memPostRepo) SetTags(_ context.Context, _ string, _ []string) error { return nil }

func (r *memPostRepo) TagsForPost(_ context.Context, _ string) ([]domain.Tag, error) {
	return nil, nil
}

// memCommentRepo keeps comments in insertion order for list assertions.
type memCommentRepo struct {
	mu       sync.Mutex
	comments []*domain.Comment
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{}
}

func (r *memCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	copied := *comment
	r.comments = append(r.comments, &copied)
	return nil
}

func (r *memCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, comment := range r.comments {
		if comment.ID == id {
			copied := *comment
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memCommentRepo) ListApprovedForPost(_ context.Context, postID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.comments {
		if comment.PostID == postID && comment.Approved {
			out = append(out, *comment)
		}
	}
	return out, nil
}

func (r *memCommentRepo) List(_ context.Context, filter repository.CommentFilter) ([]domain.Comment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, comment := range r.comments {
		if filter.ApprovedOnly && !comment.Approved {
			continue
		}
		out = append(out, *comment)
	}
	return out, len(out), nil
}

func (r *memCommentRepo) Approve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, comment := range r.comments {
		if comment.ID == id {
			comment.Approved = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

// memTagRepo enforces name/slug uniqueness like the Postgres table.
type memTagRepo struct {
	mu   sync.Mutex
	tags map[string]*domain.Tag
}

func newMemTagRepo() *memTagRepo {
	return &memTagRepo{tags: make(map[string]*domain.Tag)}
}

func (r *memTagRepo) Create(_ context.Context, tag *domain.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tags {
		if existing.Name == tag.Name || existing.Slug == tag.Slug {
			return apperrors.NewDuplicateIdentifier("tag already exists")
		}
	}
	tag.ID = uuid.NewString()
	tag.CreatedAt = time.Now().UTC()
	copied := *tag
	r.tags[tag.ID] = &copied
	return nil
}

func (r *memTagRepo) GetBySlug(_ context.Context, slug string) (*domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range r.tags {
		if tag.Slug == slug {
			copied := *tag
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTagRepo) List(_ context.Context) ([]domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Tag
	for _, tag := range r.tags {
		out = append(out, *tag)
	}
	return out, nil
}
