package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blogkit/blog-service/internal/domain"
)

// PostFilter captures post listing parameters.
type PostFilter struct {
	PublishedOnly bool
	TagSlug       *string
	AuthorID      *string
	Limit         int
	Offset        int
}

// PostRepository encapsulates post persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter PostFilter) ([]domain.Post, int, error)
	SetTags(ctx context.Context, postID string, tagIDs []string) error
	TagsForPost(ctx context.Context, postID string) ([]domain.Tag, error)
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository instantiates repository.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

const postColumns = `id, title, content, excerpt, slug, published, published_at, author_id, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (title, content, excerpt, slug, published, published_at, author_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		post.Title,
		post.Content,
		post.Excerpt,
		post.Slug,
		post.Published,
		post.PublishedAt,
		post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	const query = `
        UPDATE posts SET title=$1, content=$2, excerpt=$3, published=$4, published_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		post.Title,
		post.Content,
		post.Excerpt,
		post.Published,
		post.PublishedAt,
		post.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE slug=$1`
	return r.fetchSingle(ctx, query, slug)
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE slug=$1)`, slug).Scan(&exists)
	return exists, err
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]domain.Post, int, error) {
	conditions := []string{}
	args := []any{}

	if filter.PublishedOnly {
		conditions = append(conditions, "p.published = TRUE")
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if filter.TagSlug != nil {
		args = append(args, *filter.TagSlug)
		conditions = append(conditions, fmt.Sprintf(
			"p.id IN (SELECT pt.post_id FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE t.slug = $%d)", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT `+postColumns+` FROM posts p%s ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]domain.Post, 0, limit)
	for rows.Next() {
		var post domain.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	return posts, total, rows.Err()
}

func (r *postRepository) SetTags(ctx context.Context, postID string, tagIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id=$1`, postID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES ($1,$2)`, postID, tagID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *postRepository) TagsForPost(ctx context.Context, postID string) ([]domain.Tag, error) {
	const query = `
        SELECT t.id, t.name, t.slug, t.description, t.created_at
        FROM tags t JOIN post_tags pt ON pt.tag_id = t.id
        WHERE pt.post_id=$1 ORDER BY t.name`
	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *postRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Post, error) {
	var post domain.Post
	if err := scanPost(r.pool.QueryRow(ctx, query, arg), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func scanPost(row pgx.Row, post *domain.Post) error {
	return row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Excerpt,
		&post.Slug,
		&post.Published,
		&post.PublishedAt,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
}
