package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blogkit/blog-service/internal/domain"
)

// CommentFilter captures moderation listing parameters.
type CommentFilter struct {
	ApprovedOnly bool
	Limit        int
	Offset       int
}

// CommentRepository encapsulates comment persistence.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListApprovedForPost(ctx context.Context, postID string) ([]domain.Comment, error)
	List(ctx context.Context, filter CommentFilter) ([]domain.Comment, int, error)
	Approve(ctx context.Context, id string) error
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository instantiates repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentColumns = `id, post_id, account_id, author_name, author_email, content, approved, created_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (post_id, account_id, author_name, author_email, content, approved)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.PostID,
		comment.AccountID,
		comment.AuthorName,
		comment.AuthorEmail,
		comment.Content,
		comment.Approved,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE id=$1`
	var comment domain.Comment
	if err := scanComment(r.pool.QueryRow(ctx, query, id), &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListApprovedForPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE post_id=$1 AND approved=TRUE ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := scanComment(rows, &comment); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *commentRepository) List(ctx context.Context, filter CommentFilter) ([]domain.Comment, int, error) {
	where := ""
	args := []any{}
	if filter.ApprovedOnly {
		where = " WHERE approved=TRUE"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT `+commentColumns+` FROM comments%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0, limit)
	for rows.Next() {
		var comment domain.Comment
		if err := scanComment(rows, &comment); err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}
	return comments, total, rows.Err()
}

func (r *commentRepository) Approve(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE comments SET approved=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanComment(row pgx.Row, comment *domain.Comment) error {
	return row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AccountID,
		&comment.AuthorName,
		&comment.AuthorEmail,
		&comment.Content,
		&comment.Approved,
		&comment.CreatedAt,
	)
}
