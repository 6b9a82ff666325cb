package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"

	"github.com/google/uuid"
)

// BlogRepository persists blog posts. Lookups that miss return
// common.ErrNotFound.
type BlogRepository interface {
	Create(ctx context.Context, blog *model.Blog) error
	FindByID(ctx context.Context, id string) (*model.Blog, error)
	// FindByIDs returns the posts that exist, in the order of ids.
	FindByIDs(ctx context.Context, ids []string) ([]model.Blog, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Blog, error)
	// Update applies patch atomically and returns the stored result.
	Update(ctx context.Context, id string, patch model.BlogPatch, updatedAt time.Time) (*model.Blog, error)
	Delete(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
}

type pgBlogRepository struct {
	db DBTX
}

func NewPgBlogRepository(db DBTX) BlogRepository {
	return &pgBlogRepository{db: db}
}

const blogColumns = `id, title, slug, content, author_id, created_at, updated_at`

func scanBlog(row rowScanner) (*model.Blog, error) {
	blog := &model.Blog{}
	err := row.Scan(&blog.ID, &blog.Title, &blog.Slug, &blog.Content, &blog.AuthorID, &blog.CreatedAt, &blog.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return blog, nil
}

func (r *pgBlogRepository) Create(ctx context.Context, blog *model.Blog) error {
	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	query := `INSERT INTO blogs (` + blogColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		blog.ID, blog.Title, blog.Slug, blog.Content, blog.AuthorID, blog.CreatedAt, blog.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgBlogRepository.Create: %w: %w", common.ErrPersistence, err)
	}
	return nil
}

func (r *pgBlogRepository) FindByID(ctx context.Context, id string) (*model.Blog, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs WHERE id = $1`
	blog, err := scanBlog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBlogRepository.FindByID: %w: %w", common.ErrPersistence, err)
	}
	return blog, nil
}

func (r *pgBlogRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Blog, error) {
	if len(ids) == 0 {
		return []model.Blog{}, nil
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("pgBlogRepository.FindByIDs: %w", err)
	}
	// ids travel as one jsonb document so the owner's ordering is kept.
	query := `SELECT b.id, b.title, b.slug, b.content, b.author_id, b.created_at, b.updated_at
	          FROM blogs b
	          JOIN jsonb_array_elements_text($1::jsonb) WITH ORDINALITY AS wanted(id, ord) ON wanted.id = b.id
	          ORDER BY wanted.ord`
	return r.query(ctx, "FindByIDs", query, string(encoded))
}

func (r *pgBlogRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Blog, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs WHERE author_id = $1 ORDER BY created_at`
	return r.query(ctx, "ListByAuthor", query, authorID)
}

func (r *pgBlogRepository) query(ctx context.Context, op, query string, args ...any) ([]model.Blog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgBlogRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	defer rows.Close()

	blogs := []model.Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("pgBlogRepository.%s: %w: %w", op, common.ErrPersistence, err)
		}
		blogs = append(blogs, *blog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBlogRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	return blogs, nil
}

func (r *pgBlogRepository) Update(ctx context.Context, id string, patch model.BlogPatch, updatedAt time.Time) (*model.Blog, error) {
	query := `UPDATE blogs SET
	            title      = COALESCE($2, title),
	            slug       = COALESCE($3, slug),
	            content    = COALESCE($4, content),
	            updated_at = $5
	          WHERE id = $1
	          RETURNING ` + blogColumns
	blog, err := scanBlog(r.db.QueryRowContext(ctx, query, id, patch.Title, patch.Slug, patch.Content, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBlogRepository.Update: %w: %w", common.ErrPersistence, err)
	}
	return blog, nil
}

func (r *pgBlogRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgBlogRepository.Delete: %w: %w", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgBlogRepository.Delete: %w: %w", common.ErrPersistence, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgBlogRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE author_id = $1`, authorID)
	if err != nil {
		return 0, fmt.Errorf("pgBlogRepository.DeleteByAuthor: %w: %w", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgBlogRepository.DeleteByAuthor: %w: %w", common.ErrPersistence, err)
	}
	return n, nil
}
