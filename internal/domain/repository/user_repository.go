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
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepository persists users. Lookups that miss return common.ErrNotFound;
// Create returns common.ErrDuplicateIdentity when the email is taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// Update applies patch atomically and returns the stored result.
	Update(ctx context.Context, id string, patch model.UserPatch, updatedAt time.Time) (*model.User, error)
	Delete(ctx context.Context, id string) error
	PushBlog(ctx context.Context, userID, blogID string) error
	PullBlog(ctx context.Context, userID, blogID string) error
}

var errDuplicateEmail = common.E(common.ErrDuplicateIdentity, "Email already registered")

type pgUserRepository struct {
	db DBTX
}

func NewPgUserRepository(db DBTX) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, email, hashed_password, first_name, last_name, address, blogs, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var blogs []byte
	if err := row.Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.FirstName, &user.LastName, &user.Address,
		&blogs, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Blogs = []string{}
	if len(blogs) > 0 {
		if err := json.Unmarshal(blogs, &user.Blogs); err != nil {
			return nil, fmt.Errorf("decode blogs: %w", err)
		}
	}
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Blogs == nil {
		user.Blogs = []string{}
	}
	blogs, err := json.Marshal(user.Blogs)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}

	query := `INSERT INTO users (` + userColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.HashedPassword, user.FirstName, user.LastName, user.Address,
		string(blogs), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return errDuplicateEmail
		}
		return fmt.Errorf("pgUserRepository.Create: %w: %w", common.ErrPersistence, err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg any) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email", email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id", id)
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.List: %w: %w", common.ErrPersistence, err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.List: %w: %w", common.ErrPersistence, err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.List: %w: %w", common.ErrPersistence, err)
	}
	return users, nil
}

func (r *pgUserRepository) Update(ctx context.Context, id string, patch model.UserPatch, updatedAt time.Time) (*model.User, error) {
	query := `UPDATE users SET
	            first_name = COALESCE($2, first_name),
	            last_name  = COALESCE($3, last_name),
	            address    = COALESCE($4, address),
	            updated_at = $5
	          WHERE id = $1
	          RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, patch.FirstName, patch.LastName, patch.Address, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.Update: %w: %w", common.ErrPersistence, err)
	}
	return user, nil
}

func (r *pgUserRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "Delete", `DELETE FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) PushBlog(ctx context.Context, userID, blogID string) error {
	return r.execOne(ctx, "PushBlog", `UPDATE users SET blogs = blogs || to_jsonb($2::text) WHERE id = $1`, userID, blogID)
}

func (r *pgUserRepository) PullBlog(ctx context.Context, userID, blogID string) error {
	return r.execOne(ctx, "PullBlog", `UPDATE users SET blogs = blogs - $2::text WHERE id = $1`, userID, blogID)
}

// execOne runs a statement that must touch exactly one user row.
func (r *pgUserRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgUserRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgUserRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
