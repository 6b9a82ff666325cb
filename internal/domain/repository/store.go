package repository

import (
	"context"
	"database/sql"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs fn with repositories bound to one transaction. Backends
// that cannot span documents atomically do not provide one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepository, blogs BlogRepository) error) error
}

// Store groups the repositories of one backend.
type Store struct {
	Users UserRepository
	Blogs BlogRepository
	Tx    Transactor // nil when unsupported
}

func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users: NewMongoUserRepository(db),
		Blogs: NewMongoBlogRepository(db),
	}
}

func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users: NewPgUserRepository(db),
		Blogs: NewPgBlogRepository(db),
		Tx:    &pgTransactor{db: db},
	}
}

// NewMemoryStore keeps everything in process memory.
func NewMemoryStore() *Store {
	db := newMemoryDB()
	return &Store{
		Users: &memoryUserRepository{db: db},
		Blogs: &memoryBlogRepository{db: db},
	}
}

type pgTransactor struct {
	db *sql.DB
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, users UserRepository, blogs BlogRepository) error) error {
	return WithTx(ctx, t.db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, NewPgUserRepository(tx), NewPgBlogRepository(tx))
	})
}
