// Package postgres loads user directories from PostgreSQL.
//
// The dispatcher never queries the database directly: a Store takes a
// snapshot of the users table and returns an immutable memory.Directory.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rbaliyan/dispatch/directory"
	"github.com/rbaliyan/dispatch/directory/memory"
)

// Store reads users from a PostgreSQL table.
type Store struct {
	db     *sqlx.DB
	opts   *options
	logger *slog.Logger
}

// userRow maps a users table row.
type userRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Age   int    `db:"age"`
	Email string `db:"email"`
}

// New creates a loader over the provided database connection.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a loader from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// EnsureSchema creates the users table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return directory.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY CHECK (id > 0),
			name TEXT NOT NULL DEFAULT '',
			age INTEGER NOT NULL DEFAULT 0,
			email TEXT NOT NULL
		)
	`, s.table())

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Snapshot loads every user, ordered by id, into a memory directory.
func (s *Store) Snapshot(ctx context.Context) (*memory.Directory, error) {
	query := fmt.Sprintf(`SELECT id, name, age, email FROM %s ORDER BY id`, s.table())
	return s.load(ctx, query)
}

// SnapshotIDs loads only the users whose ids are listed, ordered by id.
// Use it to build a per-batch directory when the table is too large to hold in memory.
func (s *Store) SnapshotIDs(ctx context.Context, ids []int) (*memory.Directory, error) {
	if len(ids) == 0 {
		return memory.New()
	}
	wanted := make([]int64, len(ids))
	for i, id := range ids {
		wanted[i] = int64(id)
	}
	query := fmt.Sprintf(`SELECT id, name, age, email FROM %s WHERE id = ANY($1) ORDER BY id`, s.table())
	return s.load(ctx, query, pq.Array(wanted))
}

// table returns the configured table name quoted as an identifier.
func (s *Store) table() string {
	return pq.QuoteIdentifier(s.opts.table)
}

func (s *Store) load(ctx context.Context, query string, args ...any) (*memory.Directory, error) {
	if s.db == nil {
		return nil, directory.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}

	users := make([]directory.User, len(rows))
	for i, r := range rows {
		users[i] = directory.User{
			ID:    int(r.ID),
			Name:  r.Name,
			Age:   r.Age,
			Email: r.Email,
		}
	}

	d, err := memory.New(users...)
	if err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}

	s.logger.Info("loaded user directory from PostgreSQL", "table", s.opts.table, "users", d.Len())
	return d, nil
}
