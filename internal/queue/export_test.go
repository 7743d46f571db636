package queue

import (
	"context"
	"database/sql"
)

// WithAfterProcessed installs a hook that runs inside the retention
// transaction after the row was marked or deleted.
func WithAfterProcessed(hook func(ctx context.Context, item *Item) error) Option {
	return func(s *Store) {
		s.afterProcessed = hook
	}
}

// DB exposes the connection pool for fixtures that need raw SQL.
func DB(s *Store) *sql.DB {
	return s.db
}

// Rebind exposes placeholder rewriting for raw fixture queries.
func Rebind(s *Store, query string) string {
	return s.dialect.rebind(query)
}
