package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Get returns the row with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ensureContext(ctx), s.q.byID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// List returns rows matching filter in id order.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Item, error) {
	var (
		clauses []string
		args    []any
	)
	if strings.TrimSpace(filter.Queue) != "" {
		name, err := normalizeQueueName(filter.Queue)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, "queue_name = ?")
		args = append(args, name)
	}
	if filter.Processed != nil {
		clauses = append(clauses, "processed = ?")
		args = append(args, *filter.Processed)
	}
	return s.listWhere(ctx, clauses, args, filter.Limit)
}

// Stuck returns rows that were claimed but never marked processed. An empty
// queueName covers every queue.
func (s *Store) Stuck(ctx context.Context, queueName string) ([]*Item, error) {
	clauses := []string{"claim_token IS NOT NULL", "processed = ?"}
	args := []any{false}
	if strings.TrimSpace(queueName) != "" {
		name, err := normalizeQueueName(queueName)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, "queue_name = ?")
		args = append(args, name)
	}
	return s.listWhere(ctx, clauses, args, 0)
}

func (s *Store) listWhere(ctx context.Context, clauses []string, args []any, limit int) ([]*Item, error) {
	query := "SELECT " + itemColumns + " FROM " + s.table
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Release clears the claim on stuck rows so they can be claimed again.
// Processed rows are left alone. It returns the number of rows released.
func (s *Store) Release(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+2)
	args = append(args, s.timestamp(), false)
	for _, id := range ids {
		args = append(args, id)
	}
	query := s.dialect.rebind(fmt.Sprintf(
		"UPDATE %s SET claim_token = NULL, updated_at = ? WHERE processed = ? AND claim_token IS NOT NULL AND id IN (%s)",
		s.table, makePlaceholders(len(ids))))
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("release items: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the total number of rows in the table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx), s.q.count).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// Stats returns per-queue counts of unclaimed, in-flight and processed rows,
// ordered by queue name.
func (s *Store) Stats(ctx context.Context) ([]QueueStats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), s.q.stats, false, false, true)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats []QueueStats
	for rows.Next() {
		var (
			entry                          QueueStats
			unclaimed, inFlight, processed sql.NullInt64
		)
		if err := rows.Scan(&entry.Queue, &unclaimed, &inFlight, &processed); err != nil {
			return nil, err
		}
		entry.Unclaimed = unclaimed.Int64
		entry.InFlight = inFlight.Int64
		entry.Processed = processed.Int64
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Driver:   s.dialect.name,
		Location: s.location,
		Table:    s.table,
	}

	if s.dialect.name == sqliteDialect.name {
		info, err := os.Stat(s.location)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return health, nil
			}
			return health, fmt.Errorf("stat queue database: %w", err)
		}
		if info.IsDir() {
			return health, fmt.Errorf("queue database path %q is a directory", s.location)
		}
		health.DataDirWritable = unix.Access(s.dataDir, unix.W_OK) == nil
	} else {
		// No local files to check for a server database.
		health.DataDirWritable = true
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	lookupName := s.table
	if s.dialect.name != sqliteDialect.name {
		lookupName = strings.ToLower(s.table)
	}
	var tables int
	if err := s.db.QueryRowContext(connCtx, s.q.tableExists, lookupName).Scan(&tables); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = tables > 0

	if health.TableExists {
		columns, err := s.tableColumns(connCtx, lookupName)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.ColumnsPresent = columns
		present := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			present[col] = struct{}{}
		}
		for _, col := range expectedColumns {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}

		if err := s.db.QueryRowContext(connCtx, s.q.count).Scan(&health.TotalItems); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count queue items: %w", err)
		}
		if version, found, err := s.readSchemaVersion(connCtx); err == nil && found {
			health.SchemaVersion = version
		}
	}

	if s.dialect.name == sqliteDialect.name {
		var integrityResult string
		if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("integrity check: %w", err)
		}
		health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	} else {
		health.IntegrityCheck = true
	}

	return health, nil
}

func (s *Store) tableColumns(ctx context.Context, lookupName string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if s.dialect.name == sqliteDialect.name {
		rows, err = s.db.QueryContext(ctx, s.q.tableColumns)
	} else {
		rows, err = s.db.QueryContext(ctx, s.q.tableColumns, lookupName)
	}
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}
