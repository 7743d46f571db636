package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// schemaVersion is the current schema version. Bump this when the schema changes.
// Users will need to drop the queue table after schema changes.
const schemaVersion = 1

const versionTable = "rowq_schema_version"

// expectedColumns lists the columns CheckHealth looks for.
var expectedColumns = []string{
	"id",
	"queue_name",
	"payload",
	"claim_token",
	"processed",
	"created_at",
	"updated_at",
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS "+versionTable+" (table_name TEXT PRIMARY KEY, version INTEGER NOT NULL)",
	); err != nil {
		return fmt.Errorf("ensure %s table: %w", versionTable, err)
	}

	version, found, err := s.readSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if !found {
		return s.createSchema(ctx)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: table %s has version %d, expected %d (drop the table or point queue.table elsewhere)",
			ErrSchemaMismatch, s.table, version, schemaVersion)
	}
	return nil
}

func (s *Store) readSchemaVersion(ctx context.Context) (int, bool, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind("SELECT version FROM "+versionTable+" WHERE table_name = ?"), s.table,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, stmt := range schemaStatements(s.dialect.schema, s.table) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind("INSERT INTO "+versionTable+" (table_name, version) VALUES (?, ?) ON CONFLICT (table_name) DO NOTHING"),
			s.table, schemaVersion,
		); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	})
}

// schemaStatements substitutes the table name and splits the script into
// individual statements.
func schemaStatements(script, table string) []string {
	script = strings.ReplaceAll(script, "{{table}}", table)
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
