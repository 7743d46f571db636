package queue

import "fmt"

const itemColumns = "id, queue_name, payload, claim_token, processed, created_at, updated_at"

// queries holds the statements for one table, already rebound for the dialect.
type queries struct {
	insert       string
	claim        string
	byToken      string
	byID         string
	markDone     string
	deleteDone   string
	backlog      string
	backlogAll   string
	cleanup      string
	count        string
	stats        string
	tableExists  string
	tableColumns string
}

func buildQueries(d dialect, table string) queries {
	q := queries{
		insert: fmt.Sprintf(
			"INSERT INTO %s (queue_name, payload, claim_token, processed, created_at, updated_at) VALUES (?, ?, NULL, ?, ?, ?)", table),
		// The outer claim_token IS NULL re-checks the predicate in the same
		// statement that writes, so two callers can never both win one row.
		claim: fmt.Sprintf(
			"UPDATE %[1]s SET claim_token = ?, updated_at = ? WHERE id = (SELECT id FROM %[1]s WHERE queue_name = ? AND claim_token IS NULL ORDER BY id LIMIT 1%[2]s) AND claim_token IS NULL",
			table, d.claimLock),
		byToken:    fmt.Sprintf("SELECT %s FROM %s WHERE claim_token = ?", itemColumns, table),
		byID:       fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", itemColumns, table),
		markDone:   fmt.Sprintf("UPDATE %s SET processed = ?, updated_at = ? WHERE id = ? AND claim_token = ?", table),
		deleteDone: fmt.Sprintf("DELETE FROM %s WHERE id = ? AND claim_token = ?", table),
		backlog:    fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE queue_name = ? AND claim_token IS NULL", table),
		backlogAll: fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE claim_token IS NULL", table),
		cleanup:    fmt.Sprintf("DELETE FROM %s WHERE processed = ? AND updated_at < ?", table),
		count:      fmt.Sprintf("SELECT COUNT(1) FROM %s", table),
		stats: fmt.Sprintf(`SELECT queue_name,
	SUM(CASE WHEN claim_token IS NULL AND processed = ? THEN 1 ELSE 0 END),
	SUM(CASE WHEN claim_token IS NOT NULL AND processed = ? THEN 1 ELSE 0 END),
	SUM(CASE WHEN processed = ? THEN 1 ELSE 0 END)
FROM %s GROUP BY queue_name ORDER BY queue_name`, table),
	}
	switch d.name {
	case sqliteDialect.name:
		q.tableExists = "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?"
		q.tableColumns = fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table)
	default:
		q.tableExists = "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
		q.tableColumns = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position"
	}

	for _, stmt := range []*string{
		&q.insert, &q.claim, &q.byToken, &q.byID, &q.markDone, &q.deleteDone,
		&q.backlog, &q.backlogAll, &q.cleanup, &q.count, &q.stats,
		&q.tableExists, &q.tableColumns,
	} {
		*stmt = d.rebind(*stmt)
	}
	return q
}
