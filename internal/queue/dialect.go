package queue

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"rowq/internal/config"
)

type dialect struct {
	name       string
	driverName string
	dollarArgs bool
	// claimLock is appended to the claim sub-select.
	claimLock string
	schema    string
}

var (
	sqliteDialect = dialect{
		name:       config.DriverSQLite,
		driverName: "sqlite",
		schema:     schemaSQLite,
	}
	postgresDialect = dialect{
		name:       config.DriverPostgres,
		driverName: "pgx",
		dollarArgs: true,
		claimLock:  " FOR UPDATE SKIP LOCKED",
		schema:     schemaPostgres,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite, "":
		return sqliteDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqliteDSN(path string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	return path + "?" + strings.Join(params, "&")
}

// redactDSN hides credentials so the location can be logged and displayed.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	return "postgres"
}
