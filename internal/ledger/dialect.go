package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Supported driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// dialect captures the few SQL differences between the drivers
type dialect struct {
	driver     string
	positional bool
	intType    string
	timeType   string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{driver: driver, intType: "INTEGER", timeType: "TIMESTAMP"}, nil
	case DriverPgx, DriverPostgres:
		return dialect{driver: driver, positional: true, intType: "BIGINT", timeType: "TIMESTAMPTZ"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported ledger driver %q (want %s, %s or %s)", driver, DriverSQLite, DriverPgx, DriverPostgres)
	}
}

// bind returns the n-th (1-based) placeholder
func (d dialect) bind(n int) string {
	if d.positional {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// binds returns count comma separated placeholders starting at 1
func (d dialect) binds(count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.bind(i + 1)
	}
	return strings.Join(parts, ", ")
}

// quote quotes an identifier; both sqlite and postgres accept the
// double-quoted form
func (d dialect) quote(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d dialect) schema(table string) []string {
	t := d.quote(table)
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + t + ` (
	id TEXT PRIMARY KEY,
	build_id TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	plan_path TEXT NOT NULL,
	namespace TEXT NOT NULL,
	files ` + d.intType + ` NOT NULL,
	warnings ` + d.intType + ` NOT NULL,
	fallbacks ` + d.intType + ` NOT NULL,
	cached BOOLEAN NOT NULL,
	duration_ms ` + d.intType + ` NOT NULL,
	created_at ` + d.timeType + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ` + d.quote("idx_"+table+"_created_at") + ` ON ` + t + ` (created_at)`,
	}
}
