package datastore

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect holds what differs between the supported SQL backends. Queries are
// written with '?' placeholders and rebound per dialect.
type dialect struct {
	name       string
	driverName string
	schema     []string
	numbered   bool
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	schema: []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS tracked_resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL,
			url TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT 'Unknown',
			created_at INTEGER NOT NULL,
			UNIQUE(owner_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS time_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tracked_resource_id INTEGER NOT NULL REFERENCES tracked_resources(id) ON DELETE CASCADE,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			notified BOOLEAN NOT NULL DEFAULT 0,
			detected_at INTEGER NOT NULL,
			UNIQUE(tracked_resource_id, start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_owner ON tracked_resources(owner_id)`,
	},
}

var postgresDialect = dialect{
	name:       "postgres",
	driverName: "postgres",
	numbered:   true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS tracked_resources (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			url TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT 'Unknown',
			created_at BIGINT NOT NULL,
			UNIQUE(owner_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS time_slots (
			id BIGSERIAL PRIMARY KEY,
			tracked_resource_id BIGINT NOT NULL REFERENCES tracked_resources(id) ON DELETE CASCADE,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			notified BOOLEAN NOT NULL DEFAULT FALSE,
			detected_at BIGINT NOT NULL,
			UNIQUE(tracked_resource_id, start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_owner ON tracked_resources(owner_id)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "sqlite":
		return sqliteDialect, nil
	case "postgres":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// rebind rewrites '?' placeholders as $1..$n for backends that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
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

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
