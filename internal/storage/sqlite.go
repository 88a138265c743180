package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported journal drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps the journal database connection. Queries are written with `?`
// placeholders and rebound for the driver.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the journal database. For sqlite, dsn is a file path and
// its directory is created; ":memory:" is accepted for tests.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var conn *sql.DB
	var err error

	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create journal directory: %w", err)
			}
		}
		conn, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite only supports one writer: a single connection avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)

	case DriverPostgres, DriverMySQL:
		conn, err = sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", driver, err)
		}
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(10 * time.Minute)

	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the driver name the DB was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// rebind rewrites `?` placeholders to `$n` for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
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

func (db *DB) migrate(ctx context.Context) error {
	// Timestamps are unix milliseconds so the schema is identical across drivers.
	idType, textType := "TEXT", "TEXT"
	if db.driver == DriverMySQL {
		idType, textType = "VARCHAR(36)", "MEDIUMTEXT"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id ` + idType + ` PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL DEFAULT '',
			tool VARCHAR(128) NOT NULL,
			args_json ` + textType + ` NOT NULL,
			result ` + textType + ` NOT NULL,
			error ` + textType + ` NOT NULL,
			started_at BIGINT NOT NULL,
			finished_at BIGINT NOT NULL
		)`,
		`CREATE INDEX idx_journal_started ON journal_entries(started_at)`,
		`CREATE INDEX idx_journal_session ON journal_entries(session_id)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			// CREATE INDEX has no portable IF NOT EXISTS; an existing index is fine.
			if strings.HasPrefix(m, "CREATE INDEX") && isDuplicate(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
