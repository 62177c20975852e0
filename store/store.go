// Package store persists GalNet articles in a relational table.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const (
	// DefaultTable is the articles table name.
	DefaultTable = "Articles"
	// DefaultUser is the PostgreSQL role used when none is given.
	DefaultUser = "postgres"
	// DefaultPingTimeout bounds the connection check.
	DefaultPingTimeout = 5 * time.Second
)

// DuplicatePolicy decides what Insert does with a UID that is already
// stored.
type DuplicatePolicy int

const (
	// DuplicateAllow inserts every row. Repeated runs add duplicate rows.
	DuplicateAllow DuplicatePolicy = iota
	// DuplicateReject looks the UID up first and returns DuplicateError
	// when it exists.
	DuplicateReject
)

// Options holds the connection and table settings of a store.
type Options struct {
	Driver   string
	Host     string
	Port     int
	Database string // file path for SQLite
	User     string
	Password string
	Passfile string
	SSLMode  string
	Table    string

	Duplicates DuplicatePolicy
}

// DSN returns the driver-specific data source name.
func (o Options) DSN() string {
	if o.driver() == DriverSQLite {
		return o.Database
	}

	params := []struct{ key, value string }{
		{"host", o.Host},
		{"user", o.user()},
		{"password", o.Password},
		{"passfile", o.Passfile},
		{"dbname", o.Database},
		{"sslmode", o.sslMode()},
	}
	if o.Port > 0 {
		params = append(params, struct{ key, value string }{"port", strconv.Itoa(o.Port)})
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	return strings.Join(parts, " ")
}

func (o Options) driver() string {
	if o.Driver == "" {
		return DriverPostgres
	}
	return o.Driver
}

func (o Options) user() string {
	if o.User == "" {
		return DefaultUser
	}
	return o.User
}

func (o Options) sslMode() string {
	if o.SSLMode == "" {
		return "disable"
	}
	return o.SSLMode
}

func (o Options) table() string {
	table := strings.TrimSpace(o.Table)
	if table == "" {
		return DefaultTable
	}
	return table
}

// quoteDSNValue quotes a libpq key/value for the connection string.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Store is a single connection to the articles table.
type Store struct {
	db         *sqlx.DB
	driver     string
	table      string
	owner      string
	duplicates DuplicatePolicy
}

// Open connects to the database described by opts and verifies the
// connection. Any failure is reported as a ConnectionError.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := opts.driver()
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, &ConnectionError{
			Driver:   driver,
			Database: opts.Database,
			Err:      fmt.Errorf("unsupported driver %q", driver),
		}
	}

	db, err := sqlx.Open(driver, opts.DSN())
	if err != nil {
		return nil, &ConnectionError{Driver: driver, Host: opts.Host, Database: opts.Database, Err: err}
	}

	// One connection, owned by the run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		db.Close()
		return nil, &ConnectionError{Driver: driver, Host: opts.Host, Database: opts.Database, Err: pingErr}
	}

	return New(db, opts), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, opts Options) *Store {
	return &Store{
		db:         db,
		driver:     db.DriverName(),
		table:      opts.table(),
		owner:      opts.user(),
		duplicates: opts.Duplicates,
	}
}

// Table returns the unquoted table name.
func (s *Store) Table() string {
	return s.table
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// quotedTable returns the table name quoted as an identifier.
func (s *Store) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}
