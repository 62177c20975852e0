package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrArticleNotFound is returned by lookups that match no row.
var ErrArticleNotFound = errors.New("article not found")

// pgDuplicateTable is the SQLSTATE for CREATE TABLE on an existing table.
const pgDuplicateTable = "42P07"

// ConnectionError is returned when the store cannot be reached or refuses
// the credentials.
type ConnectionError struct {
	Driver   string
	Host     string
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("connect %s database %q: %v", e.Driver, e.Database, e.Err)
	}
	return fmt.Sprintf("connect %s database %q on %s: %v", e.Driver, e.Database, e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SchemaError is returned when the articles table cannot be created.
// Exists is set when the failure is a table that is already there.
type SchemaError struct {
	Table  string
	Exists bool
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Exists {
		return fmt.Sprintf("create table %q: table already exists", e.Table)
	}
	return fmt.Sprintf("create table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// StoreError is returned when a statement against the articles table fails.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DuplicateError is returned by Insert under DuplicateReject when a row with
// the same UID already exists.
type DuplicateError struct {
	UID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("article %q already stored", e.UID)
}

// isDuplicateTable reports whether err is a CREATE TABLE conflict.
func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgDuplicateTable
	}
	return strings.Contains(err.Error(), "already exists")
}
