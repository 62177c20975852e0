package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// CreateTable creates the articles table. On PostgreSQL the table is handed
// to the connecting role. The statement is a plain CREATE TABLE, so a second
// call against the same table fails with a SchemaError.
func (s *Store) CreateTable(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &SchemaError{Table: s.table, Err: err}
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, s.createTableSQL()); err != nil {
		return &SchemaError{Table: s.table, Exists: isDuplicateTable(err), Err: err}
	}

	if s.driver == DriverPostgres {
		owner := fmt.Sprintf(`ALTER TABLE %s OWNER TO %s`, s.quotedTable(), pq.QuoteIdentifier(s.owner))
		if _, err := tx.ExecContext(ctx, owner); err != nil {
			return &SchemaError{Table: s.table, Err: fmt.Errorf("failed to set owner: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &SchemaError{Table: s.table, Err: err}
	}
	return nil
}

func (s *Store) createTableSQL() string {
	if s.driver == DriverSQLite {
		return fmt.Sprintf(`CREATE TABLE %s (
		"ID" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Title" TEXT,
		"UID" TEXT,
		"dateReleased" DATE,
		"dateAdded" DATE,
		"Text" TEXT
	)`, s.quotedTable())
	}

	return fmt.Sprintf(`CREATE TABLE %s (
		"ID" serial NOT NULL,
		"Title" text,
		"UID" text,
		"dateReleased" date,
		"dateAdded" date,
		"Text" text,
		PRIMARY KEY ("ID")
	)`, s.quotedTable())
}
