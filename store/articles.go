package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pevans/galnetdb/epoch"
)

// articleColumns lists the columns for SELECT queries on the articles table.
const articleColumns = `"ID", "Title", "UID", "dateReleased", "dateAdded", "Text"`

// Article is one row of the articles table.
type Article struct {
	ID           int64      `db:"ID" json:"id"`
	Title        string     `db:"Title" json:"title"`
	UID          string     `db:"UID" json:"uid"`
	DateReleased epoch.Date `db:"dateReleased" json:"date_released"`
	DateAdded    epoch.Date `db:"dateAdded" json:"date_added"`
	Text         string     `db:"Text" json:"text"`
}

// Filter narrows List and Count.
type Filter struct {
	Query  string     // case-insensitive match on title or text
	From   epoch.Date // inclusive lower bound on dateReleased
	To     epoch.Date // inclusive upper bound on dateReleased
	Limit  int
	Offset int
}

// Insert writes a as a new row and returns its ID. The five values are
// bound as parameters in the order Title, UID, dateReleased, dateAdded,
// Text. Under DuplicateReject an existing UID yields a DuplicateError and
// nothing is written.
func (s *Store) Insert(ctx context.Context, a Article) (int64, error) {
	if s.duplicates == DuplicateReject {
		exists, err := s.Exists(ctx, a.UID)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, &DuplicateError{UID: a.UID}
		}
	}

	query := s.db.Rebind(fmt.Sprintf(`INSERT INTO %s ("Title", "UID", "dateReleased", "dateAdded", "Text")
		VALUES (?, ?, ?, ?, ?) RETURNING "ID"`, s.quotedTable()))

	var id int64
	err := s.db.QueryRowxContext(ctx, query, a.Title, a.UID, a.DateReleased, a.DateAdded, a.Text).Scan(&id)
	if err != nil {
		return 0, &StoreError{Op: "insert article " + a.UID, Err: err}
	}

	return id, nil
}

// Exists reports whether a row with uid is stored.
func (s *Store) Exists(ctx context.Context, uid string) (bool, error) {
	query := s.db.Rebind(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE "UID" = ?`, s.quotedTable()))

	var n int
	if err := s.db.GetContext(ctx, &n, query, uid); err != nil {
		return false, &StoreError{Op: "look up article " + uid, Err: err}
	}
	return n > 0, nil
}

// GetByUID returns the first stored row for uid.
func (s *Store) GetByUID(ctx context.Context, uid string) (*Article, error) {
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE "UID" = ? ORDER BY "ID" LIMIT 1`,
		articleColumns, s.quotedTable()))

	var a Article
	if err := s.db.GetContext(ctx, &a, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, &StoreError{Op: "get article " + uid, Err: err}
	}
	return &a, nil
}

// List returns the rows matching f, oldest release first.
func (s *Store) List(ctx context.Context, f Filter) ([]Article, error) {
	where, args := s.where(f)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY "dateReleased", "ID"`,
		articleColumns, s.quotedTable(), where)

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	articles := []Article{}
	if err := s.db.SelectContext(ctx, &articles, s.db.Rebind(query), args...); err != nil {
		return nil, &StoreError{Op: "list articles", Err: err}
	}
	return articles, nil
}

// Count returns the number of rows matching f. Limit and Offset are
// ignored.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	where, args := s.where(f)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.quotedTable(), where)

	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, &StoreError{Op: "count articles", Err: err}
	}
	return n, nil
}

// where builds the WHERE clause for f with "?" placeholders.
func (s *Store) where(f Filter) (string, []any) {
	var clauses []string
	var args []any

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		clauses = append(clauses, `(LOWER("Title") LIKE ? OR LOWER("Text") LIKE ?)`)
		args = append(args, pattern, pattern)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, `"dateReleased" >= ?`)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		clauses = append(clauses, `"dateReleased" <= ?`)
		args = append(args, f.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
