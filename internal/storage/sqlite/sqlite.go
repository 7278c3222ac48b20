// Package sqlite implements the storage contracts on database/sql
// with SQLite. Repositories are bound to a transaction owned by the
// unit-of-work factory; they never begin or end transactions
// themselves.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"animehub/internal/storage"
)

// querier is the subset of *sql.Tx the repositories need. *sql.DB
// satisfies it too, which keeps one-off tools simple.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapUniqueErr converts a SQLite UNIQUE violation into
// storage.ErrAlreadyExists so a create that loses the
// check-then-insert race fails the same way as one caught by the
// service pre-check. Other errors pass through untouched.
func mapUniqueErr(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return storage.ErrAlreadyExists
	}
	return err
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
