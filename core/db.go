package core

import (
	"context"
	"database/sql"
	"strings"
)

type (
	// DBExecutor runs queries. *sql.DB and *sql.Tx both satisfy it, so
	// repositories take an optional one to join the caller's transaction.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DB is a DBExecutor that can open checkpoint transactions.
	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}
)

// DBOrdering is one ORDER BY term of a progress report.
type DBOrdering struct {
	Field     string
	Ascending bool
}

// ParseDBOrderings reads a comma separated list of fields, e.g. "-completed,student_id".
// A leading "-" sorts the field in descending order. Blank fields are skipped.
func ParseDBOrderings(s string) []DBOrdering {
	var ordering []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		field = strings.TrimSpace(strings.TrimPrefix(field, "-"))
		if field == "" {
			continue
		}
		ordering = append(ordering, DBOrdering{Field: field, Ascending: !descending})
	}
	return ordering
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
