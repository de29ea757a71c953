package crudr

import (
	"context"
	"database/sql"
)

// Exec is a convenience that runs the statement with context.Background().
func (s *Statement) Exec(db Execer) (sql.Result, error) {
	return s.ExecContext(context.Background(), db)
}

// ExecContext runs the statement as a non-query (insert/update/delete) and
// returns the driver's result. Execution errors pass through verbatim.
func (s *Statement) ExecContext(ctx context.Context, db Execer) (sql.Result, error) {
	return db.ExecContext(ctx, s.Query, s.Args()...)
}

// QueryRows is a convenience that runs the statement with
// context.Background(). (Named QueryRows rather than Query because the
// Statement.Query field already takes that name.)
func (s *Statement) QueryRows(db Queryer) (*sql.Rows, error) {
	return s.QueryContext(context.Background(), db)
}

// QueryContext runs the statement and returns the row reader unchanged.
// The caller owns rows.Close().
func (s *Statement) QueryContext(ctx context.Context, db Queryer) (*sql.Rows, error) {
	return db.QueryContext(ctx, s.Query, s.Args()...)
}

// Scalar is a convenience that runs the statement with context.Background().
func (s *Statement) Scalar(db Queryer) (any, error) {
	return s.ScalarContext(context.Background(), db)
}

// ScalarContext runs the statement and returns the first column of the first
// row. It returns sql.ErrNoRows when the result set is empty.
func (s *Statement) ScalarContext(ctx context.Context, db Queryer) (any, error) {
	rows, err := db.QueryContext(ctx, s.Query, s.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	var v any
	if err := rows.Scan(&v); err != nil {
		return nil, err
	}
	return v, rows.Err()
}
