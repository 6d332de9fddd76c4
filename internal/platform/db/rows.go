package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// QueryMaps runs sql and collects every row as a column-keyed map. Errors
// are classified with Classify under op. Zero rows yield an empty, non-nil
// slice.
func QueryMaps(ctx context.Context, q Querier, op, sql string, args ...any) ([]map[string]any, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, Classify(op, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, Classify(op, err)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}
