// Package dbtest provides in-memory stand-ins for pgx query results.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one statement received by a Querier.
type Call struct {
	SQL  string
	Args []any
}

// Querier answers every Query with a fixed result set or error and records
// what it was asked.
type Querier struct {
	mu      sync.Mutex
	Columns []string
	Data    [][]any
	Err     error
	// Block makes Query wait for the context to end and return its error.
	Block bool
	calls []Call
}

// Query implements db.Querier.
func (q *Querier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.mu.Lock()
	q.calls = append(q.calls, Call{SQL: sql, Args: args})
	q.mu.Unlock()
	if q.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if q.Err != nil {
		return nil, q.Err
	}
	return &Rows{Columns: q.Columns, Data: q.Data}, nil
}

// QueryRow implements db.Querier.
func (q *Querier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	rows, err := q.Query(ctx, sql, args...)
	return &row{rows: rows, err: err}
}

// Calls returns the recorded statements.
func (q *Querier) Calls() []Call {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Call(nil), q.calls...)
}

// Last returns the most recent statement.
func (q *Querier) Last() Call {
	calls := q.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

// Rows is a pgx.Rows over in-memory values.
type Rows struct {
	Columns []string
	Data    [][]any
	idx     int
	closed  bool
}

// Close implements pgx.Rows.
func (r *Rows) Close() { r.closed = true }

// Err implements pgx.Rows.
func (r *Rows) Err() error { return nil }

// CommandTag implements pgx.Rows.
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }

// FieldDescriptions implements pgx.Rows.
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

// Next implements pgx.Rows.
func (r *Rows) Next() bool {
	if r.closed || r.idx >= len(r.Data) {
		r.closed = true
		return false
	}
	r.idx++
	return true
}

// Scan implements pgx.Rows for pgx.RowScanner destinations, such as the
// ones behind pgx.RowToMap, and for pointers whose element type the stored
// value is assignable to. A nil value zeroes the destination.
func (r *Rows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	values, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(values) {
		return errors.New("dbtest: scan arity mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *any:
			*p = values[i]
		case *string:
			s, _ := values[i].(string)
			*p = s
		case *int64:
			n, _ := values[i].(int64)
			*p = n
		default:
			if err := assign(d, values[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("dbtest: scan destination %T is not a pointer", dest)
	}
	target := dv.Elem()
	if value == nil {
		target.SetZero()
		return nil
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("dbtest: cannot scan %T into %s", value, target.Type())
	}
	target.Set(v)
	return nil
}

// Values implements pgx.Rows.
func (r *Rows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.Data) {
		return nil, errors.New("dbtest: no current row")
	}
	return r.Data[r.idx-1], nil
}

// RawValues implements pgx.Rows.
func (r *Rows) RawValues() [][]byte { return nil }

// Conn implements pgx.Rows.
func (r *Rows) Conn() *pgx.Conn { return nil }

type row struct {
	rows pgx.Rows
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}
