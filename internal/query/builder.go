// Package query renders parameterized SELECT statements from a fixed base
// template and a list of optional caller filters. Caller values only ever
// travel through Statement.Args; the statement text is assembled from the
// base template, column identifiers declared by the endpoint and
// positional placeholders.
package query

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Row caps applied by Limit.
const (
	DefaultLimit = shared.DefaultPerPage
	MaxLimit     = shared.MaxPerPage
)

// Skip records a filter or sort option dropped during building.
type Skip struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// Statement is the rendered query and its bound arguments, in placeholder
// order.
type Statement struct {
	SQL     string
	Args    []any
	Skipped []Skip
}

// Builder accumulates predicates and their bound values. It is not safe
// for concurrent use; build one per request.
type Builder struct {
	base    string
	args    []any
	preds   []string
	skipped []Skip
	order   string
	limit   int
	offset  int
}

// New starts a builder from base, a fixed template ending in a WHERE clause
// such as "SELECT ... WHERE 1=1". leading binds the template's own
// placeholders ($1..$n); filter placeholders continue after them.
func New(base string, leading ...any) *Builder {
	return &Builder{
		base: strings.TrimSpace(base),
		args: append([]any(nil), leading...),
	}
}

// Where appends a predicate for every filter whose value is present and
// coercible. Empty values are skipped silently; values that fail coercion
// are skipped and reported in Statement.Skipped.
func (b *Builder) Where(filters ...Filter) *Builder {
	for _, f := range filters {
		b.where(f)
	}
	return b
}

func (b *Builder) where(f Filter) {
	value := strings.TrimSpace(f.Value)
	col := column(f.Column)

	switch f.Op {
	case DateRange:
		b.dateRange(f, col)
		return
	case Contains:
		if value == "" {
			return
		}
		b.preds = append(b.preds, col+" ILIKE "+b.bind(containsPattern(value)))
		return
	}

	if value == "" {
		return
	}
	v, err := coerce(f.Kind, value)
	if err != nil {
		b.skip(f.Column, err.Error())
		return
	}

	switch f.Op {
	case Eq:
		b.preds = append(b.preds, col+" = "+b.bind(v))
	case Gte:
		b.preds = append(b.preds, col+" >= "+b.bind(v))
	case Lte:
		b.preds = append(b.preds, col+" <= "+b.bind(v))
	case Near:
		tolerance, err := parseDecimal(strings.TrimSpace(f.Tolerance))
		if err != nil || tolerance.Int.Sign() < 0 {
			b.skip(f.Column, "invalid tolerance")
			return
		}
		b.preds = append(b.preds, "ABS("+col+" - "+b.bind(v)+") <= "+b.bind(tolerance))
	default:
		b.skip(f.Column, "unsupported operator")
	}
}

func (b *Builder) dateRange(f Filter, col string) {
	start := strings.TrimSpace(f.Value)
	end := strings.TrimSpace(f.To)
	if start != "" {
		if t, err := parseDate(start); err == nil {
			b.preds = append(b.preds, col+" >= "+b.bind(t))
		} else {
			b.skip(f.Column, "start "+err.Error())
		}
	}
	if end != "" {
		if t, err := parseDate(end); err == nil {
			b.preds = append(b.preds, col+" < "+b.bind(t.AddDate(0, 0, 1)))
		} else {
			b.skip(f.Column, "end "+err.Error())
		}
	}
}

// Sort declares the fields a caller may order by. Fields maps the public
// name to its column; Default is the public name used when the caller asks
// for nothing or for an unknown field. Tiebreak, when set, is a unique
// column appended in the same direction so paged reads are stable.
type Sort struct {
	Fields   map[string]string
	Default  string
	Tiebreak string
}

// OrderBy orders by the caller's field and direction when field is
// declared in s, and by s.Default descending otherwise. Direction defaults
// to descending.
func (b *Builder) OrderBy(s Sort, field, dir string) *Builder {
	field = strings.TrimSpace(field)
	desc := true
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		b.skip("dir", "unknown direction")
	}
	col, ok := s.Fields[field]
	if field != "" && !ok {
		b.skip(field, "unknown sort field")
	}
	if !ok {
		col = s.Fields[s.Default]
		desc = true
	}
	if col == "" {
		return b
	}
	suffix := " DESC"
	if !desc {
		suffix = " ASC"
	}
	b.order = column(col) + suffix
	if s.Tiebreak != "" && s.Tiebreak != col {
		b.order += ", " + column(s.Tiebreak) + suffix
	}
	return b
}

// Limit caps the row count. Non-positive values mean DefaultLimit; values
// above MaxLimit are clamped.
func (b *Builder) Limit(n int) *Builder {
	switch {
	case n <= 0:
		n = DefaultLimit
	case n > MaxLimit:
		n = MaxLimit
	}
	b.limit = n
	return b
}

// Paginate applies an explicit page window.
func (b *Builder) Paginate(p shared.Pagination) *Builder {
	b.Limit(p.PerPage)
	b.offset = p.Offset()
	return b
}

// Offset skips n rows. Negative values mean zero.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		n = 0
	}
	b.offset = n
	return b
}

// Build renders the statement in one pass. Limit and offset are integers
// owned by the builder and are rendered as literals, so the placeholder
// count equals the number of bound filter values plus the leading ones.
func (b *Builder) Build() Statement {
	var sb strings.Builder
	sb.WriteString(b.base)
	for _, p := range b.preds {
		sb.WriteString(" AND ")
		sb.WriteString(p)
	}
	if b.order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.order)
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(b.offset))
	}
	args := make([]any, len(b.args))
	copy(args, b.args)
	skipped := make([]Skip, len(b.skipped))
	copy(skipped, b.skipped)
	return Statement{SQL: sb.String(), Args: args, Skipped: skipped}
}

func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *Builder) skip(col, reason string) {
	b.skipped = append(b.skipped, Skip{Column: col, Reason: reason})
}

// column quotes a declared "alias.column" or "column" identifier.
func column(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// Columns lists the columns of skipped entries, in order.
func Columns(skipped []Skip) []string {
	cols := make([]string, len(skipped))
	for i, s := range skipped {
		cols[i] = s.Column
	}
	return cols
}
