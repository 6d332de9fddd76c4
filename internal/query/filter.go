package query

import (
	"strings"
)

// Op selects how a filter value is compared to its column.
type Op int

const (
	// Eq compares for exact equality.
	Eq Op = iota
	// Contains matches a substring, case-insensitively.
	Contains
	// Gte binds a lower bound.
	Gte
	// Lte binds an upper bound.
	Lte
	// DateRange matches [Value, To + 1 day), so To covers its whole calendar day.
	DateRange
	// Near matches values within Tolerance of Value.
	Near
)

// Kind is the type a raw filter value is coerced into before binding.
type Kind int

const (
	// Text binds the trimmed string.
	Text Kind = iota
	// Int binds an int64.
	Int
	// Decimal binds an exact pgtype.Numeric.
	Decimal
	// Date binds a UTC midnight time.Time parsed from YYYY-MM-DD.
	Date
)

// DateLayout is the accepted date filter format.
const DateLayout = "2006-01-02"

// Filter is one optional predicate. Column comes from the endpoint
// definition and is never caller input; Value, To and Tolerance are raw
// caller input and are only ever bound as arguments.
type Filter struct {
	Column    string
	Op        Op
	Kind      Kind
	Value     string
	To        string
	Tolerance string
}

// Equal builds an exact-match filter.
func Equal(column string, kind Kind, value string) Filter {
	return Filter{Column: column, Op: Eq, Kind: kind, Value: value}
}

// Like builds a substring filter over a text column.
func Like(column, value string) Filter {
	return Filter{Column: column, Op: Contains, Kind: Text, Value: value}
}

// Between builds an inclusive calendar-day range over a timestamp column.
func Between(column, start, end string) Filter {
	return Filter{Column: column, Op: DateRange, Kind: Date, Value: start, To: end}
}

// Approx builds a proximity filter over a decimal column.
func Approx(column, value, tolerance string) Filter {
	return Filter{Column: column, Op: Near, Kind: Decimal, Value: value, Tolerance: tolerance}
}

// MatchMode chooses between exact and partial identifier matching.
type MatchMode string

const (
	// MatchExact compares for equality.
	MatchExact MatchMode = "exact"
	// MatchContains compares as a substring.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode defaults to MatchExact for anything but "contains".
func ParseMatchMode(raw string) MatchMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(MatchContains)) {
		return MatchContains
	}
	return MatchExact
}

// Match builds an identifier filter in the given mode. The two modes are
// distinct operators; exact never falls back to partial.
func Match(column, value string, mode MatchMode) Filter {
	if mode == MatchContains {
		return Like(column, value)
	}
	return Equal(column, Text, value)
}

// Amount builds a monetary filter: exact decimal equality unless a
// tolerance is supplied.
func Amount(column, value, tolerance string) Filter {
	if strings.TrimSpace(tolerance) == "" {
		return Equal(column, Decimal, value)
	}
	return Approx(column, value, tolerance)
}
