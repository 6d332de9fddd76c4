package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

func coerce(kind Kind, raw string) (any, error) {
	switch kind {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return n, nil
	case Decimal:
		return parseDecimal(raw)
	case Date:
		return parseDate(raw)
	default:
		return raw, nil
	}
}

// parseDecimal accepts "1234.56" and the Brazilian "1234,56".
func parseDecimal(raw string) (pgtype.Numeric, error) {
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	var n pgtype.Numeric
	if err := n.Scan(raw); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("not a decimal")
	}
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return pgtype.Numeric{}, fmt.Errorf("not a finite decimal")
	}
	return n, nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a %s date", DateLayout)
	}
	return t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(raw string) string {
	return "%" + likeEscaper.Replace(raw) + "%"
}
