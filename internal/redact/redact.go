// Package redact strips regulated columns from result rows before they are
// returned to callers.
package redact

// Row is one result record keyed by column name.
type Row = map[string]any

// Fields removed from antifraud dataset rows: analysis identifiers,
// internal scores, contact data and street-level address components.
var AntifraudFields = []string{
	"analysis_id",
	"recurrence_external_id",
	"test_ab",
	"transaction_approved",
	"domain_id",
	"hierarchy",
	"customer_email",
	"risk_score",
	"customer_contract_number",
	"customer_address_city",
	"customer_address_state",
	"customer_address_street",
	"customer_address_number",
	"customer_address_complement",
	"customer_address_neighborhood",
	"customer_address_zipcode",
	"context_invoices",
	"context_tags",
}

// Fields removed from card payment rows.
var PaymentFields = []string{
	"card_token",
	"card_pan",
	"customer_email",
	"holder_document",
	"risk_score",
}

// Fields removed from BolePIX provider payloads.
var BolepixFields = []string{
	"payer_document",
	"payer_email",
	"payer_address",
	"emv",
}

// Redactor removes a fixed set of keys. The zero value removes nothing.
type Redactor struct {
	deny map[string]struct{}
}

// New returns a Redactor for the given column names.
func New(fields ...string) *Redactor {
	deny := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		deny[f] = struct{}{}
	}
	return &Redactor{deny: deny}
}

// Denies reports whether field is removed.
func (r *Redactor) Denies(field string) bool {
	if r == nil {
		return false
	}
	_, ok := r.deny[field]
	return ok
}

// ApplyOne returns a copy of row without the denied keys. A nil row stays nil.
func (r *Redactor) ApplyOne(row Row) Row {
	if row == nil {
		return nil
	}
	out := make(Row, len(row))
	for k, v := range row {
		if r.Denies(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Apply redacts every row, preserving order. The input rows are not
// modified. A nil slice yields an empty, non-nil slice so that list
// responses encode as [].
func (r *Redactor) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.ApplyOne(row))
	}
	return out
}
