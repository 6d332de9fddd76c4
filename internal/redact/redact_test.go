package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRemovesOnlyDeniedKeys(t *testing.T) {
	r := New(AntifraudFields...)
	rows := []Row{
		{"customer_document": "123", "risk_score": 87, "amount": "10.00", "customer_address_street": "Rua A"},
		{"customer_document": "123", "customer_email": "a@b.com", "status": "DENIED"},
	}

	out := r.Apply(rows)

	require.Len(t, out, 2)
	assert.Equal(t, Row{"customer_document": "123", "amount": "10.00"}, out[0])
	assert.Equal(t, Row{"customer_document": "123", "status": "DENIED"}, out[1])
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	r := New(PaymentFields...)
	row := Row{"card_token": "tok_1", "nsu": "0001"}

	out := r.ApplyOne(row)
	out["nsu"] = "changed"

	assert.Equal(t, Row{"card_token": "tok_1", "nsu": "0001"}, row)
}

func TestApplyIsIdempotent(t *testing.T) {
	r := New(AntifraudFields...)
	rows := []Row{{"analysis_id": 1, "hierarchy": "x", "name": "Ana"}, {}}

	once := r.Apply(rows)
	twice := r.Apply(once)
	assert.Equal(t, once, twice)
}

func TestApplyEmptyInput(t *testing.T) {
	out := New("x").Apply(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Nil(t, New("x").ApplyOne(nil))
}

func TestZeroRedactorKeepsEverything(t *testing.T) {
	var r *Redactor
	row := Row{"a": 1}
	assert.Equal(t, row, r.ApplyOne(row))
	assert.False(t, r.Denies("a"))
}
