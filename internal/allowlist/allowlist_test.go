package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

func TestResolveKnownDataset(t *testing.T) {
	table, err := Antifraud().Resolve("dts_light")
	require.NoError(t, err)
	assert.Equal(t, Table{Schema: AntifraudSchema, Name: "dts_light"}, table)
	assert.Equal(t, `"refined_service_prevention"."dts_light"`, table.Ident())
	assert.Equal(t, "refined_service_prevention.dts_light", table.String())
}

func TestResolveRejectsUnknownNames(t *testing.T) {
	reg := Antifraud()
	for _, name := range []string{
		"dts_unknown_table",
		"DTS_LIGHT",
		" dts_light",
		"dts_light ",
		"dts_%",
		"dts_light; DROP TABLE users",
		"refined_service_prevention.dts_light",
		"",
	} {
		_, err := reg.Resolve(name)
		assert.ErrorIs(t, err, shared.ErrUnknownResource, name)
		assert.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestNamesSortedAndComplete(t *testing.T) {
	names := Antifraud().Names()
	assert.Len(t, names, 19)
	assert.IsIncreasing(t, names)
	assert.Equal(t, "dts_7az", names[0])
}

func TestRegistryIsImmutable(t *testing.T) {
	entries := map[string]Table{"a": {Name: "a"}}
	reg := New(entries)
	entries["b"] = Table{Name: "b"}

	_, err := reg.Resolve("b")
	assert.Error(t, err)
	assert.Equal(t, `"a"`, Table{Name: "a"}.Ident())

	var nilReg *Registry
	_, err = nilReg.Resolve("a")
	assert.ErrorIs(t, err, shared.ErrUnknownResource)
}

func TestPaymentsRegistry(t *testing.T) {
	reg := Payments()
	assert.Equal(t, []string{SourceGMA, SourcePosNegado}, reg.Names())

	table, err := reg.Resolve(SourcePosNegado)
	assert.NoError(t, err)
	assert.Equal(t, `"posnegado"."transactions"`, table.Ident())

	_, err = reg.Resolve("cielo")
	assert.ErrorIs(t, err, shared.ErrUnknownResource)
}
