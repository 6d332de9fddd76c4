package rbac

import (
	"github.com/bemobi-ops/ops-console/internal/shared"
)

var catalog = []Capability{
	{Tag: shared.PermHome, Label: "Início"},
	{Tag: shared.PermAntifraude, Label: "Consulta Antifraude"},
	{Tag: shared.PermBolepix, Label: "Consulta BolePIX"},
	{Tag: shared.PermCieloGerarToken, Label: "Cielo - Gerar Token"},
	{Tag: shared.PermCieloSolicitarCancelamento, Label: "Cielo - Solicitar Cancelamento"},
	{Tag: shared.PermCieloCartaCancelamento, Label: "Cielo - Carta de Cancelamento"},
	{Tag: shared.PermCieloCancelamentoPM, Label: "Cielo - Cancelamento PM"},
	{Tag: shared.PermPagamentosGMA, Label: "Pagamentos GMA"},
	{Tag: shared.PermPagamentosPosNegado, Label: "Pagamentos Pós-Negado"},
	{Tag: shared.PermUsuarios, Label: "Gerenciar Usuários"},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, c := range catalog {
		idx[c.Tag] = i
	}
	return idx
}()

// Catalog returns the capability catalog in display order.
func Catalog() []Capability {
	out := make([]Capability, len(catalog))
	copy(out, catalog)
	return out
}

// Labels maps each tag to its human label.
func Labels() map[string]string {
	labels := make(map[string]string, len(catalog))
	for _, c := range catalog {
		labels[c.Tag] = c.Label
	}
	return labels
}

// FullCatalog returns every tag, the permission set of an admin.
func FullCatalog() []string {
	tags := make([]string, len(catalog))
	for i, c := range catalog {
		tags[i] = c.Tag
	}
	return tags
}

// Known reports whether tag belongs to the catalog.
func Known(tag string) bool {
	_, ok := catalogIndex[tag]
	return ok
}

// Sanitize keeps the tags present in the catalog, deduplicated and in
// catalog order. Unknown tags are dropped without error.
func Sanitize(tags []string) []string {
	seen := make([]bool, len(catalog))
	for _, tag := range tags {
		if i, ok := catalogIndex[tag]; ok {
			seen[i] = true
		}
	}
	out := make([]string, 0, len(tags))
	for i, ok := range seen {
		if ok {
			out = append(out, catalog[i].Tag)
		}
	}
	return out
}

// EffectivePermissions returns the permission set a user of the given role
// actually holds.
func EffectivePermissions(role Role, stored []string) []string {
	if role == RoleAdmin {
		return FullCatalog()
	}
	return Sanitize(stored)
}
