// Package allowlist maps externally supplied dataset names to the physical
// tables they may be read from. The registry is closed: a name that is not
// registered is rejected before any SQL is built.
package allowlist

import (
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/bemobi-ops/ops-console/internal/shared"
)

// Table is a physical, schema-qualified backing table.
type Table struct {
	Schema string
	Name   string
}

// Ident returns the quoted identifier safe to interpolate into SQL text.
func (t Table) Ident() string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// String renders the unquoted qualified name for logs.
func (t Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Registry is an immutable logical name to table mapping.
type Registry struct {
	entries map[string]Table
}

// New builds a registry from the given entries.
func New(entries map[string]Table) *Registry {
	copied := make(map[string]Table, len(entries))
	for name, table := range entries {
		copied[name] = table
	}
	return &Registry{entries: copied}
}

// Resolve returns the table registered under logicalName. The match is exact
// and case sensitive; anything else fails with shared.ErrUnknownResource.
func (r *Registry) Resolve(logicalName string) (Table, error) {
	if r != nil {
		if table, ok := r.entries[logicalName]; ok {
			return table, nil
		}
	}
	return Table{}, fmt.Errorf("%w %q", shared.ErrUnknownResource, logicalName)
}

// Names lists the registered logical names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
