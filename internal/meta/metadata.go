package meta

import (
	"slices"
	"sort"
)

// Well-known column roles.
const (
	// RoleOutcome marks target columns a model predicts.
	RoleOutcome = "outcome"
	// RoleFeature marks columns used as model inputs.
	RoleFeature = "feature"
	// RoleID marks row identifiers.
	RoleID = "id"
)

// Metadata holds the declared type and roles of each column.
//
// Metadata is read-only for the fit core: the With* methods return a
// modified copy and never change the receiver. A nil *Metadata is valid
// and declares nothing.
type Metadata struct {
	types map[string]DataType
	roles map[string][]string
}

// New returns empty metadata.
func New() *Metadata {
	return &Metadata{
		types: map[string]DataType{},
		roles: map[string][]string{},
	}
}

// FromSchema returns metadata declaring every schema column with its type.
func FromSchema(s Schema) *Metadata {
	md := New()
	for _, c := range s {
		md.types[c.Name] = c.Type
	}
	return md
}

func (m *Metadata) clone() *Metadata {
	out := New()
	if m == nil {
		return out
	}
	for k, v := range m.types {
		out.types[k] = v
	}
	for k, v := range m.roles {
		out.roles[k] = slices.Clone(v)
	}
	return out
}

// WithType returns a copy that declares column name as type dt.
func (m *Metadata) WithType(name string, dt DataType) *Metadata {
	out := m.clone()
	out.types[name] = dt
	return out
}

// WithRole returns a copy where each listed column carries role.
func (m *Metadata) WithRole(role string, columns ...string) *Metadata {
	out := m.clone()
	for _, c := range columns {
		if !slices.Contains(out.roles[c], role) {
			out.roles[c] = append(out.roles[c], role)
		}
	}
	return out
}

// Type returns the declared type of a column.
func (m *Metadata) Type(name string) (DataType, bool) {
	if m == nil {
		return TypeUnknown, false
	}
	dt, ok := m.types[name]
	return dt, ok
}

// HasRole reports whether the column carries role.
func (m *Metadata) HasRole(name, role string) bool {
	if m == nil {
		return false
	}
	return slices.Contains(m.roles[name], role)
}

// Roles returns the roles of a column in declaration order.
func (m *Metadata) Roles(name string) []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.roles[name])
}

// ColumnsWithRole returns every column carrying role, sorted by name.
func (m *Metadata) ColumnsWithRole(role string) []string {
	if m == nil {
		return nil
	}
	var cols []string
	for c, roles := range m.roles {
		if slices.Contains(roles, role) {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

// ColumnType resolves the type of a schema column: the metadata declaration
// wins, otherwise the schema's own type is used. ok is false when the column
// is not in the schema.
func ColumnType(s Schema, md *Metadata, name string) (DataType, bool) {
	col, ok := s.Lookup(name)
	if !ok {
		return TypeUnknown, false
	}
	if dt, declared := md.Type(name); declared {
		return dt, true
	}
	return col.Type, true
}
