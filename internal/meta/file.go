package meta

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of metadata.
//
//	types:
//	  zip: string
//	roles:
//	  outcome: [price]
//	  id: [row_id]
type File struct {
	Types map[string]DataType `yaml:"types,omitempty"`
	Roles map[string][]string `yaml:"roles,omitempty"`
}

// Parse decodes YAML metadata and layers it over base. Declarations in the
// document win over base types. base may be nil.
func Parse(data []byte, base *Metadata) (*Metadata, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	return f.Apply(base), nil
}

// Apply layers the file's declarations over base and returns the result.
// base is not modified and may be nil.
func (f File) Apply(base *Metadata) *Metadata {
	md := base.clone()
	for name, dt := range f.Types {
		md = md.WithType(name, dt)
	}
	for role, cols := range f.Roles {
		md = md.WithRole(role, cols...)
	}
	return md
}

// LoadFile reads a YAML metadata file and layers it over base.
func LoadFile(path string, base *Metadata) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	return Parse(data, base)
}
