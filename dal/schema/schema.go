// Package schema holds the attribute tables of the LOFAR data products:
// for every kind of group or dataset, the ordered list of attributes written
// when an object of that kind is created, with their types and defaults.
//
// The tables live in an embedded YAML document and are decoded once, on
// first use.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"
)

// Kind names a product group or dataset type.
type Kind string

const (
	Station          Kind = "Station"
	CommonAttributes Kind = "CommonAttributes"
	CoordinatesGroup Kind = "CoordinatesGroup"
	Coordinate       Kind = "Coordinate"
	StatBeam         Kind = "StatBeam"
	PrimaryPointing  Kind = "PrimaryPointing"
	Beam             Kind = "Beam"
	SysLog           Kind = "SysLog"
	TBBStation       Kind = "TBBStation"
	TBBDipole        Kind = "TBBDipole"
)

// Schema is the attribute table of one kind.
type Schema struct {
	Kind   Kind    `yaml:"kind"`
	Doc    string  `yaml:"doc"`
	Fields []Field `yaml:"fields"`
}

type document struct {
	Kinds []*Schema `yaml:"kinds"`
}

//go:embed registry.yaml
var registryYAML []byte

var (
	loadOnce sync.Once
	registry map[Kind]*Schema
	order    []Kind
	loadErr  error
)

func load() {
	registry, order, loadErr = parse(registryYAML)
}

func parse(data []byte) (map[Kind]*Schema, []Kind, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("schema registry: %w", err)
	}
	byKind := make(map[Kind]*Schema, len(doc.Kinds))
	var kinds []Kind
	for _, s := range doc.Kinds {
		if _, dup := byKind[s.Kind]; dup {
			return nil, nil, fmt.Errorf("schema registry: kind %s declared twice", s.Kind)
		}
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if seen[f.Name] {
				return nil, nil, fmt.Errorf("schema registry: %s.%s declared twice", s.Kind, f.Name)
			}
			seen[f.Name] = true
			if _, err := f.Value(); err != nil {
				return nil, nil, fmt.Errorf("schema registry: %s.%s: %w", s.Kind, f.Name, err)
			}
		}
		byKind[s.Kind] = s
		kinds = append(kinds, s.Kind)
	}
	return byKind, kinds, nil
}

// Lookup returns the schema of kind.
func Lookup(kind Kind) (*Schema, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	s, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", kind)
	}
	return s, nil
}

// Kinds lists the registered kinds in registry order.
func Kinds() []Kind {
	loadOnce.Do(load)
	return append([]Kind(nil), order...)
}

// Attributes returns the set of attribute names of the schema.
func (s *Schema) Attributes() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		set[f.Name] = struct{}{}
	}
	return set
}

// Names returns the attribute names in creation order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SortedNames returns the attribute names in ascending order.
func (s *Schema) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Field returns the field called name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
