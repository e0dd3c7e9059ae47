// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlEntity accepts either `entity: user` or `entity: {name: user}`.
type yamlEntity struct {
	Name string
}

func (e *yamlEntity) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.Name)
	case yaml.MappingNode:
		var d EntityDescriptor
		if err := node.Decode(&d); err != nil {
			return err
		}
		e.Name = d.Name
		return nil
	}
	return fmt.Errorf("line %d: entity must be a string or a mapping", node.Line)
}

type yamlField struct {
	Shape           string   `yaml:"shape"`
	Nullable        *bool    `yaml:"nullable"`
	OverridesOnNull *bool    `yaml:"overridesOnNull"`
	Min             *float64 `yaml:"min"`
	Max             *float64 `yaml:"max"`
	MinLength       *int32   `yaml:"minLength"`
	MaxLength       *int32   `yaml:"maxLength"`
	Regex           *string  `yaml:"regex"`
}

type yamlDeclaration struct {
	Entity *yamlEntity           `yaml:"entity"`
	Name   string                `yaml:"name"`
	Fields map[string]*yamlField `yaml:"fields"`
}

// ParseDeclarations reads declarations from a YAML document of the form:
//
//	entities:
//	  - entity: user
//	    fields:
//	      username: {shape: string, nullable: false, minLength: 3}
//	      age: {shape: number, min: 18}
//
// `name: user` may be used instead of `entity:`. An entry with neither yields
// a declaration without an entity, which GenerateDeclaration rejects.
func ParseDeclarations(data []byte) ([]Declaration, error) {
	var doc struct {
		Entities []yamlDeclaration `yaml:"entities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: parsing declarations: %w", err)
	}

	decls := make([]Declaration, 0, len(doc.Entities))
	for i, yd := range doc.Entities {
		decl := Declaration{Fields: make(map[string]FieldOptions, len(yd.Fields))}
		name := yd.Name
		if yd.Entity != nil && yd.Entity.Name != "" {
			name = yd.Entity.Name
		}
		if name != "" {
			decl.Entity = &EntityDescriptor{Name: name}
		}
		for fname, yf := range yd.Fields {
			if fname == "" {
				return nil, fmt.Errorf("schema: entity %d: %w", i, ErrEmptyFieldName)
			}
			if yf == nil {
				yf = &yamlField{}
			}
			shape, err := ParseShape(yf.Shape)
			if err != nil {
				return nil, fmt.Errorf("schema: entity %q field %q: %w", name, fname, err)
			}
			decl.Fields[fname] = FieldOptions{
				Shape:           shape,
				Nullable:        yf.Nullable,
				OverridesOnNull: yf.OverridesOnNull,
				Min:             yf.Min,
				Max:             yf.Max,
				MinLength:       yf.MinLength,
				MaxLength:       yf.MaxLength,
				Regex:           yf.Regex,
			}
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// LoadDeclarations reads and parses a YAML declarations file.
func LoadDeclarations(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDeclarations(data)
}
