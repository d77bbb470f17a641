package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaFile is the YAML representation of a schema.
type SchemaFile struct {
	TopNode string         `yaml:"topNode"`
	Nodes   []NodeSpecYAML `yaml:"nodes"`
	Marks   []MarkSpecYAML `yaml:"marks"`
}

// NodeSpecYAML is the YAML representation of a node type.
type NodeSpecYAML struct {
	Name     string    `yaml:"name"`
	Content  string    `yaml:"content"`
	Marks    *string   `yaml:"marks"`
	Group    string    `yaml:"group"`
	Inline   bool      `yaml:"inline"`
	Atom     bool      `yaml:"atom"`
	Defining bool      `yaml:"defining"`
	Attrs    yaml.Node `yaml:"attrs"`
}

// MarkSpecYAML is the YAML representation of a mark type.
type MarkSpecYAML struct {
	Name      string    `yaml:"name"`
	Inclusive *bool     `yaml:"inclusive"`
	Excludes  *string   `yaml:"excludes"`
	Group     string    `yaml:"group"`
	Attrs     yaml.Node `yaml:"attrs"`
}

// LoadSchemaYAML compiles a schema from YAML. Attributes are a mapping from
// name to an optional {default: value}; an attribute without a default key
// is required.
//
//	nodes:
//	  - name: image
//	    inline: true
//	    attrs:
//	      src: {}
//	      title: {default: null}
func LoadSchemaYAML(data []byte) (*Schema, error) {
	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidSchema, err)
	}
	spec := SchemaSpec{TopNode: file.TopNode}
	for _, n := range file.Nodes {
		attrs, err := attrSpecsFromYAML(&n.Attrs)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidSchema, n.Name, err)
		}
		spec.Nodes = append(spec.Nodes, NodeSpec{
			Name:     n.Name,
			Content:  n.Content,
			Marks:    n.Marks,
			Group:    n.Group,
			Inline:   n.Inline,
			Atom:     n.Atom,
			Defining: n.Defining,
			Attrs:    attrs,
		})
	}
	for _, m := range file.Marks {
		attrs, err := attrSpecsFromYAML(&m.Attrs)
		if err != nil {
			return nil, fmt.Errorf("%w: mark %q: %v", ErrInvalidSchema, m.Name, err)
		}
		spec.Marks = append(spec.Marks, MarkSpec{
			Name:      m.Name,
			Attrs:     attrs,
			Inclusive: m.Inclusive,
			Excludes:  m.Excludes,
			Group:     m.Group,
		})
	}
	return NewSchema(spec)
}

// LoadSchemaFile reads and compiles a YAML schema file.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return LoadSchemaYAML(data)
}

func attrSpecsFromYAML(node *yaml.Node) ([]AttributeSpec, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("attrs must be a mapping (line %d)", node.Line)
	}
	var specs []AttributeSpec
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		spec := AttributeSpec{Name: key.Value}
		if value.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(value.Content); j += 2 {
				if value.Content[j].Value != "default" {
					continue
				}
				var def any
				if err := value.Content[j+1].Decode(&def); err != nil {
					return nil, fmt.Errorf("attr %q default: %w", key.Value, err)
				}
				spec.Default, spec.HasDefault = def, true
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
