package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldDef is one entry of an ordered name: type mapping. Types are
// interface-schema type text, e.g. "nat64" or "opt text".
type FieldDef struct {
	Name string
	Type string
}

// Fields is a YAML mapping whose key order is significant.
type Fields []FieldDef

func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of field names to types", node.Line)
	}
	out := make(Fields, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: type of field '%s' must be a scalar", v.Line, k.Value)
		}
		out = append(out, FieldDef{Name: k.Value, Type: v.Value})
	}
	*f = out
	return nil
}

func (f Fields) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: d.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: d.Type},
		)
	}
	return node, nil
}

// Names lists the field names in order.
func (f Fields) Names() []string {
	out := make([]string, 0, len(f))
	for _, d := range f {
		out = append(out, d.Name)
	}
	return out
}

// Duplicate returns the first name that occurs twice.
func (f Fields) Duplicate() (string, bool) {
	seen := make(map[string]bool, len(f))
	for _, d := range f {
		if seen[d.Name] {
			return d.Name, true
		}
		seen[d.Name] = true
	}
	return "", false
}

// Pair is one entry of an ordered string mapping.
type Pair struct {
	Name  string
	Value string
}

// Pairs is an ordered string mapping, used for HTTP headers and queries.
type Pairs []Pair

func (p *Pairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of names to values", node.Line)
	}
	out := make(Pairs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of '%s' must be a scalar", v.Line, k.Value)
		}
		out = append(out, Pair{Name: k.Value, Value: v.Value})
	}
	*p = out
	return nil
}

func (p Pairs) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Value},
		)
	}
	return node, nil
}
