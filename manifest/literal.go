package manifest

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LiteralKind is the YAML scalar type of a literal argument.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralInt:
		return "int"
	case LiteralFloat:
		return "float"
	case LiteralBool:
		return "bool"
	}
	return fmt.Sprintf("LiteralKind(%d)", int(k))
}

var digitsOnly = regexp.MustCompile(`^[-+]?[0-9_]+$`)

// In-memory representation of a literal method argument.
// Raw keeps the scalar text exactly as written so integers of any width survive.
type Literal struct {
	Kind LiteralKind
	Raw  string
}

// StringLiteral is a convenience constructor for a string literal.
func StringLiteral(s string) Literal {
	return Literal{Kind: LiteralString, Raw: s}
}

// IntLiteral is a convenience constructor for an integer literal.
func IntLiteral(n int64) Literal {
	return Literal{Kind: LiteralInt, Raw: fmt.Sprintf("%d", n)}
}

func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: method arguments must be scalars", node.Line)
	}
	l.Raw = node.Value
	switch node.ShortTag() {
	case "!!int":
		l.Kind = LiteralInt
	case "!!float":
		// yaml resolves integers that overflow 64 bits as floats
		if digitsOnly.MatchString(node.Value) {
			l.Kind = LiteralInt
		} else {
			l.Kind = LiteralFloat
		}
	case "!!bool":
		l.Kind = LiteralBool
	case "!!str":
		l.Kind = LiteralString
	default:
		return fmt.Errorf("line %d: unsupported literal %s", node.Line, node.ShortTag())
	}
	return nil
}

func (l Literal) MarshalYAML() (interface{}, error) {
	tag := "!!str"
	style := yaml.Style(0)
	switch l.Kind {
	case LiteralInt:
		tag = "!!int"
	case LiteralFloat:
		tag = "!!float"
	case LiteralBool:
		tag = "!!bool"
	default:
		style = yaml.DoubleQuotedStyle
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: l.Raw, Style: style}, nil
}

// Int parses an integer literal, honoring 0x/0o/0b prefixes.
func (l Literal) Int() (*big.Int, error) {
	if l.Kind != LiteralInt {
		return nil, fmt.Errorf("%s literal '%s' is not an integer", l.Kind, l.Raw)
	}
	n, ok := new(big.Int).SetString(strings.ReplaceAll(l.Raw, "_", ""), 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer literal '%s'", l.Raw)
	}
	return n, nil
}

func (l Literal) String() string {
	return l.Raw
}
