package candid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jshufro/componentgen/errdefs"
)

// Names of the aliases synthesized for a method signature.
const (
	RequestArgsTypeName = "RequestArgsType"
	ResponseTypeName    = "ResponseType"
)

// Shape classifies a resolved argument or response type.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeTuple
	ShapeStruct
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeTuple:
		return "tuple"
	case ShapeStruct:
		return "struct"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ResolvedType is a request or response type after resolution. Scalars hold
// one element, tuples one per position, structs their fields.
type ResolvedType struct {
	Name   string
	Shape  Shape
	Elems  []Type
	Fields []Field
}

func (r *ResolvedType) String() string {
	switch r.Shape {
	case ShapeTuple:
		return typesString(r.Elems)
	case ShapeStruct:
		parts := make([]string, 0, len(r.Fields))
		for _, f := range r.Fields {
			parts = append(parts, displayName(f)+": "+f.Type.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if len(r.Elems) == 0 {
		return "null"
	}
	return r.Elems[0].String()
}

// CanisterMethodIdentifier is a parsed remote-procedure signature such as
// "get_value : (nat64) -> (text)".
type CanisterMethodIdentifier struct {
	Identifier string
	Signature  string

	env      *Env
	argCount int
	request  *ResolvedType
	response *ResolvedType
}

// ParseCanisterMethod parses a self-contained signature.
func ParseCanisterMethod(signature string) (*CanisterMethodIdentifier, error) {
	return ParseCanisterMethodWithSchema(signature, "", NativeResolver{})
}

// ParseCanisterMethodWithSchema parses a signature whose types may refer to
// definitions in schema. A nil resolver means NativeResolver.
func ParseCanisterMethodWithSchema(signature, schema string, r Resolver) (*CanisterMethodIdentifier, error) {
	if r == nil {
		r = NativeResolver{}
	}

	ident, args, rets, err := splitSignature(signature)
	if err != nil {
		return nil, err
	}

	var src strings.Builder
	if schema != "" {
		src.WriteString(schema)
		src.WriteString("\n")
	}
	if len(args) > 0 {
		fmt.Fprintf(&src, "type %s = %s;\n", RequestArgsTypeName, joinTypes(args))
	}
	if len(rets) > 0 {
		fmt.Fprintf(&src, "type %s = %s;\n", ResponseTypeName, joinTypes(rets))
	} else {
		fmt.Fprintf(&src, "type %s = null;\n", ResponseTypeName)
	}

	env, err := r.Resolve(src.String())
	if err != nil {
		return nil, withSignature(signature, err)
	}

	out := &CanisterMethodIdentifier{
		Identifier: ident,
		Signature:  signature,
		env:        env,
		argCount:   len(args),
	}
	if len(args) > 0 {
		out.request, err = resolveShape(env, RequestArgsTypeName)
		if err != nil {
			return nil, withSignature(signature, err)
		}
	}
	out.response, err = resolveShape(env, ResponseTypeName)
	if err != nil {
		return nil, withSignature(signature, err)
	}
	return out, nil
}

func withSignature(signature string, err error) error {
	var spe *errdefs.SignatureParseError
	if errors.As(err, &spe) && spe.Signature == "schema" {
		copied := *spe
		copied.Signature = signature
		return &copied
	}
	return err
}

func joinTypes(ts []string) string {
	if len(ts) == 1 {
		return ts[0]
	}
	return "record { " + strings.Join(ts, "; ") + " }"
}

// Env is the resolved type environment of the method.
func (m *CanisterMethodIdentifier) Env() *Env {
	return m.env
}

// RequestArgs is the argument type; false when the method takes no arguments.
func (m *CanisterMethodIdentifier) RequestArgs() (*ResolvedType, bool) {
	return m.request, m.request != nil
}

// Response is the reply type.
func (m *CanisterMethodIdentifier) Response() *ResolvedType {
	return m.response
}

// ArgTypes lists the argument types positionally.
func (m *CanisterMethodIdentifier) ArgTypes() []Type {
	if m.request == nil {
		return nil
	}
	if m.argCount > 1 {
		return m.request.Elems
	}
	decl, _ := m.env.Lookup(RequestArgsTypeName)
	return []Type{decl}
}

func resolveShape(env *Env, name string) (*ResolvedType, error) {
	decl, ok := env.Lookup(name)
	if !ok {
		return nil, &errdefs.SignatureParseError{Signature: "schema", Fragment: name, Reason: "unbound type identifier"}
	}
	resolved, err := env.Resolve(decl)
	if err != nil {
		return nil, err
	}
	if rec, ok := resolved.(*Record); ok {
		if rec.IsTuple() {
			elems := make([]Type, 0, len(rec.Fields))
			for _, f := range rec.Fields {
				elems = append(elems, f.Type)
			}
			return &ResolvedType{Name: name, Shape: ShapeTuple, Elems: elems}, nil
		}
		fields := make([]Field, len(rec.Fields))
		copy(fields, rec.Fields)
		return &ResolvedType{Name: name, Shape: ShapeStruct, Fields: fields}, nil
	}
	return &ResolvedType{Name: name, Shape: ShapeScalar, Elems: []Type{decl}}, nil
}

var argNamePattern = regexp.MustCompile(`^\s*(?:[A-Za-z_][A-Za-z0-9_]*|"[^"]*")\s*:\s*`)

// splitSignature splits "name : (args) -> (rets)" into its parts.
func splitSignature(signature string) (string, []string, []string, error) {
	fail := func(fragment, reason string) (string, []string, []string, error) {
		return "", nil, nil, &errdefs.SignatureParseError{Signature: signature, Fragment: fragment, Reason: reason}
	}

	colon := strings.Index(signature, ":")
	if colon < 0 {
		return fail("", "expected 'name : (args) -> (results)'")
	}
	ident := strings.Trim(strings.TrimSpace(signature[:colon]), `"`)
	if !isIdent(ident) {
		return fail(signature[:colon], "invalid method name")
	}

	rest := signature[colon+1:]
	arrow := topLevelIndex(rest, "->")
	if arrow < 0 {
		return fail(rest, "missing '->'")
	}

	argText, err := trimParens(rest[:arrow])
	if err != nil {
		return fail(rest[:arrow], err.Error())
	}
	retText, err := trimParens(trimAnnotations(rest[arrow+2:]))
	if err != nil {
		return fail(rest[arrow+2:], err.Error())
	}

	args, err := splitTopLevel(argText)
	if err != nil {
		return fail(argText, err.Error())
	}
	rets, err := splitTopLevel(retText)
	if err != nil {
		return fail(retText, err.Error())
	}
	for i := range args {
		args[i] = argNamePattern.ReplaceAllString(args[i], "")
	}
	for i := range rets {
		rets[i] = argNamePattern.ReplaceAllString(rets[i], "")
	}
	return ident, args, rets, nil
}

var annotations = map[string]bool{"query": true, "composite_query": true, "oneway": true}

// trimAnnotations drops the annotations after the closing ')' of a result
// tuple. Anything else there is left for trimParens to reject.
func trimAnnotations(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return s
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				for _, word := range strings.Fields(s[i+1:]) {
					if !annotations[word] {
						return s
					}
				}
				return s[:i+1]
			}
		}
	}
	return s
}

// trimParens removes one pair of enclosing parentheses.
func trimParens(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return s, nil
	}
	depth := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if i != len(s)-1 {
					return "", fmt.Errorf("unexpected text after ')'")
				}
				return strings.TrimSpace(s[1:i]), nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced parentheses")
}

func topLevelIndex(s, sep string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			return i
		}
	}
	return -1
}

func splitTopLevel(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets")
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	last := strings.TrimSpace(s[start:])
	if last != "" {
		out = append(out, last)
	}
	for _, part := range out {
		if part == "" {
			return nil, fmt.Errorf("empty type in list")
		}
	}
	return out, nil
}
