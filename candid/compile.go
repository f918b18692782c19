package candid

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"google.golang.org/protobuf/compiler/protogen"
)

// Compiled names the Go types emitted for a method.
type Compiled struct {
	RequestArgs string // empty when the method takes no arguments
	Response    string
}

// Compile emits Go declarations for the request and response types, and
// every named type they reach, into f. All emitted names carry prefix.
func (m *CanisterMethodIdentifier) Compile(f *gosrc.File, prefix string) (*Compiled, error) {
	l := newLowerer(m.env, prefix, f)
	out := &Compiled{}
	if m.request != nil {
		name, err := l.named(RequestArgsTypeName)
		if err != nil {
			return nil, withSignature(m.Signature, err)
		}
		out.RequestArgs = name
	}
	name, err := l.named(ResponseTypeName)
	if err != nil {
		return nil, withSignature(m.Signature, err)
	}
	out.Response = name

	for _, d := range l.decls {
		f.P(d)
		f.P()
	}
	return out, nil
}

// CompileSource compiles the method into a standalone types file.
func (m *CanisterMethodIdentifier) CompileSource(pkg, prefix string) (string, error) {
	f, err := gosrc.NewFile("types.go", pkg, protogen.GoImportPath(pkg), true)
	if err != nil {
		return "", err
	}
	if _, err := m.Compile(f, prefix); err != nil {
		return "", err
	}
	return f.Source()
}

// GoType is the Go spelling of t, with packages named by their last path
// element. Named types carry prefix.
func (m *CanisterMethodIdentifier) GoType(t Type, prefix string) (string, error) {
	l := newLowerer(m.env, prefix, nil)
	return l.expr(t, prefix+"Anonymous")
}

// Resolve follows references of t in the method's environment.
func (m *CanisterMethodIdentifier) Resolve(t Type) (Type, error) {
	return m.env.Resolve(t)
}

type lowerer struct {
	env      *Env
	prefix   string
	f        *gosrc.File
	declared map[string]bool
	decls    []string
}

func newLowerer(env *Env, prefix string, f *gosrc.File) *lowerer {
	return &lowerer{
		env:      env,
		prefix:   prefix,
		f:        f,
		declared: make(map[string]bool),
	}
}

func (l *lowerer) ident(importPath protogen.GoImportPath, name string) string {
	if l.f != nil {
		return l.f.Ident(importPath, name)
	}
	return path.Base(string(importPath)) + "." + name
}

// named declares the env type name and returns its Go name.
func (l *lowerer) named(name string) (string, error) {
	goName := l.prefix + GoName(name)
	if l.declared[goName] {
		return goName, nil
	}
	def, ok := l.env.Lookup(name)
	if !ok {
		return "", &errdefs.SignatureParseError{Signature: "schema", Fragment: name, Reason: "unbound type identifier"}
	}
	if err := l.declare(goName, def); err != nil {
		return "", err
	}
	return goName, nil
}

func (l *lowerer) declare(name string, t Type) error {
	if l.declared[name] {
		return nil
	}
	l.declared[name] = true
	if l.f == nil {
		// naming only
		switch t.(type) {
		case *Record, *Variant:
			return nil
		}
		_, err := l.expr(t, name+"Value")
		return err
	}

	slot := len(l.decls)
	l.decls = append(l.decls, "")

	var b strings.Builder
	switch t := t.(type) {
	case *Record:
		fmt.Fprintf(&b, "type %s struct {\n", name)
		used := make(map[string]bool)
		for i, field := range t.Fields {
			fieldName := uniqueName(GoFieldName(field, i), used)
			typ, err := l.expr(field.Type, name+fieldName)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "\t%s %s `json:\"%s\"`\n", fieldName, typ, jsonName(field))
		}
		b.WriteString("}")
	case *Variant:
		fmt.Fprintf(&b, "type %s struct {\n", name)
		used := make(map[string]bool)
		for i, field := range t.Fields {
			fieldName := uniqueName(GoFieldName(field, i), used)
			typ, err := l.expr(field.Type, name+fieldName)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(typ, "*") {
				typ = "*" + typ
			}
			fmt.Fprintf(&b, "\t%s %s `json:\"%s,omitempty\"`\n", fieldName, typ, jsonName(field))
		}
		b.WriteString("}")
	default:
		typ, err := l.expr(t, name+"Value")
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "type %s = %s", name, typ)
	}
	l.decls[slot] = b.String()
	return nil
}

func (l *lowerer) expr(t Type, hint string) (string, error) {
	switch t := t.(type) {
	case *Prim:
		return l.prim(t.Name), nil
	case *Opt:
		inner, err := l.expr(t.Elem, hint)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(inner, "*") || strings.HasPrefix(inner, "[]") || inner == "interface{}" {
			return inner, nil
		}
		return "*" + inner, nil
	case *Vec:
		elem, err := l.env.Resolve(t.Elem)
		if err != nil {
			return "", err
		}
		if p, ok := elem.(*Prim); ok && p.Name == Nat8 {
			return "[]byte", nil
		}
		inner, err := l.expr(t.Elem, hint+"Item")
		if err != nil {
			return "", err
		}
		return "[]" + inner, nil
	case *Record, *Variant:
		if err := l.declare(hint, t); err != nil {
			return "", err
		}
		return hint, nil
	case *Ref:
		return l.named(t.Name)
	case *Service:
		return l.ident(gosrc.LibImportPath, "Principal"), nil
	case *Func:
		return "", &errdefs.UnsupportedTypeError{Type: t.String(), Context: hint}
	}
	return "", &errdefs.UnsupportedTypeError{Type: fmt.Sprintf("%T", t), Context: hint}
}

var primGoTypes = map[string]string{
	Nat8:     "uint8",
	Nat16:    "uint16",
	Nat32:    "uint32",
	Nat64:    "uint64",
	Int8:     "int8",
	Int16:    "int16",
	Int32:    "int32",
	Int64:    "int64",
	Float32:  "float32",
	Float64:  "float64",
	Text:     "string",
	Bool:     "bool",
	Null:     "struct{}",
	Empty:    "struct{}",
	Reserved: "interface{}",
}

func (l *lowerer) prim(name string) string {
	switch name {
	case Nat, Int:
		return "*" + l.ident(gosrc.BigImportPath, "Int")
	case Principal:
		return l.ident(gosrc.LibImportPath, "Principal")
	}
	return primGoTypes[name]
}

// GoName converts a schema identifier to an exported Go identifier.
func GoName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "X"
	}
	if unicode.IsDigit(rune(s[0])) {
		return "X" + s
	}
	return s
}

// GoFieldName is the Go struct field name of a record field.
func GoFieldName(f Field, index int) string {
	if f.Name == "" {
		return fmt.Sprintf("Field%d", index)
	}
	return GoName(f.Name)
}

func jsonName(f Field) string {
	if f.Name == "" {
		return fmt.Sprintf("%d", f.ID)
	}
	return strings.ReplaceAll(f.Name, `"`, "")
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	used[candidate] = true
	return candidate
}

// RecordField is one field of a record assembled from schema type text.
type RecordField struct {
	Name string
	Type string
}

// CompiledField is a field of a compiled record.
type CompiledField struct {
	Name   string
	GoName string
	GoType string
	Type   Type
}

// CompiledRecord is a Go struct declared for a record.
type CompiledRecord struct {
	Name   string
	Fields []CompiledField
}

// CompileRecord declares a struct named name for a record of the given
// fields, in order. Field types are schema type text and may refer to
// definitions in schema.
func CompileRecord(f *gosrc.File, name string, fields []RecordField, schema string, r Resolver) (*CompiledRecord, error) {
	if r == nil {
		r = NativeResolver{}
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, quoteName(field.Name)+" : "+field.Type)
	}
	decl := fmt.Sprintf("type %s = record { %s };", name, strings.Join(parts, "; "))
	src := decl
	if schema != "" {
		src = schema + "\n" + decl
	}

	env, err := r.Resolve(src)
	if err != nil {
		return nil, withSignature(decl, err)
	}
	l := newLowerer(env, "", f)
	goName, err := l.named(name)
	if err != nil {
		return nil, withSignature(decl, err)
	}

	def, _ := env.Lookup(name)
	rec, ok := def.(*Record)
	if !ok {
		return nil, &errdefs.SignatureParseError{Signature: decl, Reason: "not a record"}
	}
	out := &CompiledRecord{Name: goName}
	used := make(map[string]bool)
	for i, field := range rec.Fields {
		fieldName := uniqueName(GoFieldName(field, i), used)
		typ, err := l.expr(field.Type, goName+fieldName)
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, CompiledField{Name: field.Name, GoName: fieldName, GoType: typ, Type: field.Type})
	}

	for _, d := range l.decls {
		f.P(d)
		f.P()
	}
	return out, nil
}

// ResponseField follows a dotted path of record field names from the
// response type. It returns the Go selector of the field, e.g. ".Value",
// and its schema type. An empty path selects the response itself.
func (m *CanisterMethodIdentifier) ResponseField(fieldPath string) (string, Type, error) {
	t, _ := m.env.Lookup(ResponseTypeName)
	if fieldPath == "" {
		resolved, err := m.env.Resolve(t)
		return "", resolved, err
	}

	var selector strings.Builder
	for _, name := range strings.Split(fieldPath, ".") {
		resolved, err := m.env.Resolve(t)
		if err != nil {
			return "", nil, withSignature(m.Signature, err)
		}
		rec, ok := resolved.(*Record)
		if !ok {
			return "", nil, &errdefs.SignatureParseError{Signature: m.Signature, Fragment: name, Reason: fmt.Sprintf("%s has no fields", resolved)}
		}
		used := make(map[string]bool)
		found := false
		for i, field := range rec.Fields {
			goName := uniqueName(GoFieldName(field, i), used)
			if field.Name == name {
				selector.WriteString("." + goName)
				t = field.Type
				found = true
				break
			}
		}
		if !found {
			return "", nil, &errdefs.SignatureParseError{Signature: m.Signature, Fragment: name, Reason: "no such field in the response"}
		}
	}
	resolved, err := m.env.Resolve(t)
	if err != nil {
		return "", nil, withSignature(m.Signature, err)
	}
	return selector.String(), resolved, nil
}
