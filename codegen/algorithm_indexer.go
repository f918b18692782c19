package codegen

import (
	"fmt"
	"strconv"

	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

// pageSize is the number of upstream records read per call.
const pageSize = 100

// Primitives usable as output keys. They lower to comparable Go types.
var keyPrims = map[string]bool{
	candid.Text:  true,
	candid.Bool:  true,
	candid.Nat8:  true,
	candid.Nat16: true,
	candid.Nat32: true,
	candid.Nat64: true,
	candid.Int8:  true,
	candid.Int16: true,
	candid.Int32: true,
	candid.Int64: true,
}

type algorithmIndexer struct {
	base
	m *manifest.AlgorithmIndexer
}

func (g *algorithmIndexer) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	_, err := isComponentName("datasource.principal", g.m.Datasource.Principal, manifest.IDTypeAuto)
	return err
}

func recordFields(fields manifest.Fields) []candid.RecordField {
	out := make([]candid.RecordField, 0, len(fields))
	for _, f := range fields {
		out = append(out, candid.RecordField{Name: f.Name, Type: f.Type})
	}
	return out
}

// indexedOutput is a compiled output and the store holding it.
type indexedOutput struct {
	def    manifest.Output
	record *candid.CompiledRecord
}

func (o indexedOutput) key() candid.CompiledField {
	return o.record.Fields[0]
}

func (o indexedOutput) store(f *gosrc.File) string {
	if o.def.OutputType == manifest.OutputKeyValues {
		return fmt.Sprintf("*%s[%s, %s]", f.Lib("KeyValuesStore"), o.key().GoType, o.record.Name)
	}
	return fmt.Sprintf("*%s[%s, %s]", f.Lib("KeyValueStore"), o.key().GoType, o.record.Name)
}

func (o indexedOutput) newStore(f *gosrc.File) string {
	if o.def.OutputType == manifest.OutputKeyValues {
		return fmt.Sprintf("%s[%s, %s]()", f.Lib("NewKeyValuesStore"), o.key().GoType, o.record.Name)
	}
	return fmt.Sprintf("%s[%s, %s]()", f.Lib("NewKeyValueStore"), o.key().GoType, o.record.Name)
}

func (g *algorithmIndexer) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	used := make(map[string]string)
	claim := func(field, name string) error {
		if err := checkTypeName(field, name); err != nil {
			return err
		}
		if prev, ok := used[name]; ok {
			return &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("type name '%s' is already used by %s", name, prev)}
		}
		used[name] = field
		return nil
	}

	inputName := candid.GoName(ds.Input.Name)
	if err := claim("datasource.input.name", inputName); err != nil {
		return nil, err
	}
	input, err := candid.CompileRecord(s.types, inputName, recordFields(ds.Input.Fields), "", g.opts.resolver)
	if err != nil {
		return nil, err
	}
	outputs := make([]indexedOutput, 0, len(g.m.Output))
	for i, o := range g.m.Output {
		field := fmt.Sprintf("output[%d]", i)
		name := candid.GoName(o.Name)
		if err := claim(field+".name", name); err != nil {
			return nil, err
		}
		record, err := candid.CompileRecord(s.types, name, recordFields(o.Fields), "", g.opts.resolver)
		if err != nil {
			return nil, err
		}
		key := record.Fields[0]
		if p, ok := key.Type.(*candid.Prim); !ok || !keyPrims[p.Name] {
			return nil, &errdefs.UnsupportedTypeError{Type: key.Type.String(), Context: fmt.Sprintf("key %s of output %s", key.Name, o.Name)}
		}
		outputs = append(outputs, indexedOutput{def: o, record: record})
	}
	s.typed = true

	f := s.rt
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	errorf := f.Ident(gosrc.FmtImportPath, "Errorf")

	f.P("// Method is the paged upstream query.")
	f.P("const Method = ", strconv.Quote(ds.Method))
	f.P()
	f.P("// PageSize is the number of records requested per call.")
	f.P("const PageSize uint64 = ", pageSize)
	f.P()
	emitSchedule(f, g.m.Schedule)

	f.P("// Config is the setup argument of the component.")
	f.P("type Config struct {")
	f.P("Target ", f.Lib("Principal"), " `json:\"target\"`")
	f.P("}")
	f.P()

	f.P("// Outputs holds the records written by process.")
	f.P("type Outputs struct {")
	for _, o := range outputs {
		f.P(o.record.Name, " ", o.store(f))
	}
	f.P("}")
	f.P()

	inits := []string{"outputs: &Outputs{"}
	for _, o := range outputs {
		inits = append(inits, o.record.Name+": "+o.newStore(f)+",")
	}
	inits = append(inits, "},", fmt.Sprintf("cursor: %d,", ds.From))
	emitComponent(f, componentSpec{
		label:    g.label(),
		fields:   []string{"outputs *Outputs", "cursor  uint64"},
		init:     inits,
		config:   true,
		validate: canisterValidation(f),
		timer:    true,
	})

	f.P("// Tick reads the upstream records since the cursor and processes them in order.")
	f.P("func (c *Component) Tick(ctx ", ctx, ") error {")
	emitConfigPrologue(f)
	f.P("for {")
	f.P("c.lock.RLock()")
	f.P("cursor := c.cursor")
	f.P("c.lock.RUnlock()")
	f.P()
	f.P("var page []", input.Name)
	f.P("if err := c.rt.Canisters().Call(ctx, cfg.Target, Method, []interface{}{cursor, PageSize}, &page); err != nil {")
	f.P(`return `, errorf, `("error reading %s from %d: %w", Method, cursor, err)`)
	f.P("}")
	f.P("for _, in := range page {")
	f.P("if err := c.process(in); err != nil {")
	f.P(`return `, errorf, `("error processing record %d: %w", cursor, err)`)
	f.P("}")
	f.P("cursor++")
	f.P("c.lock.Lock()")
	f.P("c.cursor = cursor")
	f.P("c.lock.Unlock()")
	f.P("}")
	f.P(`c.logger.Debug("processed records", `, f.Ident(gosrc.ZapImportPath, "Int"), `("count", len(page)), `, f.Ident(gosrc.ZapImportPath, "Uint64"), `("cursor", cursor))`)
	f.P("if uint64(len(page)) < PageSize {")
	f.P("return nil")
	f.P("}")
	f.P("}")
	f.P("}")
	f.P()

	for _, o := range outputs {
		key := o.key()
		method := "Get" + o.record.Name
		if o.def.OutputType == manifest.OutputKeyValues {
			f.P("// ", method, " returns every ", o.def.Name, " record under key.")
			f.P("func (c *Component) ", method, "(key ", key.GoType, ") []", o.record.Name, " {")
			f.P("return c.outputs.", o.record.Name, ".Get(key)")
			f.P("}")
		} else {
			f.P("// ", method, " returns the ", o.def.Name, " record under key.")
			f.P("func (c *Component) ", method, "(key ", key.GoType, ") (", o.record.Name, ", bool) {")
			f.P("return c.outputs.", o.record.Name, ".Get(key)")
			f.P("}")
		}
		f.P()
	}

	f.P("// Register exposes the outputs of the component as id.")
	f.P("func (c *Component) Register(r ", f.Lib("Registrar"), ", id ", f.Lib("Principal"), ") {")
	for _, o := range outputs {
		name := "get_" + o.def.Name
		f.P(`r.Register(id, "`, name, `", func(ctx `, ctx, `, args []interface{}) (interface{}, error) {`)
		f.P(`arg, err := `, f.Lib("Arg"), `("`, name, `", args, 0)`)
		f.P("if err != nil {")
		f.P("return nil, err")
		f.P("}")
		f.P("var key ", o.key().GoType)
		f.P("if err := ", f.Lib("DecodeArg"), "(arg, &key); err != nil {")
		f.P("return nil, err")
		f.P("}")
		if o.def.OutputType == manifest.OutputKeyValues {
			f.P("return c.Get", o.record.Name, "(key), nil")
		} else {
			f.P("v, ok := c.Get", o.record.Name, "(key)")
			f.P("if !ok {")
			f.P(`return nil, `, errorf, `("no `, o.def.Name, ` under %v", key)`)
			f.P("}")
			f.P("return v, nil")
		}
		f.P("})")
	}
	f.P("}")

	return s.finish()
}

func (g *algorithmIndexer) GenerateLogicTemplate() (*GeneratedCodes, error) {
	f, err := gosrc.NewFile(LogicFile, g.pkg(), g.importPath(), false)
	if err != nil {
		return nil, err
	}
	input := candid.GoName(g.m.Datasource.Input.Name)
	f.P("// process folds one ", g.m.Datasource.Input.Name, " record into the outputs.")
	f.P("func (c *Component) process(in ", input, ") error {")
	for _, o := range g.m.Output {
		name := candid.GoName(o.Name)
		if o.OutputType == manifest.OutputKeyValues {
			f.P("// c.outputs.", name, ".Append(key, ", name, "{})")
		} else {
			f.P("// c.outputs.", name, ".Set(key, ", name, "{})")
		}
	}
	f.P("return nil")
	f.P("}")
	src, err := f.Source()
	if err != nil {
		return nil, err
	}
	return &GeneratedCodes{Primary: src}, nil
}

func (g *algorithmIndexer) setup(resolve principalResolver) ([]candid.Value, error) {
	target, err := resolve("datasource.principal", g.m.Datasource.Principal, manifest.IDTypeAuto)
	if err != nil {
		return nil, err
	}
	return []candid.Value{candid.RecordValue{Fields: []candid.FieldValue{{Name: "target", Value: target}}}}, nil
}

func (g *algorithmIndexer) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, g.setup, &g.m.Schedule)
}

func (g *algorithmIndexer) RequiredInterfaceFile() (string, bool) {
	return "", false
}

func (g *algorithmIndexer) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *algorithmIndexer) InterfaceFiles() []string {
	return nil
}

func (g *algorithmIndexer) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return g.generateSetupArgs(network, ids, g.setup)
}
