package codegen

import (
	"fmt"
	"strconv"

	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type snapshotEVM struct {
	base
	m *manifest.SnapshotIndexerEVM
}

func (g *snapshotEVM) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	return validateContractLocation(g.m.Datasource)
}

// returnField is one value returned by the contract method.
type returnField struct {
	name   string
	jsonID string
	target abisig.TargetType
}

func (g *snapshotEVM) returns(sig *abisig.ContractMethodIdentifier, outputs []string, names []string) ([]returnField, error) {
	types := sig.ReturnValue
	if len(types) == 0 {
		for _, o := range outputs {
			t, err := abisig.MapABIType(o)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, &errdefs.ManifestError{Field: "datasource.method.identifier", Reason: fmt.Sprintf("%s returns nothing to snapshot", sig.Identifier)}
	}
	out := make([]returnField, 0, len(types))
	used := make(map[string]bool)
	for i, t := range types {
		name, id := fmt.Sprintf("Field%d", i), strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			name, id = candid.GoName(names[i]), names[i]
		}
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s%d", name, n)
		}
		used[name] = true
		out = append(out, returnField{name: name, jsonID: id, target: t})
	}
	return out, nil
}

func (g *snapshotEVM) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	sig, err := abisig.ParseContractMethod(ds.Method.Identifier)
	if err != nil {
		return nil, err
	}
	contractAbi, err := interfaces.ABI(ds.Method.Interface)
	if err != nil {
		return nil, err
	}
	method, err := sig.MatchABI(contractAbi)
	if err != nil {
		return nil, err
	}
	var outputs, names []string
	for _, o := range contractAbi.Methods[method].Outputs {
		outputs = append(outputs, o.Type.String())
		names = append(names, o.Name)
	}
	fields, err := g.returns(sig, outputs, names)
	if err != nil {
		return nil, err
	}

	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	args, err := contractArgs(s.rt, &ds.Method, sig)
	if err != nil {
		return nil, err
	}

	types := s.types
	if len(fields) == 1 {
		types.P("// ResponseType is the value returned by ", sig.Identifier, ".")
		types.P("type ResponseType = ", goType(types, fields[0].target))
	} else {
		types.P("// ResponseType holds the values returned by ", sig.Identifier, ".")
		types.P("type ResponseType struct {")
		for _, field := range fields {
			types.P(field.name, " ", goType(types, field.target), " `json:\"", field.jsonID, "\"`")
		}
		types.P("}")
	}
	types.P()
	timestamped := g.m.Storage.Timestamped()
	emitSnapshotType(types, timestamped)
	s.typed = true

	f := s.rt
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	errorf := f.Ident(gosrc.FmtImportPath, "Errorf")

	emitEmbeddedABI(f, ds.Method.Interface, "interfaceJSON", "contractInterface")
	f.P("// Method is the contract method snapshotted on every tick.")
	f.P("const Method = ", strconv.Quote(method))
	f.P()
	emitSchedule(f, g.m.Schedule)
	emitContractConfig(f, ds, nil)

	spec := componentSpec{
		label:    g.label(),
		config:   true,
		validate: contractValidation(f),
		timer:    true,
	}
	snapshotSpec(f, &spec)
	emitComponent(f, spec)

	f.P("// Tick calls ", sig.Render(), " and stores the result.")
	f.P("func (c *Component) Tick(ctx ", ctx, ") error {")
	emitConfigPrologue(f)
	emitBackend(f)
	f.P("contractAbi, err := contractInterface()")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("reader := ", f.Lib("NewContractReader"), "(cfg.Target, contractAbi, backend)")
	if len(args) == 0 {
		f.P("out, err := reader.Call(ctx, Method)")
	} else {
		f.P("out, err := reader.Call(ctx, Method, ", join(args), ")")
	}
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("if len(out) != ", len(fields), " {")
	f.P(`return `, errorf, `("%s returned %d values, expected `, len(fields), `", Method, len(out))`)
	f.P("}")
	f.P("var value ResponseType")
	for i, field := range fields {
		dst := "value"
		if len(fields) > 1 {
			dst = "value." + field.name
		}
		f.P("if ", dst, ", err = ", f.Lib(field.target.Converter()), "(out[", i, "]); err != nil {")
		f.P(`return `, errorf, `("error converting output `, i, ` of %s: %w", Method, err)`)
		f.P("}")
	}
	f.P("index := c.store(value)")
	f.P(`c.logger.Debug("snapshot stored", `, f.Ident(gosrc.ZapImportPath, "Uint64"), `("index", index))`)
	f.P("return nil")
	f.P("}")
	f.P()
	emitSnapshotMethods(f, timestamped)

	return s.finish()
}

func (g *snapshotEVM) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *snapshotEVM) setup(resolve principalResolver) ([]candid.Value, error) {
	return contractSetup(g.m.Datasource), nil
}

func (g *snapshotEVM) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, g.setup, &g.m.Schedule)
}

func (g *snapshotEVM) RequiredInterfaceFile() (string, bool) {
	return g.m.Datasource.Method.Interface, true
}

func (g *snapshotEVM) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *snapshotEVM) InterfaceFiles() []string {
	return interfaceList(g.m.Datasource.Method.Interface)
}

func (g *snapshotEVM) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return g.generateSetupArgs(network, ids, g.setup)
}
