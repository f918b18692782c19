package codegen

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type relayer struct {
	base
	m *manifest.Relayer
}

func (g *relayer) kind() (oracle.Kind, error) {
	return oracle.ParseKind(g.m.Destination.Type)
}

func (g *relayer) oracleAddress() (common.Address, error) {
	kind, err := g.kind()
	if err != nil {
		return common.Address{}, err
	}
	d := g.m.Destination
	return g.opts.oracles.Resolve(kind, d.NetworkID, d.OracleAddress)
}

func (g *relayer) updateMethod() string {
	if g.m.Destination.MethodName != "" {
		return g.m.Destination.MethodName
	}
	return oracle.UpdateMethod
}

func (g *relayer) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	ds := g.m.Datasource
	if _, err := isComponentName("datasource.location.id", ds.Location.ID, ds.Location.Args.IDType); err != nil {
		return err
	}
	_, err := g.oracleAddress()
	return err
}

func (g *relayer) exponent() int {
	if e := g.m.ConversionParameter.ExponentToConvert; e != nil {
		return *e
	}
	return 0
}

func (g *relayer) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	kind, err := g.kind()
	if err != nil {
		return nil, err
	}
	m, err := parseCanisterMethod(interfaces, ds.Method.Identifier, ds.Method.Interface, "datasource.method.interface", "", g.opts.resolver)
	if err != nil {
		return nil, err
	}
	extracted := g.m.ConversionParameter.ExtractedField
	selector, t, err := m.ResponseField(extracted)
	if err != nil {
		return nil, err
	}
	prim, ok := t.(*candid.Prim)
	if !ok {
		where := "relayed response"
		if extracted != "" {
			where = "extracted field " + extracted
		}
		return nil, &errdefs.UnsupportedTypeError{Type: t.String(), Context: where}
	}
	conv, err := oracle.Convert(prim.Name, kind, g.exponent())
	if err != nil {
		return nil, err
	}

	oracleFile := kind.InterfaceFile()
	oracleAbi, err := interfaces.ABI(oracleFile)
	if err != nil {
		return nil, err
	}
	method := g.updateMethod()
	if _, ok := oracleAbi.Methods[method]; !ok {
		return nil, &errdefs.SignatureParseError{Signature: oracleFile, Fragment: method, Reason: "method is not declared in the oracle interface"}
	}

	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	if _, err := m.Compile(s.types, ""); err != nil {
		return nil, err
	}
	emitSnapshotType(s.types, true)
	s.typed = true

	f := s.rt
	args, err := canisterArgs(f, &ds.Method, m)
	if err != nil {
		return nil, err
	}
	errorf := f.Ident(gosrc.FmtImportPath, "Errorf")
	errorsNew := f.Ident(gosrc.ErrorsImportPath, "New")

	emitEmbeddedABI(f, oracleFile, "oracleJSON", "oracleInterface")
	f.P("// UpdateMethod is the oracle method the relayed value is sent to.")
	f.P(`const UpdateMethod = "`, method, `"`)
	f.P()
	emitFetch(f, m, args, g.m.LensTargets != nil)
	emitSchedule(f, g.m.Schedule)
	emitCanisterConfig(f, true)

	validate := canisterValidation(f)
	validate = append(validate,
		"if cfg.RPCURL == \"\" {",
		"return "+errorsNew+`("rpc_url is required")`,
		"}",
		"if cfg.ChainID == 0 {",
		"return "+errorsNew+`("chain_id is required")`,
		"}",
		"if cfg.OracleAddress == ("+f.Ident(gosrc.CommonImportPath, "Address")+"{}) {",
		"return "+errorsNew+`("oracle_address is required")`,
		"}",
	)
	spec := componentSpec{
		label:    g.label(),
		config:   true,
		validate: validate,
		timer:    true,
	}
	snapshotSpec(f, &spec)
	emitComponent(f, spec)

	f.P("// Tick reads the datasource and updates the oracle when the value changed.")
	f.P("func (c *Component) Tick(ctx ", f.Ident(gosrc.ContextImportPath, "Context"), ") error {")
	emitConfigPrologue(f)
	f.P("value, err := c.fetch(ctx, cfg)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("c.store(value)")
	expr := conv.Expr(f.Lib, "value"+selector)
	if conv.Fallible {
		f.P("relayed, err := ", expr)
		f.P("if err != nil {")
		f.P(`return `, errorf, `("error converting `, prim.Name, ` to `, string(kind), `: %w", err)`)
		f.P("}")
	} else {
		f.P("relayed := ", expr)
	}
	f.P()
	emitBackend(f)
	f.P("oracleAbi, err := oracleInterface()")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("writer, err := ", f.Lib("NewOracleWriter"), "(cfg.OracleAddress, oracleAbi, backend, UpdateMethod)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("current, err := writer.WithBatch(", f.Lib("BatchFor"), "(backend)).Current(ctx)")
	f.P("if err != nil {")
	f.P(`return `, errorf, `("error reading oracle state: %w", err)`)
	f.P("}")
	f.P("if current.Same(relayed) {")
	f.P(`c.logger.Debug("oracle is up to date")`)
	f.P("return nil")
	f.P("}")
	f.P("opts, err := c.rt.Transactor(ctx, cfg.ChainID)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("tx, err := writer.Update(ctx, opts, relayed)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P(`c.logger.Info("oracle updated", `, f.Ident(gosrc.ZapImportPath, "Stringer"), `("tx", tx.Hash()))`)
	f.P("return nil")
	f.P("}")
	f.P()
	emitSnapshotMethods(f, true)

	return s.finish()
}

func (g *relayer) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *relayer) setup(resolve principalResolver) ([]candid.Value, error) {
	addr, err := g.oracleAddress()
	if err != nil {
		return nil, err
	}
	d := g.m.Destination
	return canisterSetup(g.m.Datasource, g.m.LensTargets, resolve,
		candid.FieldValue{Name: "rpc_url", Value: candid.TextValue(d.RPCURL)},
		candid.FieldValue{Name: "chain_id", Value: candid.Nat64Value(d.NetworkID)},
		candid.FieldValue{Name: "oracle_address", Value: candid.TextValue(addr.Hex())},
	)
}

func (g *relayer) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, g.setup, &g.m.Schedule)
}

func (g *relayer) RequiredInterfaceFile() (string, bool) {
	iface := g.m.Datasource.Method.Interface
	return iface, iface != ""
}

func (g *relayer) DestinationKind() (oracle.Kind, bool) {
	kind, err := g.kind()
	return kind, err == nil
}

func (g *relayer) InterfaceFiles() []string {
	var oracleFile string
	if kind, err := g.kind(); err == nil {
		oracleFile = kind.InterfaceFile()
	}
	return interfaceList(g.m.Datasource.Method.Interface, oracleFile)
}

func (g *relayer) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return g.generateSetupArgs(network, ids, g.setup)
}
