package codegen

import (
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type snapshotICP struct {
	base
	m *manifest.SnapshotIndexerICP
}

func (g *snapshotICP) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	_, err := isComponentName("datasource.location.id", g.m.Datasource.Location.ID, g.m.Datasource.Location.Args.IDType)
	return err
}

func (g *snapshotICP) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	m, err := parseCanisterMethod(interfaces, ds.Method.Identifier, ds.Method.Interface, "datasource.method.interface", "", g.opts.resolver)
	if err != nil {
		return nil, err
	}
	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	if _, err := m.Compile(s.types, ""); err != nil {
		return nil, err
	}
	timestamped := g.m.Storage.Timestamped()
	emitSnapshotType(s.types, timestamped)
	s.typed = true

	f := s.rt
	args, err := canisterArgs(f, &ds.Method, m)
	if err != nil {
		return nil, err
	}
	emitFetch(f, m, args, g.m.LensTargets != nil)
	emitSchedule(f, g.m.Schedule)
	emitCanisterConfig(f, false)

	spec := componentSpec{
		label:    g.label(),
		config:   true,
		validate: canisterValidation(f),
		timer:    true,
	}
	snapshotSpec(f, &spec)
	emitComponent(f, spec)

	f.P("// Tick calls the datasource and stores the result.")
	f.P("func (c *Component) Tick(ctx ", f.Ident(gosrc.ContextImportPath, "Context"), ") error {")
	emitConfigPrologue(f)
	f.P("value, err := c.fetch(ctx, cfg)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("index := c.store(value)")
	f.P(`c.logger.Debug("snapshot stored", `, f.Ident(gosrc.ZapImportPath, "Uint64"), `("index", index))`)
	f.P("return nil")
	f.P("}")
	f.P()
	emitSnapshotMethods(f, timestamped)

	return s.finish()
}

func (g *snapshotICP) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *snapshotICP) setup(resolve principalResolver) ([]candid.Value, error) {
	return canisterSetup(g.m.Datasource, g.m.LensTargets, resolve)
}

func (g *snapshotICP) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, g.setup, &g.m.Schedule)
}

func (g *snapshotICP) RequiredInterfaceFile() (string, bool) {
	iface := g.m.Datasource.Method.Interface
	return iface, iface != ""
}

func (g *snapshotICP) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *snapshotICP) InterfaceFiles() []string {
	return interfaceList(g.m.Datasource.Method.Interface)
}

func (g *snapshotICP) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return g.generateSetupArgs(network, ids, g.setup)
}
