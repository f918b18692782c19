package codegen

import (
	"strconv"

	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type snapshotHTTPS struct {
	base
	m *manifest.SnapshotIndexerHTTPS
}

func (g *snapshotHTTPS) Validate() error {
	return g.validate()
}

func (g *snapshotHTTPS) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	if err := compileResponseType(s.types, ds.ResponseType, g.opts.resolver); err != nil {
		return nil, err
	}
	timestamped := g.m.Storage.Timestamped()
	emitSnapshotType(s.types, timestamped)
	s.typed = true

	f := s.rt
	f.P("// URL is fetched on every tick.")
	f.P("const URL = ", strconv.Quote(ds.URL))
	f.P()
	emitPairs(f, "headers", ds.Headers)
	emitPairs(f, "queries", ds.Queries)
	emitSchedule(f, g.m.Schedule)

	spec := componentSpec{label: g.label(), timer: true}
	snapshotSpec(f, &spec)
	emitComponent(f, spec)
	emitRemoteTick(f, "fetches URL", f.Lib("FetchJSON")+"(ctx, c.rt.HTTPClient(), URL, headers, queries, &out)")
	emitSnapshotMethods(f, timestamped)

	return s.finish()
}

func (g *snapshotHTTPS) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *snapshotHTTPS) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, nil, &g.m.Schedule)
}

func (g *snapshotHTTPS) RequiredInterfaceFile() (string, bool) {
	return "", false
}

func (g *snapshotHTTPS) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *snapshotHTTPS) InterfaceFiles() []string {
	return nil
}

func (g *snapshotHTTPS) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return nil, nil
}
