package codegen

import (
	"fmt"
	"strconv"

	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type snapshotJSONRPC struct {
	base
	m *manifest.SnapshotIndexerJSONRPC
}

func (g *snapshotJSONRPC) Validate() error {
	return g.validate()
}

func (g *snapshotJSONRPC) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
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
	params := make([]string, 0, len(ds.Params))
	for i, p := range ds.Params {
		expr, err := jsonLiteral(f, p)
		if err != nil {
			return nil, fmt.Errorf("datasource.params[%d]: %w", i, err)
		}
		params = append(params, expr)
	}

	f.P("// Endpoint of the JSON-RPC datasource.")
	f.P("const (")
	f.P("URL    = ", strconv.Quote(ds.URL))
	f.P("Method = ", strconv.Quote(ds.Method))
	f.P(")")
	f.P()
	if len(params) == 0 {
		f.P("var params []interface{}")
	} else {
		f.P("var params = []interface{}{", join(params), "}")
	}
	f.P()
	emitSchedule(f, g.m.Schedule)

	spec := componentSpec{label: g.label(), timer: true}
	snapshotSpec(f, &spec)
	emitComponent(f, spec)
	emitRemoteTick(f, "calls Method", f.Lib("CallJSONRPC")+"(ctx, URL, &out, Method, params...)")
	emitSnapshotMethods(f, timestamped)

	return s.finish()
}

func (g *snapshotJSONRPC) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *snapshotJSONRPC) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, nil, &g.m.Schedule)
}

func (g *snapshotJSONRPC) RequiredInterfaceFile() (string, bool) {
	return "", false
}

func (g *snapshotJSONRPC) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *snapshotJSONRPC) InterfaceFiles() []string {
	return nil
}

func (g *snapshotJSONRPC) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return nil, nil
}
