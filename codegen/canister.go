package codegen

import (
	"strconv"

	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
)

// parseCanisterMethod parses a canister signature against its optional
// interface schema. Schema types are declared with prefix.
func parseCanisterMethod(interfaces *Interfaces, identifier, schemaFile, field, prefix string, r candid.Resolver) (*candid.CanisterMethodIdentifier, error) {
	schema := ""
	if schemaFile != "" {
		if IsABI(schemaFile) {
			return nil, &errdefs.ManifestError{Field: field, Reason: "canister methods are described by an interface schema, not a contract interface"}
		}
		var err error
		if schema, err = interfaces.Schema(schemaFile); err != nil {
			return nil, err
		}
	}
	m, err := candid.ParseCanisterMethodWithSchema(identifier, schema, r)
	if err != nil {
		return nil, err
	}
	return m, checkSchemaNames(m, prefix)
}

// checkSchemaNames rejects schema types that would collide with the
// declarations of the generated package once prefixed.
func checkSchemaNames(m *candid.CanisterMethodIdentifier, prefix string) error {
	for _, name := range m.Env().Names() {
		if name == candid.RequestArgsTypeName || name == candid.ResponseTypeName {
			continue
		}
		if err := checkTypeName("interface schema", prefix+candid.GoName(name)); err != nil {
			return err
		}
	}
	return nil
}

// emitCanisterConfig declares the Config of canister datasources. relay adds
// the destination of a relayer.
func emitCanisterConfig(f *gosrc.File, relay bool) {
	principal := f.Lib("Principal")
	f.P("// Config is the setup argument of the component.")
	f.P("type Config struct {")
	f.P("Target      ", principal, " `json:\"target\"`")
	f.P("LensTargets []", principal, " `json:\"lens_targets\"`")
	if relay {
		f.P("RPCURL        string `json:\"rpc_url\"`")
		f.P("ChainID       uint64 `json:\"chain_id\"`")
		f.P("OracleAddress ", f.Ident(gosrc.CommonImportPath, "Address"), " `json:\"oracle_address\"`")
	}
	f.P("}")
	f.P()
}

func canisterValidation(f *gosrc.File) []string {
	return []string{
		"if len(cfg.Target) == 0 {",
		"return " + f.Ident(gosrc.ErrorsImportPath, "New") + `("target is required")`,
		"}",
	}
}

// emitFetch writes the call of the datasource method. Lens targets travel as
// the implicit first argument.
func emitFetch(f *gosrc.File, m *candid.CanisterMethodIdentifier, args []string, lens bool) {
	f.P("// Method is the datasource method called on every tick.")
	f.P("const Method = ", strconv.Quote(m.Identifier))
	f.P()
	if lens {
		emitLensTargets(f)
		args = append([]string{"lensTargets(cfg)"}, args...)
	}
	f.P("func (c *Component) fetch(ctx ", f.Ident(gosrc.ContextImportPath, "Context"), ", cfg Config) (ResponseType, error) {")
	f.P("var out ResponseType")
	callArgs := "nil"
	if len(args) > 0 {
		callArgs = "[]interface{}{" + join(args) + "}"
	}
	f.P("if err := c.rt.Canisters().Call(ctx, cfg.Target, Method, ", callArgs, ", &out); err != nil {")
	f.P("return out, err")
	f.P("}")
	f.P("return out, nil")
	f.P("}")
	f.P()
}

// canisterSetup is the setup record of canister datasources.
func canisterSetup(ds manifest.Datasource, lens *manifest.LensTargets, resolve principalResolver, extra ...candid.FieldValue) ([]candid.Value, error) {
	target, err := resolve("datasource.location.id", ds.Location.ID, ds.Location.Args.IDType)
	if err != nil {
		return nil, err
	}
	targets, err := lensTargetsValue(lens, resolve)
	if err != nil {
		return nil, err
	}
	fields := []candid.FieldValue{{Name: "target", Value: target}}
	fields = append(fields, extra...)
	fields = append(fields, candid.FieldValue{Name: "lens_targets", Value: targets})
	return []candid.Value{candid.RecordValue{Fields: fields}}, nil
}
