package codegen

import (
	"fmt"
	"strconv"

	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

type algorithmLens struct {
	base
	m *manifest.AlgorithmLens
}

func (g *algorithmLens) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	for i, m := range g.m.Datasource.Methods {
		if _, err := isComponentName(fmt.Sprintf("datasource.methods[%d].id", i), m.ID, manifest.IDTypeAuto); err != nil {
			return err
		}
	}
	return nil
}

// lensCall is one compiled dependency call.
type lensCall struct {
	def      manifest.LensMethod
	method   *candid.CanisterMethodIdentifier
	compiled *candid.Compiled
}

func (g *algorithmLens) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	calls := make([]lensCall, 0, len(g.m.Datasource.Methods))
	for i, def := range g.m.Datasource.Methods {
		field := fmt.Sprintf("datasource.methods[%d].candid_file", i)
		prefix := candid.GoName(def.Alias())
		m, err := parseCanisterMethod(interfaces, def.Identifier, def.CandidFile, field, prefix, g.opts.resolver)
		if err != nil {
			return nil, err
		}
		compiled, err := m.Compile(s.types, prefix)
		if err != nil {
			return nil, err
		}
		calls = append(calls, lensCall{def: def, method: m, compiled: compiled})
	}

	if len(g.m.WithArgs) == 0 {
		s.types.P("// LensArgs are the arguments of get_result.")
		s.types.P("type LensArgs struct{}")
		s.types.P()
	} else if _, err := candid.CompileRecord(s.types, "LensArgs", recordFields(g.m.WithArgs), "", g.opts.resolver); err != nil {
		return nil, err
	}
	if len(g.m.Output.Fields) == 0 {
		s.types.P("// Output is the result of the lens.")
		s.types.P("type Output = string")
		s.types.P()
	} else if _, err := candid.CompileRecord(s.types, "Output", recordFields(g.m.Output.Fields), "", g.opts.resolver); err != nil {
		return nil, err
	}
	s.typed = true

	f := s.rt
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	errorf := f.Ident(gosrc.FmtImportPath, "Errorf")
	principal := f.Lib("Principal")

	f.P("// Dependencies are the components called by the lens, in target order.")
	f.P("var Dependencies = []string{")
	for _, c := range calls {
		f.P(strconv.Quote(c.def.ID), ",")
	}
	f.P("}")
	f.P()

	f.P("// Callers calls the dependencies of the lens.")
	f.P("type Callers struct {")
	f.P("canisters ", f.Lib("CanisterCaller"))
	f.P("targets   []", principal)
	f.P("}")
	f.P()
	for i, c := range calls {
		name := candid.GoName(c.def.Alias())
		params := ""
		callArgs := "nil"
		if c.compiled.RequestArgs != "" {
			params = ", args " + c.compiled.RequestArgs
			if n := len(c.method.ArgTypes()); n > 1 {
				fields := make([]string, 0, n)
				for j := 0; j < n; j++ {
					fields = append(fields, fmt.Sprintf("args.Field%d", j))
				}
				callArgs = "[]interface{}{" + join(fields) + "}"
			} else {
				callArgs = "[]interface{}{args}"
			}
		}
		f.P("// ", name, " calls ", c.method.Identifier, " on ", c.def.ID, ".")
		f.P("func (c *Callers) ", name, "(ctx ", ctx, params, ") (", c.compiled.Response, ", error) {")
		f.P("var out ", c.compiled.Response)
		f.P("err := c.canisters.Call(ctx, c.targets[", i, "], ", strconv.Quote(c.method.Identifier), ", ", callArgs, ", &out)")
		f.P("return out, err")
		f.P("}")
		f.P()
	}

	emitComponent(f, componentSpec{label: g.label()})

	f.P("// GetResult calls the dependencies at targets and calculates the output.")
	f.P("func (c *Component) GetResult(ctx ", ctx, ", targets []string, args LensArgs) (Output, error) {")
	f.P("var out Output")
	f.P("if len(targets) != len(Dependencies) {")
	f.P(`return out, `, errorf, `("expected %d targets, got %d", len(Dependencies), len(targets))`)
	f.P("}")
	f.P("principals := make([]", principal, ", 0, len(targets))")
	f.P("for _, t := range targets {")
	f.P("p, err := ", f.Lib("ParsePrincipal"), "(t)")
	f.P("if err != nil {")
	f.P("return out, err")
	f.P("}")
	f.P("principals = append(principals, p)")
	f.P("}")
	f.P("return c.calculate(ctx, &Callers{canisters: c.rt.Canisters(), targets: principals}, args)")
	f.P("}")
	f.P()

	f.P("// Register exposes get_result as id.")
	f.P("func (c *Component) Register(r ", f.Lib("Registrar"), ", id ", principal, ") {")
	f.P(`r.Register(id, "get_result", func(ctx `, ctx, `, args []interface{}) (interface{}, error) {`)
	f.P(`arg, err := `, f.Lib("Arg"), `("get_result", args, 0)`)
	f.P("if err != nil {")
	f.P("return nil, err")
	f.P("}")
	f.P("var targets []string")
	f.P("if err := ", f.Lib("DecodeArg"), "(arg, &targets); err != nil {")
	f.P("return nil, err")
	f.P("}")
	f.P("var lensArgs LensArgs")
	f.P("if len(args) > 1 {")
	f.P("if err := ", f.Lib("DecodeArg"), "(args[1], &lensArgs); err != nil {")
	f.P("return nil, err")
	f.P("}")
	f.P("}")
	f.P("return c.GetResult(ctx, targets, lensArgs)")
	f.P("})")
	f.P("}")

	return s.finish()
}

func (g *algorithmLens) GenerateLogicTemplate() (*GeneratedCodes, error) {
	f, err := gosrc.NewFile(LogicFile, g.pkg(), g.importPath(), false)
	if err != nil {
		return nil, err
	}
	f.P("// calculate derives the output of the lens from its dependencies.")
	f.P("func (c *Component) calculate(ctx ", f.Ident(gosrc.ContextImportPath, "Context"), ", calls *Callers, args LensArgs) (Output, error) {")
	f.P("var out Output")
	for _, m := range g.m.Datasource.Methods {
		f.P("// calls.", candid.GoName(m.Alias()), "(ctx, ...)")
	}
	f.P("return out, nil")
	f.P("}")
	src, err := f.Source()
	if err != nil {
		return nil, err
	}
	return &GeneratedCodes{Primary: src}, nil
}

func (g *algorithmLens) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, nil, nil)
}

func (g *algorithmLens) RequiredInterfaceFile() (string, bool) {
	return "", false
}

func (g *algorithmLens) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *algorithmLens) InterfaceFiles() []string {
	names := make([]string, 0, len(g.m.Datasource.Methods))
	for _, m := range g.m.Datasource.Methods {
		names = append(names, m.CandidFile)
	}
	return interfaceList(names...)
}

func (g *algorithmLens) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return nil, nil
}
