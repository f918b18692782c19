package codegen

import (
	"strconv"

	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
)

const defaultResponseType = candid.Text

// compileResponseType declares ResponseType for a schema type text, text
// when empty.
func compileResponseType(types *gosrc.File, responseType string, r candid.Resolver) error {
	if responseType == "" {
		responseType = defaultResponseType
	}
	m, err := candid.ParseCanisterMethodWithSchema("fetch : () -> ("+responseType+")", "", r)
	if err != nil {
		return &errdefs.ManifestError{Field: "datasource.response_type", Reason: err.Error()}
	}
	_, err = m.Compile(types, "")
	return err
}

func emitPairs(f *gosrc.File, name string, pairs manifest.Pairs) {
	if len(pairs) == 0 {
		f.P("var ", name, " []", f.Lib("Pair"))
		f.P()
		return
	}
	f.P("var ", name, " = []", f.Lib("Pair"), "{")
	for _, p := range pairs {
		f.P("{Name: ", strconv.Quote(p.Name), ", Value: ", strconv.Quote(p.Value), "},")
	}
	f.P("}")
	f.P()
}

// emitRemoteTick writes the Tick of snapshot kinds without setup. call is
// the statement filling out, returning an error.
func emitRemoteTick(f *gosrc.File, doc, call string) {
	f.P("// Tick ", doc, " and stores the result.")
	f.P("func (c *Component) Tick(ctx ", f.Ident(gosrc.ContextImportPath, "Context"), ") error {")
	f.P("var out ResponseType")
	f.P("if err := ", call, "; err != nil {")
	f.P("return err")
	f.P("}")
	f.P("index := c.store(out)")
	f.P(`c.logger.Debug("snapshot stored", `, f.Ident(gosrc.ZapImportPath, "Uint64"), `("index", index))`)
	f.P("return nil")
	f.P("}")
	f.P()
}
