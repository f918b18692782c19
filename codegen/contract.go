package codegen

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"google.golang.org/protobuf/compiler/protogen"
)

// goType spells a target type in f.
func goType(f *gosrc.File, t abisig.TargetType) string {
	if t.GoImportPath() == "" {
		return t.GoName()
	}
	name := f.Ident(protogen.GoImportPath(t.GoImportPath()), t.GoName())
	if t.GoPointer() {
		return "*" + name
	}
	return name
}

func validateContractLocation(ds manifest.Datasource) error {
	if !common.IsHexAddress(ds.Location.ID) {
		return &errdefs.ManifestError{Field: "datasource.location.id", Reason: fmt.Sprintf("'%s' is not a contract address", ds.Location.ID)}
	}
	return nil
}

// emitContractConfig declares the Config of contract datasources and the
// defaults taken from the manifest.
func emitContractConfig(f *gosrc.File, ds manifest.Datasource, fromBlock *uint64) {
	address := f.Ident(gosrc.CommonImportPath, "Address")
	f.P("// Config is the setup argument of the component.")
	f.P("type Config struct {")
	f.P("Target  ", address, " `json:\"target\"`")
	f.P("RPCURL  string `json:\"rpc_url\"`")
	f.P("ChainID uint64 `json:\"chain_id\"`")
	if fromBlock != nil {
		f.P("FromBlock uint64 `json:\"from_block\"`")
	}
	f.P("}")
	f.P()
	f.P("// DefaultConfig is the datasource declared in the manifest.")
	f.P("func DefaultConfig() Config {")
	f.P("return Config{")
	f.P("Target: ", f.Ident(gosrc.CommonImportPath, "HexToAddress"), "(", strconv.Quote(ds.Location.ID), "),")
	f.P("RPCURL: ", strconv.Quote(ds.Location.Args.RPCURL), ",")
	f.P("ChainID: ", ds.Location.Args.NetworkID, ",")
	if fromBlock != nil {
		f.P("FromBlock: ", *fromBlock, ",")
	}
	f.P("}")
	f.P("}")
	f.P()
}

func contractValidation(f *gosrc.File) []string {
	errorsNew := f.Ident(gosrc.ErrorsImportPath, "New")
	return []string{
		"if cfg.RPCURL == \"\" {",
		"return " + errorsNew + `("rpc_url is required")`,
		"}",
		"if cfg.ChainID == 0 {",
		"return " + errorsNew + `("chain_id is required")`,
		"}",
	}
}

// emitBackend writes the statements connecting to the node of cfg, leaving
// backend in scope.
func emitBackend(f *gosrc.File) {
	f.P("backend, err := c.rt.Backend(ctx, cfg.RPCURL)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("if err := ", f.Lib("CheckChain"), "(ctx, backend, cfg.ChainID); err != nil {")
	f.P("return err")
	f.P("}")
}

func emitConfigPrologue(f *gosrc.File) {
	f.P("cfg, err := c.currentConfig()")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
}
