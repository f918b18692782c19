// Package gosrc emits Go source files through protogen's GeneratedFile, which
// tracks imports for qualified identifiers and gofmt's the result.
package gosrc

import (
	"fmt"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"
)

// LibImportPath is the runtime support package linked by generated components.
const LibImportPath protogen.GoImportPath = "github.com/jshufro/componentgen/lib"

// Commonly referenced packages.
const (
	BigImportPath     protogen.GoImportPath = "math/big"
	CommonImportPath  protogen.GoImportPath = "github.com/ethereum/go-ethereum/common"
	Uint256ImportPath protogen.GoImportPath = "github.com/holiman/uint256"
	BindImportPath    protogen.GoImportPath = "github.com/ethereum/go-ethereum/accounts/abi/bind"
	ContextImportPath protogen.GoImportPath = "context"
	ErrorsImportPath  protogen.GoImportPath = "errors"
	FmtImportPath     protogen.GoImportPath = "fmt"
	TimeImportPath    protogen.GoImportPath = "time"
	JSONImportPath    protogen.GoImportPath = "encoding/json"
	EmbedImportPath   protogen.GoImportPath = "embed"
	SyncImportPath    protogen.GoImportPath = "sync"
	ABIImportPath     protogen.GoImportPath = "github.com/ethereum/go-ethereum/accounts/abi"
	ZapImportPath     protogen.GoImportPath = "go.uber.org/zap"
)

// Header marks files that are regenerated on every run.
const Header = "// Code generated by componentgen. DO NOT EDIT."

// File is one Go source file under construction.
type File struct {
	*protogen.GeneratedFile
}

// NewFile starts a file for package pkg living at importPath. When generated
// is set the file carries the DO NOT EDIT header.
func NewFile(filename, pkg string, importPath protogen.GoImportPath, generated bool) (*File, error) {
	plugin, err := protogen.Options{}.New(&pluginpb.CodeGeneratorRequest{})
	if err != nil {
		return nil, fmt.Errorf("error creating source emitter: %w", err)
	}

	g := plugin.NewGeneratedFile(filename, importPath)
	if generated {
		g.P(Header)
		g.P()
	}
	g.P("package ", pkg)
	g.P()
	return &File{GeneratedFile: g}, nil
}

// Ident is shorthand for an identifier in another package.
func (f *File) Ident(importPath protogen.GoImportPath, name string) string {
	return f.QualifiedGoIdent(importPath.Ident(name))
}

// Lib qualifies an identifier of the runtime support package.
func (f *File) Lib(name string) string {
	return f.Ident(LibImportPath, name)
}

// Source returns the formatted file contents. Syntax errors in the emitted
// code surface here.
func (f *File) Source() (string, error) {
	b, err := f.Content()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
