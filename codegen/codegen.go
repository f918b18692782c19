// Package codegen turns component manifests into Go sources, deployment
// scripts and setup arguments. Every entry point is a pure function of the
// manifest and the interfaces handed in.
package codegen

import (
	"fmt"
	"go/token"
	"path"
	"strings"

	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
	"google.golang.org/protobuf/compiler/protogen"
)

// Files written for every component.
const (
	RuntimeFile = "runtime.go"
	TypesFile   = "types.go"
	LogicFile   = "logic.go"
)

// GeneratedCodes is the output of one generator call.
type GeneratedCodes struct {
	Primary string
	// Types is empty when the component declares no types of its own.
	Types string
}

// IDTable maps component labels to their principals on a network.
type IDTable interface {
	Lookup(network script.Network, label string) (string, bool)
}

// ComponentCodeGenerator generates the artifacts of one component.
type ComponentCodeGenerator interface {
	Validate() error
	GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error)
	// GenerateLogicTemplate returns nil for kinds without user logic.
	GenerateLogicTemplate() (*GeneratedCodes, error)
	GenerateScript(network script.Network) (string, error)
	RequiredInterfaceFile() (string, bool)
	DestinationKind() (oracle.Kind, bool)
	// InterfaceFiles lists every interface file the component needs.
	InterfaceFiles() []string
	// GenerateSetupArgs returns nil for kinds without a setup call.
	GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error)
}

type options struct {
	oracles      *oracle.Registry
	importPrefix string
	resolver     candid.Resolver
}

// Option configures a generator.
type Option func(*options)

// WithOracles sets the registry used to find oracle deployments.
func WithOracles(r *oracle.Registry) Option {
	return func(o *options) { o.oracles = r }
}

// WithImportPrefix sets the import path the generated packages live under.
func WithImportPrefix(prefix string) Option {
	return func(o *options) { o.importPrefix = prefix }
}

// WithResolver sets the schema resolver for interface-schema signatures.
func WithResolver(r candid.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// base carries what every generator shares.
type base struct {
	component manifest.Component
	opts      options
}

func (b *base) label() string {
	return b.component.Meta().Label
}

func (b *base) pkg() string {
	return PackageName(b.label())
}

func (b *base) importPath() protogen.GoImportPath {
	return protogen.GoImportPath(path.Join(b.opts.importPrefix, b.pkg()))
}

func (b *base) validate() error {
	if err := manifest.CheckKind(b.component); err != nil {
		return err
	}
	return b.component.Validate()
}

// New returns the generator for the kind of c.
func New(c manifest.Component, opts ...Option) (ComponentCodeGenerator, error) {
	o := options{importPrefix: "artifacts"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.oracles == nil {
		o.oracles = oracle.NewRegistry()
	}
	if o.resolver == nil {
		o.resolver = candid.NativeResolver{}
	}
	b := base{component: c, opts: o}

	switch c := c.(type) {
	case *manifest.EventIndexer:
		return &eventIndexer{base: b, m: c}, nil
	case *manifest.AlgorithmIndexer:
		return &algorithmIndexer{base: b, m: c}, nil
	case *manifest.AlgorithmLens:
		return &algorithmLens{base: b, m: c}, nil
	case *manifest.SnapshotIndexerEVM:
		return &snapshotEVM{base: b, m: c}, nil
	case *manifest.SnapshotIndexerICP:
		return &snapshotICP{base: b, m: c}, nil
	case *manifest.SnapshotIndexerHTTPS:
		return &snapshotHTTPS{base: b, m: c}, nil
	case *manifest.SnapshotIndexerJSONRPC:
		return &snapshotJSONRPC{base: b, m: c}, nil
	case *manifest.Relayer:
		return &relayer{base: b, m: c}, nil
	case nil:
		return nil, &errdefs.ManifestError{Reason: "no manifest"}
	}
	return nil, &errdefs.ManifestError{Field: "metadata.type", Reason: fmt.Sprintf("no generator for %T", c)}
}

// Output is everything generated for one component.
type Output struct {
	Label          string
	Kind           manifest.Kind
	Runtime        *GeneratedCodes
	Logic          *GeneratedCodes
	Script         string
	InterfaceFiles []string
}

// Files maps file names to contents. The logic template is included only
// when the kind has one.
func (o *Output) Files() map[string]string {
	files := map[string]string{RuntimeFile: o.Runtime.Primary}
	if o.Runtime.Types != "" {
		files[TypesFile] = o.Runtime.Types
	}
	if o.Logic != nil {
		files[LogicFile] = o.Logic.Primary
	}
	return files
}

// Generate validates c and runs every generator. Either all outputs are
// produced or the first error is returned with the component label.
func Generate(c manifest.Component, interfaces *Interfaces, network script.Network, opts ...Option) (*Output, error) {
	label := "<unknown>"
	if c != nil {
		label = c.Meta().Label
	}

	g, err := New(c, opts...)
	if err != nil {
		return nil, errdefs.WithLabel(label, err)
	}
	if err := g.Validate(); err != nil {
		return nil, errdefs.WithLabel(label, err)
	}
	out := &Output{Label: label, Kind: c.Kind(), InterfaceFiles: g.InterfaceFiles()}
	if out.Runtime, err = g.GenerateRuntimeModule(interfaces); err != nil {
		return nil, errdefs.WithLabel(label, err)
	}
	if out.Logic, err = g.GenerateLogicTemplate(); err != nil {
		return nil, errdefs.WithLabel(label, err)
	}
	if out.Script, err = g.GenerateScript(network); err != nil {
		return nil, errdefs.WithLabel(label, err)
	}
	return out, nil
}

// PackageName turns a label into a Go package name.
func PackageName(label string) string {
	name := strings.ToLower(strings.ReplaceAll(label, "-", "_"))
	if token.IsKeyword(name) {
		name += "_"
	}
	return name
}
