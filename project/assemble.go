package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/script"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Assembler generates every component of a project.
type Assembler struct {
	project    *Project
	ids        IDs
	interfaces *InterfaceLoader
	logger     *zap.Logger
	limit      int
	cacheSize  int
	codegen    []codegen.Option
}

// Option configures an Assembler.
type Option func(*Assembler)

func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithParallelism bounds the number of components generated at once.
func WithParallelism(n int) Option {
	return func(a *Assembler) { a.limit = n }
}

func WithCacheSize(n int) Option {
	return func(a *Assembler) { a.cacheSize = n }
}

// WithCodegenOptions passes options to every component generator.
func WithCodegenOptions(opts ...codegen.Option) Option {
	return func(a *Assembler) { a.codegen = append(a.codegen, opts...) }
}

// NewAssembler prepares the project in dir. The id table is read once here
// and passed to the generators explicitly.
func NewAssembler(dir string, opts ...Option) (*Assembler, error) {
	a := newAssembler(opts)
	if err := a.reload(dir); err != nil {
		return nil, err
	}
	return a.init()
}

// OpenDir is NewAssembler for directories that may lack a project file. Such
// a directory is an empty project; its interfaces and id table still apply.
func OpenDir(dir string, opts ...Option) (*Assembler, error) {
	if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
		return NewAssembler(dir, opts...)
	}
	a := newAssembler(opts)
	ids, err := LoadIDs(filepath.Join(dir, IDsFile))
	if err != nil {
		return nil, err
	}
	a.project = &Project{Label: filepath.Base(dir), dir: dir}
	a.ids = ids
	return a.init()
}

func newAssembler(opts []Option) *Assembler {
	a := &Assembler{logger: zap.NewNop(), limit: runtime.NumCPU()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) init() (*Assembler, error) {
	interfaces, err := NewInterfaceLoader(a.project.Path(InterfacesDir), a.cacheSize, a.logger)
	if err != nil {
		return nil, err
	}
	a.interfaces = interfaces
	return a, nil
}

// reload reads the project file and the id table again.
func (a *Assembler) reload(dir string) error {
	p, err := Load(dir)
	if err != nil {
		return err
	}
	ids, err := LoadIDs(p.Path(IDsFile))
	if err != nil {
		return err
	}
	a.project = p
	a.ids = ids
	return nil
}

func (a *Assembler) Project() *Project {
	return a.project
}

func (a *Assembler) IDs() IDs {
	return a.ids
}

func (a *Assembler) options() []codegen.Option {
	opts := []codegen.Option{codegen.WithImportPrefix(a.project.ImportPrefix())}
	return append(opts, a.codegen...)
}

// Generator returns the code generator of c, configured for this project.
func (a *Assembler) Generator(c manifest.Component) (codegen.ComponentCodeGenerator, error) {
	return codegen.New(c, a.options()...)
}

// Interfaces resolves the interface files c needs.
func (a *Assembler) Interfaces(c manifest.Component) (*codegen.Interfaces, error) {
	g, err := a.Generator(c)
	if err != nil {
		return nil, err
	}
	return a.interfaces.Load(g.InterfaceFiles())
}

// GenerateComponent runs every generator for one component.
func (a *Assembler) GenerateComponent(c manifest.Component, network script.Network) (*codegen.Output, error) {
	interfaces, err := a.Interfaces(c)
	if err != nil {
		return nil, errdefs.WithLabel(c.Meta().Label, err)
	}
	return codegen.Generate(c, interfaces, network, a.options()...)
}

// Generate runs the generators of every component in parallel. Outputs keep
// the order of the project file; the first failure cancels the rest.
func (a *Assembler) Generate(ctx context.Context, network script.Network) ([]*codegen.Output, error) {
	components, err := a.project.Manifests()
	if err != nil {
		return nil, err
	}
	outputs := make([]*codegen.Output, len(components))
	eg, ctx := errgroup.WithContext(ctx)
	if a.limit > 0 {
		eg.SetLimit(a.limit)
	}
	for i, c := range components {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := a.GenerateComponent(c, network)
			if err != nil {
				return err
			}
			outputs[i] = out
			a.logger.Debug("generated component", zap.String("label", out.Label))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// Write stores the outputs in the project. The logic template is written
// only when the file does not exist yet.
func (a *Assembler) Write(outputs []*codegen.Output, network script.Network) error {
	kinds := make([]manifest.Kind, 0, len(outputs))
	for _, out := range outputs {
		if err := a.write(out, network); err != nil {
			return errdefs.WithLabel(out.Label, err)
		}
		kinds = append(kinds, out.Kind)
	}
	return WriteSchemas(a.project.Path(SchemasDir), kinds...)
}

// WriteSchemas stores the companion schema of every distinct kind in dir.
func WriteSchemas(dir string, kinds ...manifest.Kind) error {
	if len(kinds) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	written := make(map[manifest.Kind]bool, len(kinds))
	for _, kind := range kinds {
		if written[kind] {
			continue
		}
		written[kind] = true
		data, err := manifest.Schema(kind)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, manifest.SchemaFile(kind))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}
	return nil
}

func (a *Assembler) write(out *codegen.Output, network script.Network) error {
	dir := a.project.Path(ArtifactsDir, codegen.PackageName(out.Label))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := out.Files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if name == codegen.LogicFile {
			if _, err := os.Stat(path); err == nil {
				a.logger.Debug("keeping logic", zap.String("path", path))
				continue
			}
		}
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}

	if len(out.InterfaceFiles) > 0 {
		interfaces, err := a.interfaces.Load(out.InterfaceFiles)
		if err != nil {
			return err
		}
		for _, name := range out.InterfaceFiles {
			data, ok := interfaces.File(name)
			if !ok {
				return &errdefs.InterfaceResolutionError{Name: name}
			}
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return err
			}
		}
	}

	scripts := a.project.Path(ScriptsDir, string(network))
	if err := os.MkdirAll(scripts, 0o755); err != nil {
		return err
	}
	path := filepath.Join(scripts, out.Label+".sh")
	if err := os.WriteFile(path, []byte(out.Script), 0o755); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	a.logger.Info("wrote component", zap.String("label", out.Label), zap.String("dir", dir))
	return nil
}

// Run generates and writes the whole project. Nothing is written when any
// component fails.
func (a *Assembler) Run(ctx context.Context, network script.Network) error {
	outputs, err := a.Generate(ctx, network)
	if err != nil {
		return err
	}
	return a.Write(outputs, network)
}

// SetupArgs encodes the setup argument of c for network using the id table.
func (a *Assembler) SetupArgs(c manifest.Component, network script.Network) ([]byte, error) {
	g, err := a.Generator(c)
	if err != nil {
		return nil, errdefs.WithLabel(c.Meta().Label, err)
	}
	encoded, err := g.GenerateSetupArgs(network, a.ids)
	return encoded, errdefs.WithLabel(c.Meta().Label, err)
}
