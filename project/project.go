// Package project assembles a componentgen project: it loads the project
// file and its component manifests, resolves interface files, runs the code
// generators and writes the artifacts and deployment scripts.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/script"
	"gopkg.in/yaml.v3"
)

// Files and directories of a project, relative to its root.
const (
	FileName      = "project.yaml"
	IDsFile       = "ids.yaml"
	InterfacesDir = "interfaces"
	ArtifactsDir  = "artifacts"
	ScriptsDir    = "scripts"
	SchemasDir    = "schemas"
)

// Entry points at one component manifest.
type Entry struct {
	Component string `yaml:"component"`
}

// Project is the in-memory representation of project.yaml.
type Project struct {
	Version string `yaml:"version"`
	Label   string `yaml:"label"`
	// Module is the import path of the project root. Generated packages live
	// under <module>/artifacts.
	Module     string  `yaml:"module,omitempty"`
	Components []Entry `yaml:"components"`

	dir string
}

// Load reads the project file in dir.
func Load(dir string) (*Project, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading project file: %w", err)
	}
	p := &Project{dir: dir}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, &errdefs.ManifestError{Reason: err.Error()})
	}
	if p.Label == "" {
		return nil, fmt.Errorf("%s: %w", path, &errdefs.ManifestError{Field: "label", Reason: "is required"})
	}
	return p, nil
}

// Dir is the project root.
func (p *Project) Dir() string {
	return p.dir
}

// Path resolves a project relative path.
func (p *Project) Path(rel ...string) string {
	return filepath.Join(append([]string{p.dir}, rel...)...)
}

// ManifestPath is the path of the i-th component manifest.
func (p *Project) ManifestPath(i int) string {
	if filepath.IsAbs(p.Components[i].Component) {
		return p.Components[i].Component
	}
	return p.Path(p.Components[i].Component)
}

// ImportPrefix is the import path generated packages are placed under.
func (p *Project) ImportPrefix() string {
	if p.Module == "" {
		return ArtifactsDir
	}
	return p.Module + "/" + ArtifactsDir
}

// Manifests loads every component of the project. Labels must be unique
// once turned into package names, since that names the artifact directory.
func (p *Project) Manifests() ([]manifest.Component, error) {
	out := make([]manifest.Component, 0, len(p.Components))
	seen := make(map[string]string, len(p.Components))
	for i, e := range p.Components {
		if e.Component == "" {
			return nil, &errdefs.ManifestError{Field: fmt.Sprintf("components[%d].component", i), Reason: "is required"}
		}
		c, err := manifest.Load(p.ManifestPath(i))
		if err != nil {
			return nil, err
		}
		label := c.Meta().Label
		pkg := codegen.PackageName(label)
		if prev, ok := seen[pkg]; ok {
			return nil, errdefs.WithLabel(label, &errdefs.ManifestError{
				Field:  "metadata.label",
				Reason: fmt.Sprintf("'%s' collides with %s in package %s", label, prev, pkg),
			})
		}
		seen[pkg] = e.Component
		out = append(out, c)
	}
	return out, nil
}

// IDs maps component labels to deployed principals, per network.
type IDs map[script.Network]map[string]string

// LoadIDs reads an id table. A missing file is an empty table.
func LoadIDs(path string) (IDs, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return IDs{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading id table: %w", err)
	}
	ids := IDs{}
	if err := yaml.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for network := range ids {
		if _, err := script.ParseNetwork(string(network)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return ids, nil
}

// Lookup returns the principal of label on network.
func (ids IDs) Lookup(network script.Network, label string) (string, bool) {
	p, ok := ids[network][label]
	return p, ok
}
