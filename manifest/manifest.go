// Package manifest is the typed model of component manifests: one struct per
// component kind, loaded from and saved to YAML.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/jshufro/componentgen/errdefs"
)

// Kind is the declared component kind, metadata.type in YAML.
type Kind string

const (
	KindEventIndexer           Kind = "event_indexer"
	KindAlgorithmIndexer       Kind = "algorithm_indexer"
	KindAlgorithmLens          Kind = "algorithm_lens"
	KindSnapshotIndexerEVM     Kind = "snapshot_indexer_evm"
	KindSnapshotIndexerICP     Kind = "snapshot_indexer_icp"
	KindSnapshotIndexerHTTPS   Kind = "snapshot_indexer_https"
	KindSnapshotIndexerJSONRPC Kind = "snapshot_indexer_json_rpc"
	KindRelayer                Kind = "relayer"
)

// Kinds lists every component kind.
var Kinds = []Kind{
	KindEventIndexer,
	KindAlgorithmIndexer,
	KindAlgorithmLens,
	KindSnapshotIndexerEVM,
	KindSnapshotIndexerICP,
	KindSnapshotIndexerHTTPS,
	KindSnapshotIndexerJSONRPC,
	KindRelayer,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Metadata common to every component
type Metadata struct {
	Label       string   `yaml:"label"`
	Type        Kind     `yaml:"type"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Header is embedded by every component.
type Header struct {
	Version  string   `yaml:"version"`
	Metadata Metadata `yaml:"metadata"`

	// On-disk label, attached after load.
	id string
}

// Meta returns the component metadata.
func (h *Header) Meta() *Metadata {
	return &h.Metadata
}

// ID is the attached on-disk label, or the metadata label before attachment.
func (h *Header) ID() string {
	if h.id != "" {
		return h.id
	}
	return h.Metadata.Label
}

// AttachID records the label the component was loaded under.
func (h *Header) AttachID(id string) {
	h.id = id
}

func (h *Header) validate() error {
	if h.Version == "" {
		return &errdefs.ManifestError{Field: "version", Reason: "is required"}
	}
	if h.Metadata.Label == "" {
		return &errdefs.ManifestError{Field: "metadata.label", Reason: "is required"}
	}
	if !labelPattern.MatchString(h.Metadata.Label) {
		return &errdefs.ManifestError{Field: "metadata.label", Reason: fmt.Sprintf("'%s' must start with a letter and contain only letters, digits, '_' and '-'", h.Metadata.Label)}
	}
	if !h.Metadata.Type.Valid() {
		return &errdefs.ManifestError{Field: "metadata.type", Reason: fmt.Sprintf("unknown component type '%s'", h.Metadata.Type)}
	}
	return nil
}

// Schedule is the timer configuration of periodic components, in seconds.
type Schedule struct {
	Interval uint32 `yaml:"interval"`
	Delay    uint32 `yaml:"delay,omitempty"`
}

func (s *Schedule) validate() error {
	if s.Interval == 0 {
		return &errdefs.ManifestError{Field: "interval", Reason: "must be greater than zero"}
	}
	return nil
}

// Component is implemented by the struct of every component kind. The set is
// closed; switch on the concrete type to handle each kind.
type Component interface {
	Meta() *Metadata
	ID() string
	AttachID(id string)
	// Kind is the kind of the concrete type, regardless of metadata.
	Kind() Kind
	// Validate checks the structure of the manifest.
	Validate() error

	component()
}

// New returns an empty component of the given kind.
func New(kind Kind) (Component, error) {
	switch kind {
	case KindEventIndexer:
		return &EventIndexer{}, nil
	case KindAlgorithmIndexer:
		return &AlgorithmIndexer{}, nil
	case KindAlgorithmLens:
		return &AlgorithmLens{}, nil
	case KindSnapshotIndexerEVM:
		return &SnapshotIndexerEVM{}, nil
	case KindSnapshotIndexerICP:
		return &SnapshotIndexerICP{}, nil
	case KindSnapshotIndexerHTTPS:
		return &SnapshotIndexerHTTPS{}, nil
	case KindSnapshotIndexerJSONRPC:
		return &SnapshotIndexerJSONRPC{}, nil
	case KindRelayer:
		return &Relayer{}, nil
	}
	return nil, &errdefs.ManifestError{Field: "metadata.type", Reason: fmt.Sprintf("unknown component type '%s'", kind)}
}

// CheckKind fails when the declared kind does not match the concrete type.
func CheckKind(c Component) error {
	if declared := c.Meta().Type; declared != c.Kind() {
		return &errdefs.ManifestError{
			Field:  "metadata.type",
			Reason: fmt.Sprintf("declared '%s' but the manifest is a %s", declared, c.Kind()),
		}
	}
	return nil
}
