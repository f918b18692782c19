package manifest

import (
	"fmt"
	"strings"

	"github.com/jshufro/componentgen/errdefs"
)

// DatasourceType selects what a component calls.
type DatasourceType string

const (
	DatasourceContract DatasourceType = "contract"
	DatasourceCanister DatasourceType = "canister"
)

// IDType says how a canister location id is interpreted.
type IDType string

const (
	// IDTypeAuto treats the id as a principal when it parses as one,
	// otherwise as a component name.
	IDTypeAuto      IDType = ""
	IDTypePrincipal IDType = "principal"
	IDTypeName      IDType = "name"
)

// LocationArgs are the network specific arguments of a location.
type LocationArgs struct {
	NetworkID uint64 `yaml:"network_id,omitempty"`
	RPCURL    string `yaml:"rpc_url,omitempty"`
	IDType    IDType `yaml:"id_type,omitempty"`
}

// Location of a contract or canister.
type Location struct {
	ID   string       `yaml:"id"`
	Args LocationArgs `yaml:"args,omitempty"`
}

// Method to call on a datasource. Identifier is an ABI signature for
// contracts and an interface-schema signature for canisters.
type Method struct {
	Identifier string    `yaml:"identifier"`
	Interface  string    `yaml:"interface,omitempty"`
	Args       []Literal `yaml:"args,omitempty"`
}

// Datasource is a contract method or canister method.
type Datasource struct {
	Type     DatasourceType `yaml:"type"`
	Location Location       `yaml:"location"`
	Method   Method         `yaml:"method"`
}

func (d *Datasource) validate(want DatasourceType) error {
	if d.Type != want {
		return &errdefs.ManifestError{Field: "datasource.type", Reason: fmt.Sprintf("must be '%s', got '%s'", want, d.Type)}
	}
	if d.Location.ID == "" {
		return &errdefs.ManifestError{Field: "datasource.location.id", Reason: "is required"}
	}
	if d.Method.Identifier == "" {
		return &errdefs.ManifestError{Field: "datasource.method.identifier", Reason: "is required"}
	}
	if want == DatasourceContract {
		if d.Method.Interface == "" {
			return &errdefs.ManifestError{Field: "datasource.method.interface", Reason: "a contract datasource must name an interface file"}
		}
		if d.Location.Args.RPCURL == "" {
			return &errdefs.ManifestError{Field: "datasource.location.args.rpc_url", Reason: "is required for contracts"}
		}
		if d.Location.Args.NetworkID == 0 {
			return &errdefs.ManifestError{Field: "datasource.location.args.network_id", Reason: "is required for contracts"}
		}
	}
	switch d.Location.Args.IDType {
	case IDTypeAuto, IDTypePrincipal, IDTypeName:
	default:
		return &errdefs.ManifestError{Field: "datasource.location.args.id_type", Reason: fmt.Sprintf("unknown id type '%s'", d.Location.Args.IDType)}
	}
	return nil
}

// Storage policy of snapshot indexers.
type Storage struct {
	WithTimestamp *bool `yaml:"with_timestamp,omitempty"`
}

// Timestamped reports whether snapshots carry their timestamp. Defaults to true.
func (s Storage) Timestamped() bool {
	return s.WithTimestamp == nil || *s.WithTimestamp
}

// LensTargets are upstream components a component calls to derive its value.
type LensTargets struct {
	Identifiers []string `yaml:"identifiers"`
}

func validateLensTargets(t *LensTargets) error {
	if t == nil {
		return nil
	}
	if len(t.Identifiers) == 0 {
		return &errdefs.ManifestError{Field: "lens_targets.identifiers", Reason: "must not be empty when lens_targets is set"}
	}
	seen := make(map[string]bool)
	for _, id := range t.Identifiers {
		if strings.TrimSpace(id) == "" {
			return &errdefs.ManifestError{Field: "lens_targets.identifiers", Reason: "must not contain empty identifiers"}
		}
		if seen[id] {
			return &errdefs.ManifestError{Field: "lens_targets.identifiers", Reason: fmt.Sprintf("duplicate identifier '%s'", id)}
		}
		seen[id] = true
	}
	return nil
}
