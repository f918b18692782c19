package manifest

import (
	"fmt"
	"net/url"

	"github.com/jshufro/componentgen/errdefs"
)

// EventIndexer stores the logs of one contract event.
// Datasource.Method.Identifier names the event.
type EventIndexer struct {
	Header     `yaml:",inline"`
	Schedule   `yaml:",inline"`
	Datasource Datasource `yaml:"datasource"`
	// First block to index. Zero means the latest block at start.
	FromBlock uint64 `yaml:"from_block,omitempty"`
	// Maximum number of blocks per log query.
	ChunkSize uint64 `yaml:"chunk_size,omitempty"`
}

func (*EventIndexer) Kind() Kind { return KindEventIndexer }
func (*EventIndexer) component() {}

func (c *EventIndexer) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	return c.Datasource.validate(DatasourceContract)
}

// OutputType selects the store an algorithm indexer output is kept in.
type OutputType string

const (
	OutputKeyValue  OutputType = "key_value"
	OutputKeyValues OutputType = "key_values"
)

// Output of an algorithm indexer. The first field is the key.
type Output struct {
	Name       string     `yaml:"name"`
	Fields     Fields     `yaml:"fields"`
	OutputType OutputType `yaml:"output_type"`
}

// Input names the upstream records an algorithm indexer consumes.
type Input struct {
	Name   string `yaml:"name"`
	Fields Fields `yaml:"fields"`
}

// SourceType is the kind of upstream an algorithm indexer reads.
type SourceType string

const (
	SourceEventIndexer SourceType = "event_indexer"
	SourceCanister     SourceType = "canister"
)

// AlgorithmIndexerDatasource reads records page by page from an upstream component.
type AlgorithmIndexerDatasource struct {
	Principal  string     `yaml:"principal"`
	Input      Input      `yaml:"input"`
	From       uint64     `yaml:"from,omitempty"`
	Method     string     `yaml:"method"`
	SourceType SourceType `yaml:"source_type,omitempty"`
}

// AlgorithmIndexer folds upstream records into key-value outputs.
type AlgorithmIndexer struct {
	Header     `yaml:",inline"`
	Schedule   `yaml:",inline"`
	Datasource AlgorithmIndexerDatasource `yaml:"datasource"`
	Output     []Output                   `yaml:"output"`
}

func (*AlgorithmIndexer) Kind() Kind { return KindAlgorithmIndexer }
func (*AlgorithmIndexer) component() {}

func (c *AlgorithmIndexer) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	ds := c.Datasource
	if ds.Principal == "" {
		return &errdefs.ManifestError{Field: "datasource.principal", Reason: "is required"}
	}
	if ds.Method == "" {
		return &errdefs.ManifestError{Field: "datasource.method", Reason: "is required"}
	}
	switch ds.SourceType {
	case "", SourceEventIndexer, SourceCanister:
	default:
		return &errdefs.ManifestError{Field: "datasource.source_type", Reason: fmt.Sprintf("unknown source type '%s'", ds.SourceType)}
	}
	if ds.Input.Name == "" {
		return &errdefs.ManifestError{Field: "datasource.input.name", Reason: "is required"}
	}
	if len(ds.Input.Fields) == 0 {
		return &errdefs.ManifestError{Field: "datasource.input.fields", Reason: "at least one input field is required"}
	}
	if name, dup := ds.Input.Fields.Duplicate(); dup {
		return &errdefs.ManifestError{Field: "datasource.input.fields", Reason: fmt.Sprintf("duplicate field '%s'", name)}
	}
	if len(c.Output) == 0 {
		return &errdefs.ManifestError{Field: "output", Reason: "at least one output is required"}
	}
	names := make(map[string]bool)
	for i, o := range c.Output {
		field := fmt.Sprintf("output[%d]", i)
		if o.Name == "" {
			return &errdefs.ManifestError{Field: field + ".name", Reason: "is required"}
		}
		if names[o.Name] {
			return &errdefs.ManifestError{Field: field + ".name", Reason: fmt.Sprintf("duplicate output '%s'", o.Name)}
		}
		names[o.Name] = true
		if len(o.Fields) < 2 {
			return &errdefs.ManifestError{Field: field + ".fields", Reason: "needs a key field and at least one value field"}
		}
		if name, dup := o.Fields.Duplicate(); dup {
			return &errdefs.ManifestError{Field: field + ".fields", Reason: fmt.Sprintf("duplicate field '%s'", name)}
		}
		switch o.OutputType {
		case OutputKeyValue, OutputKeyValues:
		default:
			return &errdefs.ManifestError{Field: field + ".output_type", Reason: fmt.Sprintf("must be '%s' or '%s'", OutputKeyValue, OutputKeyValues)}
		}
	}
	return nil
}

// LensMethod is one upstream call of an algorithm lens.
type LensMethod struct {
	ID            string `yaml:"id"`
	Identifier    string `yaml:"identifier"`
	CandidFile    string `yaml:"candid_file,omitempty"`
	FuncNameAlias string `yaml:"func_name_alias,omitempty"`
}

// Alias is the name the lens logic uses for the call.
func (m LensMethod) Alias() string {
	if m.FuncNameAlias != "" {
		return m.FuncNameAlias
	}
	return m.ID
}

// AlgorithmLensDatasource lists the upstream calls of a lens.
type AlgorithmLensDatasource struct {
	Methods []LensMethod `yaml:"methods"`
}

// LensOutput shapes the value a lens computes.
type LensOutput struct {
	Name   string `yaml:"name,omitempty"`
	Fields Fields `yaml:"fields,omitempty"`
}

// AlgorithmLens derives a value on demand from other components.
type AlgorithmLens struct {
	Header     `yaml:",inline"`
	Datasource AlgorithmLensDatasource `yaml:"datasource"`
	WithArgs   Fields                  `yaml:"with_args,omitempty"`
	Output     LensOutput              `yaml:"output,omitempty"`
}

func (*AlgorithmLens) Kind() Kind { return KindAlgorithmLens }
func (*AlgorithmLens) component() {}

func (c *AlgorithmLens) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if len(c.Datasource.Methods) == 0 {
		return &errdefs.ManifestError{Field: "datasource.methods", Reason: "at least one method is required"}
	}
	ids := make(map[string]bool)
	aliases := make(map[string]bool)
	for i, m := range c.Datasource.Methods {
		field := fmt.Sprintf("datasource.methods[%d]", i)
		if m.ID == "" {
			return &errdefs.ManifestError{Field: field + ".id", Reason: "is required"}
		}
		if m.Identifier == "" {
			return &errdefs.ManifestError{Field: field + ".identifier", Reason: "is required"}
		}
		if ids[m.ID] {
			return &errdefs.ManifestError{Field: field + ".id", Reason: fmt.Sprintf("duplicate dependency '%s'", m.ID)}
		}
		ids[m.ID] = true
		if aliases[m.Alias()] {
			return &errdefs.ManifestError{Field: field + ".func_name_alias", Reason: fmt.Sprintf("duplicate alias '%s'", m.Alias())}
		}
		aliases[m.Alias()] = true
	}
	if name, dup := c.WithArgs.Duplicate(); dup {
		return &errdefs.ManifestError{Field: "with_args", Reason: fmt.Sprintf("duplicate argument '%s'", name)}
	}
	if name, dup := c.Output.Fields.Duplicate(); dup {
		return &errdefs.ManifestError{Field: "output.fields", Reason: fmt.Sprintf("duplicate field '%s'", name)}
	}
	return nil
}

// SnapshotIndexerEVM periodically stores the result of a contract call.
type SnapshotIndexerEVM struct {
	Header     `yaml:",inline"`
	Schedule   `yaml:",inline"`
	Datasource Datasource `yaml:"datasource"`
	Storage    Storage    `yaml:"storage,omitempty"`
}

func (*SnapshotIndexerEVM) Kind() Kind { return KindSnapshotIndexerEVM }
func (*SnapshotIndexerEVM) component() {}

func (c *SnapshotIndexerEVM) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	return c.Datasource.validate(DatasourceContract)
}

// SnapshotIndexerICP periodically stores the result of a canister call.
type SnapshotIndexerICP struct {
	Header      `yaml:",inline"`
	Schedule    `yaml:",inline"`
	Datasource  Datasource   `yaml:"datasource"`
	Storage     Storage      `yaml:"storage,omitempty"`
	LensTargets *LensTargets `yaml:"lens_targets,omitempty"`
}

func (*SnapshotIndexerICP) Kind() Kind { return KindSnapshotIndexerICP }
func (*SnapshotIndexerICP) component() {}

func (c *SnapshotIndexerICP) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Datasource.validate(DatasourceCanister); err != nil {
		return err
	}
	return validateLensTargets(c.LensTargets)
}

// HTTPSDatasource is a JSON document fetched over HTTPS.
type HTTPSDatasource struct {
	URL     string `yaml:"url"`
	Headers Pairs  `yaml:"headers,omitempty"`
	Queries Pairs  `yaml:"queries,omitempty"`
	// Interface-schema type of the response body. Defaults to text.
	ResponseType string `yaml:"response_type,omitempty"`
}

// SnapshotIndexerHTTPS periodically stores an HTTPS response.
type SnapshotIndexerHTTPS struct {
	Header     `yaml:",inline"`
	Schedule   `yaml:",inline"`
	Datasource HTTPSDatasource `yaml:"datasource"`
	Storage    Storage         `yaml:"storage,omitempty"`
}

func (*SnapshotIndexerHTTPS) Kind() Kind { return KindSnapshotIndexerHTTPS }
func (*SnapshotIndexerHTTPS) component() {}

func (c *SnapshotIndexerHTTPS) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	return validateURL("datasource.url", c.Datasource.URL)
}

// JSONRPCDatasource is a JSON-RPC method call.
type JSONRPCDatasource struct {
	URL          string    `yaml:"url"`
	Method       string    `yaml:"method"`
	Params       []Literal `yaml:"params,omitempty"`
	ResponseType string    `yaml:"response_type,omitempty"`
}

// SnapshotIndexerJSONRPC periodically stores a JSON-RPC result.
type SnapshotIndexerJSONRPC struct {
	Header     `yaml:",inline"`
	Schedule   `yaml:",inline"`
	Datasource JSONRPCDatasource `yaml:"datasource"`
	Storage    Storage           `yaml:"storage,omitempty"`
}

func (*SnapshotIndexerJSONRPC) Kind() Kind { return KindSnapshotIndexerJSONRPC }
func (*SnapshotIndexerJSONRPC) component() {}

func (c *SnapshotIndexerJSONRPC) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if c.Datasource.Method == "" {
		return &errdefs.ManifestError{Field: "datasource.method", Reason: "is required"}
	}
	return validateURL("datasource.url", c.Datasource.URL)
}

// Destination is the oracle a relayer writes to.
type Destination struct {
	NetworkID     uint64 `yaml:"network_id"`
	Type          string `yaml:"type"`
	OracleAddress string `yaml:"oracle_address,omitempty"`
	RPCURL        string `yaml:"rpc_url"`
	MethodName    string `yaml:"method_name,omitempty"`
}

// ConversionParameter selects and scales the relayed value.
type ConversionParameter struct {
	ExtractedField    string `yaml:"extracted_field,omitempty"`
	ExponentToConvert *int   `yaml:"exponent_to_convert,omitempty"`
}

// Relayer reads a canister value and pushes it to an oracle contract.
type Relayer struct {
	Header              `yaml:",inline"`
	Schedule            `yaml:",inline"`
	Datasource          Datasource          `yaml:"datasource"`
	Destination         Destination         `yaml:"destination"`
	ConversionParameter ConversionParameter `yaml:"conversion_parameter,omitempty"`
	LensTargets         *LensTargets        `yaml:"lens_targets,omitempty"`
}

func (*Relayer) Kind() Kind { return KindRelayer }
func (*Relayer) component() {}

func (c *Relayer) Validate() error {
	if err := c.Header.validate(); err != nil {
		return err
	}
	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Datasource.validate(DatasourceCanister); err != nil {
		return err
	}
	d := c.Destination
	if d.NetworkID == 0 {
		return &errdefs.ManifestError{Field: "destination.network_id", Reason: "is required"}
	}
	if d.Type == "" {
		return &errdefs.ManifestError{Field: "destination.type", Reason: "is required"}
	}
	if err := validateURL("destination.rpc_url", d.RPCURL); err != nil {
		return err
	}
	if e := c.ConversionParameter.ExponentToConvert; e != nil && (*e < 0 || *e > 77) {
		return &errdefs.ManifestError{Field: "conversion_parameter.exponent_to_convert", Reason: "must be between 0 and 77"}
	}
	return validateLensTargets(c.LensTargets)
}

func validateURL(field, raw string) error {
	if raw == "" {
		return &errdefs.ManifestError{Field: field, Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("'%s' is not an http(s) URL", raw)}
	}
	return nil
}
