package codegen

import (
	"fmt"
	"strings"

	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/script"
)

// Identifiers declared by every generated package. User supplied type
// names must not collide with them.
var reservedNames = map[string]bool{
	"Component":        true,
	"Config":           true,
	"Snapshot":         true,
	"RequestArgsType":  true,
	"ResponseType":     true,
	"Outputs":          true,
	"Callers":          true,
	"LensArgs":         true,
	"Output":           true,
	"New":              true,
	"ErrNotConfigured": true,
	"DefaultConfig":    true,
	"Method":           true,
	"UpdateMethod":     true,
	"EventName":        true,
	"URL":              true,
	"Interval":         true,
	"Delay":            true,
	"ChunkSize":        true,
	"PageSize":         true,
	"Dependencies":     true,
}

func checkTypeName(field, name string) error {
	if reservedNames[name] {
		return &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("'%s' is reserved in generated code", name)}
	}
	return nil
}

// sources is the pair of files a runtime module is written to.
type sources struct {
	rt    *gosrc.File
	types *gosrc.File
	// typed is set once anything is declared in types.
	typed bool
}

func (b *base) sources() (*sources, error) {
	rt, err := gosrc.NewFile(RuntimeFile, b.pkg(), b.importPath(), true)
	if err != nil {
		return nil, err
	}
	types, err := gosrc.NewFile(TypesFile, b.pkg(), b.importPath(), true)
	if err != nil {
		return nil, err
	}
	return &sources{rt: rt, types: types}, nil
}

func (s *sources) finish() (*GeneratedCodes, error) {
	primary, err := s.rt.Source()
	if err != nil {
		return nil, fmt.Errorf("error formatting %s: %w", RuntimeFile, err)
	}
	out := &GeneratedCodes{Primary: primary}
	if s.typed {
		if out.Types, err = s.types.Source(); err != nil {
			return nil, fmt.Errorf("error formatting %s: %w", TypesFile, err)
		}
	}
	return out, nil
}

// componentSpec shapes the Component type of a generated package.
type componentSpec struct {
	label string
	// Extra struct fields and their initializers in New.
	fields []string
	init   []string
	// config adds Config handling; validate holds statements checking cfg.
	config   bool
	validate []string
	// timer adds the periodic task. The kind supplies Tick.
	timer bool
}

func emitComponent(f *gosrc.File, spec componentSpec) {
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	lib := f.Lib
	zapField := func(name string) string { return f.Ident(gosrc.ZapImportPath, name) }

	if spec.config {
		f.P("// ErrNotConfigured is returned by Tick before Setup has been called.")
		f.P("var ErrNotConfigured = ", f.Ident(gosrc.ErrorsImportPath, "New"), `("`, spec.label, `: setup has not been called")`)
		f.P()
	}

	f.P("// Component is the ", spec.label, " component.")
	f.P("type Component struct {")
	f.P("rt     ", lib("Runtime"))
	f.P("logger *", f.Ident(gosrc.ZapImportPath, "Logger"))
	f.P()
	f.P("lock ", f.Ident(gosrc.SyncImportPath, "RWMutex"))
	f.P("env  ", lib("Env"))
	if spec.config {
		f.P("config *Config")
	}
	if spec.timer {
		f.P("task *", lib("Task"))
	}
	for _, field := range spec.fields {
		f.P(field)
	}
	f.P("}")
	f.P()

	f.P("// New creates the component on a runtime.")
	f.P("func New(rt ", lib("Runtime"), ") *Component {")
	f.P("return &Component{")
	f.P("rt: rt,")
	f.P(`logger: rt.Logger().Named("`, spec.label, `"),`)
	for _, line := range spec.init {
		f.P(line)
	}
	f.P("}")
	f.P("}")
	f.P()

	f.P("// Init selects the environment the component runs in.")
	f.P("func (c *Component) Init(env ", lib("Env"), ") {")
	f.P("c.lock.Lock()")
	f.P("defer c.lock.Unlock()")
	f.P("c.env = env")
	f.P(`c.logger.Info("initialized", `, zapField("Stringer"), `("env", env))`)
	f.P("}")
	f.P()
	f.P("func (c *Component) Env() ", lib("Env"), " {")
	f.P("c.lock.RLock()")
	f.P("defer c.lock.RUnlock()")
	f.P("return c.env")
	f.P("}")
	f.P()

	if spec.config {
		f.P("// Setup sets the datasource of the component.")
		f.P("func (c *Component) Setup(cfg Config) error {")
		for _, line := range spec.validate {
			f.P(line)
		}
		f.P("c.lock.Lock()")
		f.P("defer c.lock.Unlock()")
		f.P("c.config = &cfg")
		f.P(`c.logger.Info("configured")`)
		f.P("return nil")
		f.P("}")
		f.P()
		f.P("func (c *Component) currentConfig() (Config, error) {")
		f.P("c.lock.RLock()")
		f.P("defer c.lock.RUnlock()")
		f.P("if c.config == nil {")
		f.P("return Config{}, ErrNotConfigured")
		f.P("}")
		f.P("return *c.config, nil")
		f.P("}")
		f.P()
	}

	if spec.timer {
		seconds := f.Ident(gosrc.TimeImportPath, "Second")
		duration := f.Ident(gosrc.TimeImportPath, "Duration")
		f.P("// SetTask starts the periodic task with the given schedule, in seconds.")
		f.P("func (c *Component) SetTask(ctx ", ctx, ", interval, delay uint32) error {")
		f.P("c.lock.Lock()")
		f.P("defer c.lock.Unlock()")
		f.P("if c.task != nil && c.task.Running() {")
		f.P("return ", lib("ErrTaskStarted"))
		f.P("}")
		f.P(`c.task = `, lib("NewTask"), `("`, spec.label, `", `, duration, "(interval)*", seconds, ", ", duration, "(delay)*", seconds, ", c.logger, c.Tick)")
		f.P("return c.task.Start(ctx)")
		f.P("}")
		f.P()
		f.P("// Start runs the periodic task on the schedule of the manifest.")
		f.P("func (c *Component) Start(ctx ", ctx, ") error {")
		f.P("return c.SetTask(ctx, Interval, Delay)")
		f.P("}")
		f.P()
		f.P("// Stop ends the periodic task and waits for a running tick.")
		f.P("func (c *Component) Stop() {")
		f.P("c.lock.Lock()")
		f.P("task := c.task")
		f.P("c.lock.Unlock()")
		f.P("if task != nil {")
		f.P("task.Stop()")
		f.P("}")
		f.P("}")
		f.P()
	}
}

func emitSchedule(f *gosrc.File, s manifest.Schedule) {
	f.P("// Schedule of the periodic task, in seconds.")
	f.P("const (")
	f.P("Interval uint32 = ", s.Interval)
	f.P("Delay    uint32 = ", s.Delay)
	f.P(")")
	f.P()
}

// emitSnapshotType declares Snapshot around ResponseType. Without a
// timestamp it is a bare single-field wrapper.
func emitSnapshotType(f *gosrc.File, timestamped bool) {
	if timestamped {
		f.P("// Snapshot is one stored result of the periodic task.")
		f.P("type Snapshot struct {")
		f.P("Value     ResponseType `json:\"value\"`")
		f.P("Timestamp uint64       `json:\"timestamp\"`")
		f.P("}")
	} else {
		f.P("// Snapshot wraps one stored result of the periodic task.")
		f.P("type Snapshot struct {")
		f.P("Value ResponseType `json:\"value\"`")
		f.P("}")
	}
	f.P()
}

const snapshotsField = "snapshots *%s[Snapshot]"

func snapshotSpec(f *gosrc.File, spec *componentSpec) {
	spec.fields = append(spec.fields, fmt.Sprintf(snapshotsField, f.Lib("Store")))
	spec.init = append(spec.init, fmt.Sprintf("snapshots: %s[Snapshot](),", f.Lib("NewStore")))
}

// emitSnapshotMethods writes the snapshot store accessors and the query
// methods other components call.
func emitSnapshotMethods(f *gosrc.File, timestamped bool) {
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	errorsNew := f.Ident(gosrc.ErrorsImportPath, "New")

	f.P("func (c *Component) store(value ResponseType) uint64 {")
	if timestamped {
		f.P("return c.snapshots.Append(Snapshot{Value: value, Timestamp: uint64(c.rt.Now().Unix())})")
	} else {
		f.P("return c.snapshots.Append(Snapshot{Value: value})")
	}
	f.P("}")
	f.P()
	f.P("// GetLastSnapshot returns the most recent snapshot.")
	f.P("func (c *Component) GetLastSnapshot() (Snapshot, bool) {")
	f.P("return c.snapshots.Last()")
	f.P("}")
	f.P()
	f.P("// GetSnapshots returns up to limit snapshots starting at index from.")
	f.P("func (c *Component) GetSnapshots(from, limit uint64) []Snapshot {")
	f.P("return c.snapshots.Range(from, limit)")
	f.P("}")
	f.P()
	f.P("// Register exposes the snapshot queries of the component as id.")
	f.P("func (c *Component) Register(r ", f.Lib("Registrar"), ", id ", f.Lib("Principal"), ") {")
	f.P(`r.Register(id, "get_last_snapshot", func(ctx `, ctx, `, args []interface{}) (interface{}, error) {`)
	f.P("s, ok := c.GetLastSnapshot()")
	f.P("if !ok {")
	f.P(`return nil, `, errorsNew, `("no snapshot has been taken")`)
	f.P("}")
	f.P("return s, nil")
	f.P("})")
	f.P(`r.Register(id, "get_snapshots", func(ctx `, ctx, `, args []interface{}) (interface{}, error) {`)
	f.P(`from, limit, err := `, f.Lib("PageArgs"), `("get_snapshots", args)`)
	f.P("if err != nil {")
	f.P("return nil, err")
	f.P("}")
	f.P("return c.GetSnapshots(from, limit), nil")
	f.P("})")
	f.P("}")
	f.P()
}

// emitEmbeddedABI embeds an interface file shipped next to the generated
// sources and parses it once. fn names the loader.
func emitEmbeddedABI(f *gosrc.File, file, variable, fn string) {
	f.Import(gosrc.EmbedImportPath)
	f.P("//go:embed ", file)
	f.P("var ", variable, " string")
	f.P()
	f.P("var ", fn, " = ", f.Ident(gosrc.SyncImportPath, "OnceValues"), "(func() (*", f.Ident(gosrc.ABIImportPath, "ABI"), ", error) {")
	f.P("return ", f.Lib("ParseABI"), "(", variable, ")")
	f.P("})")
	f.P()
}

// emitLensTargets writes the conversion of configured lens targets into the
// implicit first call argument.
func emitLensTargets(f *gosrc.File) {
	f.P("func lensTargets(cfg Config) []string {")
	f.P("out := make([]string, 0, len(cfg.LensTargets))")
	f.P("for _, p := range cfg.LensTargets {")
	f.P("out = append(out, p.String())")
	f.P("}")
	f.P("return out")
	f.P("}")
	f.P()
}

// principalResolver turns a location id into a principal value.
type principalResolver func(field, id string, idType manifest.IDType) (candid.Value, error)

// isComponentName decides whether a location id names a component.
func isComponentName(field, id string, idType manifest.IDType) (bool, error) {
	switch idType {
	case manifest.IDTypeName:
		return true, nil
	case manifest.IDTypePrincipal:
		if !candid.IsPrincipal(id) {
			return false, &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("'%s' is not a principal", id)}
		}
		return false, nil
	}
	return !candid.IsPrincipal(id), nil
}

func principalValue(field, id string) (candid.Value, error) {
	p, err := candid.ParsePrincipal(id)
	if err != nil {
		return nil, &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("'%s' is not a principal: %v", id, err)}
	}
	return candid.PrincipalValue(p), nil
}

// scriptPrincipals leaves component names to be looked up by the script.
func scriptPrincipals(field, id string, idType manifest.IDType) (candid.Value, error) {
	name, err := isComponentName(field, id, idType)
	if err != nil {
		return nil, err
	}
	if name {
		return script.CanisterRef{Name: id}, nil
	}
	return principalValue(field, id)
}

// tablePrincipals looks component names up in the id table.
func tablePrincipals(network script.Network, ids IDTable) principalResolver {
	return func(field, id string, idType manifest.IDType) (candid.Value, error) {
		name, err := isComponentName(field, id, idType)
		if err != nil {
			return nil, err
		}
		if !name {
			return principalValue(field, id)
		}
		if ids == nil {
			return nil, &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("component '%s' cannot be resolved without an id table", id)}
		}
		resolved, ok := ids.Lookup(network, id)
		if !ok {
			return nil, &errdefs.ManifestError{Field: field, Reason: fmt.Sprintf("component '%s' has no id on network %s", id, network)}
		}
		return principalValue(field, resolved)
	}
}

var principalType = &candid.Prim{Name: candid.Principal}

// lensTargetsValue is the optional list of resolved lens targets.
func lensTargetsValue(t *manifest.LensTargets, resolve principalResolver) (candid.Value, error) {
	vec := &candid.Vec{Elem: principalType}
	if t == nil {
		return candid.None(vec), nil
	}
	values := make([]candid.Value, 0, len(t.Identifiers))
	for i, id := range t.Identifiers {
		v, err := resolve(fmt.Sprintf("lens_targets.identifiers[%d]", i), id, manifest.IDTypeAuto)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return candid.Some(candid.VecValue{Elem: principalType, Values: values}), nil
}

// setupFunc builds the setup arguments of a kind, nil when it has none.
type setupFunc func(resolve principalResolver) ([]candid.Value, error)

func (b *base) generateScript(network script.Network, setup setupFunc, schedule *manifest.Schedule) (string, error) {
	s := script.Script{Label: b.label(), Network: network}
	if setup != nil {
		values, err := setup(scriptPrincipals)
		if err != nil {
			return "", err
		}
		s.Setup = values
	}
	if schedule != nil {
		s.Timer = &script.Timer{Interval: schedule.Interval, Delay: schedule.Delay}
	}
	return script.Generate(s)
}

func (b *base) generateSetupArgs(network script.Network, ids IDTable, setup setupFunc) ([]byte, error) {
	if setup == nil {
		return nil, nil
	}
	values, err := setup(tablePrincipals(network, ids))
	if err != nil {
		return nil, err
	}
	return candid.Encode(values...)
}

// contractSetup is the setup record of contract datasources.
func contractSetup(ds manifest.Datasource, extra ...candid.FieldValue) []candid.Value {
	fields := []candid.FieldValue{
		{Name: "target", Value: candid.TextValue(ds.Location.ID)},
		{Name: "rpc_url", Value: candid.TextValue(ds.Location.Args.RPCURL)},
		{Name: "chain_id", Value: candid.Nat64Value(ds.Location.Args.NetworkID)},
	}
	return []candid.Value{candid.RecordValue{Fields: append(fields, extra...)}}
}

// contractArgs coerces the literal arguments of a contract call.
func contractArgs(f *gosrc.File, method *manifest.Method, sig *abisig.ContractMethodIdentifier) ([]string, error) {
	params := sig.Params
	if len(method.Args) != len(params) {
		return nil, &errdefs.ManifestError{
			Field:  "datasource.method.args",
			Reason: fmt.Sprintf("%s takes %d arguments, %d given", method.Identifier, len(params), len(method.Args)),
		}
	}
	out := make([]string, 0, len(params))
	for i, p := range params {
		expr, err := coerce(f, method.Args[i], abiTarget(p, sig.ParamTypes[i]))
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, method.Identifier, err)
		}
		out = append(out, expr)
	}
	return out, nil
}

// canisterArgs coerces the literal arguments of a canister call.
func canisterArgs(f *gosrc.File, method *manifest.Method, m *candid.CanisterMethodIdentifier) ([]string, error) {
	types := m.ArgTypes()
	if len(method.Args) != len(types) {
		return nil, &errdefs.ManifestError{
			Field:  "datasource.method.args",
			Reason: fmt.Sprintf("%s takes %d arguments, %d given", m.Identifier, len(types), len(method.Args)),
		}
	}
	out := make([]string, 0, len(types))
	for i, t := range types {
		target, err := candidTarget(m, t)
		if err != nil {
			return nil, err
		}
		expr, err := coerce(f, method.Args[i], target)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, m.Identifier, err)
		}
		out = append(out, expr)
	}
	return out, nil
}

func interfaceList(names ...string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func join(exprs []string) string {
	return strings.Join(exprs, ", ")
}
