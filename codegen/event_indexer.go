package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
)

// Fields every indexed event record carries after the event inputs.
var logFields = []candid.RecordField{
	{Name: "block_number", Type: candid.Nat64},
	{Name: "tx_hash", Type: candid.Text},
	{Name: "log_index", Type: candid.Nat64},
}

// eventFieldType is the schema type an event input is published as, and
// the lib function decoding it from a log.
type eventFieldType struct {
	schema  string
	decoder string
}

var eventFieldTypes = map[abisig.TargetType]eventFieldType{
	abisig.Address: {candid.Text, "ToAddressText"},
	abisig.Bytes:   {"vec nat8", "ToBytes"},
	abisig.Bool:    {candid.Bool, "ToBool"},
	abisig.String:  {candid.Text, "ToString"},
	abisig.Uint16:  {candid.Nat16, "ToUint16"},
	abisig.Uint32:  {candid.Nat32, "ToUint32"},
	abisig.Uint64:  {candid.Nat64, "ToUint64"},
	abisig.Uint128: {candid.Nat, "ToBig"},
	abisig.Uint256: {candid.Nat, "ToBig"},
	abisig.Int16:   {candid.Int16, "ToInt16"},
	abisig.Int32:   {candid.Int32, "ToInt32"},
	abisig.Int64:   {candid.Int64, "ToInt64"},
	abisig.Int128:  {candid.Int, "ToBig"},
}

type eventIndexer struct {
	base
	m *manifest.EventIndexer
}

// eventName is the identifier of the event, without any parameter list.
func (g *eventIndexer) eventName() string {
	name, _, _ := strings.Cut(g.m.Datasource.Method.Identifier, "(")
	return strings.TrimSpace(name)
}

func (g *eventIndexer) Validate() error {
	if err := g.validate(); err != nil {
		return err
	}
	return validateContractLocation(g.m.Datasource)
}

func (g *eventIndexer) GenerateRuntimeModule(interfaces *Interfaces) (*GeneratedCodes, error) {
	ds := g.m.Datasource
	contractAbi, err := interfaces.ABI(ds.Method.Interface)
	if err != nil {
		return nil, err
	}
	name := g.eventName()
	event, ok := contractAbi.Events[name]
	if !ok {
		return nil, &errdefs.SignatureParseError{Signature: ds.Method.Identifier, Fragment: name, Reason: "event is not declared in " + ds.Method.Interface}
	}
	typeName := candid.GoName(name)
	if err := checkTypeName("datasource.method.identifier", typeName); err != nil {
		return nil, err
	}

	fields := make([]candid.RecordField, 0, len(event.Inputs)+len(logFields))
	decoders := make([]string, 0, len(event.Inputs))
	reserved := map[string]bool{}
	for _, f := range logFields {
		reserved[f.Name] = true
	}
	for i, input := range event.Inputs {
		if input.Name == "" {
			return nil, &errdefs.UnsupportedTypeError{Type: input.Type.String(), Context: fmt.Sprintf("unnamed input %d of event %s", i, name)}
		}
		if reserved[input.Name] {
			return nil, &errdefs.ManifestError{Field: "datasource.method.identifier", Reason: fmt.Sprintf("event input '%s' collides with a log field", input.Name)}
		}
		t, err := abisig.MapABIType(input.Type.String())
		if err != nil {
			return nil, err
		}
		if input.Indexed && (t == abisig.String || t == abisig.Bytes) {
			return nil, &errdefs.UnsupportedTypeError{Type: input.Type.String(), Context: fmt.Sprintf("indexed input %s of event %s, only its hash is logged", input.Name, name)}
		}
		ft := eventFieldTypes[t]
		fields = append(fields, candid.RecordField{Name: input.Name, Type: ft.schema})
		decoders = append(decoders, ft.decoder)
	}
	fields = append(fields, logFields...)

	s, err := g.sources()
	if err != nil {
		return nil, err
	}
	record, err := candid.CompileRecord(s.types, typeName, fields, "", g.opts.resolver)
	if err != nil {
		return nil, err
	}
	s.typed = true

	f := s.rt
	ctx := f.Ident(gosrc.ContextImportPath, "Context")
	errorf := f.Ident(gosrc.FmtImportPath, "Errorf")
	zapIdent := func(n string) string { return f.Ident(gosrc.ZapImportPath, n) }

	emitEmbeddedABI(f, ds.Method.Interface, "interfaceJSON", "contractInterface")
	f.P("// EventName is the indexed event.")
	f.P("const EventName = ", strconv.Quote(name))
	f.P()
	f.P("// ChunkSize is the maximum number of blocks per log query.")
	f.P("const ChunkSize uint64 = ", g.m.ChunkSize)
	f.P()
	emitSchedule(f, g.m.Schedule)
	from := g.m.FromBlock
	emitContractConfig(f, ds, &from)

	emitComponent(f, componentSpec{
		label: g.label(),
		fields: []string{
			fmt.Sprintf("events *%s[%s]", f.Lib("Store"), record.Name),
			"next   uint64",
		},
		init:     []string{fmt.Sprintf("events: %s[%s](),", f.Lib("NewStore"), record.Name)},
		config:   true,
		validate: contractValidation(f),
		timer:    true,
	})

	f.P("// Tick indexes the events emitted since the previous tick.")
	f.P("func (c *Component) Tick(ctx ", ctx, ") error {")
	emitConfigPrologue(f)
	emitBackend(f)
	f.P("contractAbi, err := contractInterface()")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("reader, err := ", f.Lib("NewEventReader"), "(cfg.Target, contractAbi, EventName, backend)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("latest, err := reader.Latest(ctx)")
	f.P("if err != nil {")
	f.P(`return `, errorf, `("error getting latest block: %w", err)`)
	f.P("}")
	f.P()
	f.P("c.lock.RLock()")
	f.P("from := c.next")
	f.P("c.lock.RUnlock()")
	f.P("if from == 0 {")
	f.P("from = cfg.FromBlock")
	f.P("if from == 0 {")
	f.P("from = latest")
	f.P("}")
	f.P("}")
	f.P("for _, blocks := range ", f.Lib("Ranges"), "(from, latest, ChunkSize) {")
	f.P("logs, err := reader.Read(ctx, blocks[0], blocks[1])")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("for _, l := range logs {")
	f.P("event, err := decodeEvent(l)")
	f.P("if err != nil {")
	f.P("return err")
	f.P("}")
	f.P("c.events.Append(event)")
	f.P("}")
	f.P("c.lock.Lock()")
	f.P("c.next = blocks[1] + 1")
	f.P("c.lock.Unlock()")
	f.P(`c.logger.Debug("indexed blocks", `, zapIdent("Uint64"), `("from", blocks[0]), `, zapIdent("Uint64"), `("to", blocks[1]), `, zapIdent("Int"), `("events", len(logs)))`)
	f.P("}")
	f.P("return nil")
	f.P("}")
	f.P()

	f.P("func decodeEvent(l ", f.Lib("DecodedLog"), ") (", record.Name, ", error) {")
	f.P("var out ", record.Name)
	f.P("var err error")
	for i, input := range event.Inputs {
		field := record.Fields[i]
		f.P("if out.", field.GoName, ", err = ", f.Lib(decoders[i]), "(l.Fields[", strconv.Quote(input.Name), "]); err != nil {")
		f.P(`return out, `, errorf, `("error decoding `, input.Name, ` of %s: %w", EventName, err)`)
		f.P("}")
	}
	n := len(event.Inputs)
	f.P("out.", record.Fields[n].GoName, " = l.BlockNumber")
	f.P("out.", record.Fields[n+1].GoName, " = l.TxHash.Hex()")
	f.P("out.", record.Fields[n+2].GoName, " = uint64(l.LogIndex)")
	f.P("return out, nil")
	f.P("}")
	f.P()

	f.P("// GetLogs returns up to limit indexed events starting at index from.")
	f.P("func (c *Component) GetLogs(from, limit uint64) []", record.Name, " {")
	f.P("return c.events.Range(from, limit)")
	f.P("}")
	f.P()
	f.P("// Register exposes get_logs as id.")
	f.P("func (c *Component) Register(r ", f.Lib("Registrar"), ", id ", f.Lib("Principal"), ") {")
	f.P(`r.Register(id, "get_logs", func(ctx `, ctx, `, args []interface{}) (interface{}, error) {`)
	f.P(`from, limit, err := `, f.Lib("PageArgs"), `("get_logs", args)`)
	f.P("if err != nil {")
	f.P("return nil, err")
	f.P("}")
	f.P("return c.GetLogs(from, limit), nil")
	f.P("})")
	f.P("}")

	return s.finish()
}

func (g *eventIndexer) GenerateLogicTemplate() (*GeneratedCodes, error) {
	return nil, nil
}

func (g *eventIndexer) setup(resolve principalResolver) ([]candid.Value, error) {
	return contractSetup(g.m.Datasource, candid.FieldValue{Name: "from_block", Value: candid.Nat64Value(g.m.FromBlock)}), nil
}

func (g *eventIndexer) GenerateScript(network script.Network) (string, error) {
	return g.generateScript(network, g.setup, &g.m.Schedule)
}

func (g *eventIndexer) RequiredInterfaceFile() (string, bool) {
	return g.m.Datasource.Method.Interface, true
}

func (g *eventIndexer) DestinationKind() (oracle.Kind, bool) {
	return "", false
}

func (g *eventIndexer) InterfaceFiles() []string {
	return interfaceList(g.m.Datasource.Method.Interface)
}

func (g *eventIndexer) GenerateSetupArgs(network script.Network, ids IDTable) ([]byte, error) {
	return g.generateSetupArgs(network, ids, g.setup)
}
