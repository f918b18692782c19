package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/manifest"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var fixtures = []string{
	"event_indexer.yaml",
	"algorithm_indexer.yaml",
	"algorithm_lens.yaml",
	"snapshot_indexer_evm.yaml",
	"snapshot_indexer_icp.yaml",
	"snapshot_indexer_https.yaml",
	"snapshot_indexer_json_rpc.yaml",
	"relayer.yaml",
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject lays out a project holding the named manifest fixtures, each
// under components/<name>/manifest.yaml.
func newProject(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("version: v1\nlabel: demo\nmodule: example.com/demo\ncomponents:\n")
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join("..", "manifest", "testdata", name))
		require.NoError(t, err)
		rel := filepath.Join("components", strings.TrimSuffix(name, ".yaml"), "manifest.yaml")
		write(t, filepath.Join(dir, rel), string(data))
		b.WriteString("  - component: " + rel + "\n")
	}
	write(t, filepath.Join(dir, FileName), b.String())
	return dir
}

func amoyOracles() codegen.Option {
	r := oracle.NewRegistry()
	r.Set(oracle.Uint256, oracle.NetworkAmoy, common.HexToAddress("0x00000000000000000000000000000000000a0a0a"))
	return codegen.WithOracles(r)
}

func TestLoad(t *testing.T) {
	dir := newProject(t, "event_indexer.yaml")
	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Label)
	assert.Equal(t, "example.com/demo/artifacts", p.ImportPrefix())
	require.Len(t, p.Components, 1)

	components, err := p.Manifests()
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "erc20_transfers", components[0].Meta().Label)
	assert.Equal(t, "event_indexer", components[0].ID())

	write(t, filepath.Join(dir, FileName), "version: v1\ncomponents: []\n")
	_, err = Load(dir)
	var me *errdefs.ManifestError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "label", me.Field)
}

func TestDuplicateLabels(t *testing.T) {
	dir := newProject(t, "event_indexer.yaml")
	data, err := os.ReadFile(filepath.Join("..", "manifest", "testdata", "event_indexer.yaml"))
	require.NoError(t, err)
	write(t, filepath.Join(dir, "again.yaml"), string(data))
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("  - component: again.yaml\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p, err := Load(dir)
	require.NoError(t, err)
	_, err = p.Manifests()
	var ce *errdefs.ComponentError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "erc20_transfers", ce.Label)
}

func TestPackageNameCollision(t *testing.T) {
	dir := newProject(t, "snapshot_indexer_https.yaml")
	data, err := os.ReadFile(filepath.Join("..", "manifest", "testdata", "snapshot_indexer_https.yaml"))
	require.NoError(t, err)
	first := filepath.Join(dir, "components", "snapshot_indexer_https", "manifest.yaml")
	write(t, first, strings.Replace(string(data), "label: eth_price", "label: Price-Feed", 1))
	write(t, filepath.Join(dir, "other.yaml"), strings.Replace(string(data), "label: eth_price", "label: price_feed", 1))
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("  - component: other.yaml\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p, err := Load(dir)
	require.NoError(t, err)
	_, err = p.Manifests()
	var ce *errdefs.ComponentError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "price_feed", ce.Label)
	var me *errdefs.ManifestError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "metadata.label", me.Field)
	assert.Contains(t, me.Reason, "package price_feed")

	a, err := NewAssembler(dir)
	require.NoError(t, err)
	assert.Error(t, a.Run(context.Background(), script.NetworkLocal))
	assert.NoDirExists(t, filepath.Join(dir, ArtifactsDir))
}

func TestLoadIDs(t *testing.T) {
	dir := t.TempDir()
	ids, err := LoadIDs(filepath.Join(dir, IDsFile))
	require.NoError(t, err)
	assert.Empty(t, ids)

	write(t, filepath.Join(dir, IDsFile), "local:\n  total_supply: rrkah-fqaaa-aaaaa-aaaaq-cai\n")
	ids, err = LoadIDs(filepath.Join(dir, IDsFile))
	require.NoError(t, err)
	p, ok := ids.Lookup(script.NetworkLocal, "total_supply")
	assert.True(t, ok)
	assert.Equal(t, "rrkah-fqaaa-aaaaa-aaaaq-cai", p)
	_, ok = ids.Lookup(script.NetworkIC, "total_supply")
	assert.False(t, ok)

	write(t, filepath.Join(dir, IDsFile), "mainnet:\n  a: b\n")
	_, err = LoadIDs(filepath.Join(dir, IDsFile))
	assert.Error(t, err)
}

func TestInterfaceLoader(t *testing.T) {
	dir := t.TempDir()
	l, err := NewInterfaceLoader(dir, 4, nil)
	require.NoError(t, err)

	interfaces, err := l.Load([]string{"ERC20.json", "missing.did"})
	require.NoError(t, err)
	_, err = interfaces.ABI("ERC20.json")
	assert.NoError(t, err)
	_, ok := interfaces.File("missing.did")
	assert.False(t, ok)

	write(t, filepath.Join(dir, "token.did"), "service : { get : () -> (nat) }")
	interfaces, err = l.Load([]string{"token.did"})
	require.NoError(t, err)
	schema, err := interfaces.Schema("token.did")
	require.NoError(t, err)
	assert.Contains(t, schema, "get")

	write(t, filepath.Join(dir, "token.did"), "service : { put : () -> (nat) }")
	interfaces, err = l.Load([]string{"token.did"})
	require.NoError(t, err)
	schema, _ = interfaces.Schema("token.did")
	assert.Contains(t, schema, "get", "served from the cache")

	l.Invalidate("token.did")
	interfaces, err = l.Load([]string{"token.did"})
	require.NoError(t, err)
	schema, _ = interfaces.Schema("token.did")
	assert.Contains(t, schema, "put")

	write(t, filepath.Join(dir, "Broken.json"), "{")
	_, err = l.Load([]string{"Broken.json"})
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := newProject(t, fixtures...)
	a, err := NewAssembler(dir, WithParallelism(3), WithCodegenOptions(amoyOracles()))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), script.NetworkLocal))

	for _, label := range []string{"erc20_transfers", "erc20_balances", "total_balance", "total_supply", "icp_snapshot", "eth_price", "gas_price", "supply_relayer"} {
		assert.FileExists(t, filepath.Join(dir, ArtifactsDir, label, codegen.RuntimeFile))
		assert.FileExists(t, filepath.Join(dir, ScriptsDir, "local", label+".sh"))
	}
	assert.FileExists(t, filepath.Join(dir, ArtifactsDir, "erc20_transfers", "ERC20.json"))
	assert.FileExists(t, filepath.Join(dir, ArtifactsDir, "supply_relayer", "Uint256Oracle.json"))
	for _, kind := range manifest.Kinds {
		assert.FileExists(t, filepath.Join(dir, SchemasDir, manifest.SchemaFile(kind)))
	}

	runtime, err := os.ReadFile(filepath.Join(dir, ArtifactsDir, "erc20_balances", codegen.RuntimeFile))
	require.NoError(t, err)
	assert.Contains(t, string(runtime), "package erc20_balances")

	// User logic survives regeneration.
	logic := filepath.Join(dir, ArtifactsDir, "erc20_balances", codegen.LogicFile)
	write(t, logic, "package erc20_balances\n\n// edited\n")
	require.NoError(t, a.Run(context.Background(), script.NetworkLocal))
	data, err := os.ReadFile(logic)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// edited")
}

func TestRunFailureWritesNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	// No oracle is registered on the relayer network.
	dir := newProject(t, "event_indexer.yaml", "relayer.yaml")
	a, err := NewAssembler(dir)
	require.NoError(t, err)
	err = a.Run(context.Background(), script.NetworkLocal)
	var ce *errdefs.ComponentError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "supply_relayer", ce.Label)
	assert.NoDirExists(t, filepath.Join(dir, ArtifactsDir))
	assert.NoDirExists(t, filepath.Join(dir, ScriptsDir))
	assert.NoDirExists(t, filepath.Join(dir, SchemasDir))
}

func TestWriteSchemas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), SchemasDir)
	require.NoError(t, WriteSchemas(dir, manifest.KindRelayer, manifest.KindRelayer, manifest.KindAlgorithmLens))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	data, err := os.ReadFile(filepath.Join(dir, "relayer.json"))
	require.NoError(t, err)
	want, err := manifest.Schema(manifest.KindRelayer)
	require.NoError(t, err)
	assert.Equal(t, want, data)

	assert.Error(t, WriteSchemas(dir, manifest.Kind("nope")))
}

func TestSetupArgs(t *testing.T) {
	dir := newProject(t, "snapshot_indexer_icp.yaml")
	write(t, filepath.Join(dir, IDsFile), "ic:\n  total_supply: rrkah-fqaaa-aaaaa-aaaaq-cai\n")
	a, err := NewAssembler(dir)
	require.NoError(t, err)
	components, err := a.Project().Manifests()
	require.NoError(t, err)

	encoded, err := a.SetupArgs(components[0], script.NetworkIC)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(encoded), "DIDL"))

	_, err = a.SetupArgs(components[0], script.NetworkLocal)
	var ce *errdefs.ComponentError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "icp_snapshot", ce.Label)
}

func TestWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := newProject(t, "snapshot_indexer_https.yaml")
	a, err := NewAssembler(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, script.NetworkLocal, 20*time.Millisecond)
	}()

	runtime := filepath.Join(dir, ArtifactsDir, "eth_price", codegen.RuntimeFile)
	read := func() string {
		data, _ := os.ReadFile(runtime)
		return string(data)
	}
	assert.Eventually(t, func() bool {
		return strings.Contains(read(), "Interval")
	}, 5*time.Second, 10*time.Millisecond)

	path := filepath.Join(dir, "components", "snapshot_indexer_https", "manifest.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	write(t, path, strings.Replace(string(data), "interval: 60", "interval: 120", 1))

	assert.Eventually(t, func() bool {
		return strings.Contains(read(), "= 120")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, IDsFile), "local:\n  total_supply: rrkah-fqaaa-aaaaa-aaaaq-cai\n")
	a, err := OpenDir(dir)
	require.NoError(t, err)
	assert.Empty(t, a.Project().Components)
	_, ok := a.IDs().Lookup(script.NetworkLocal, "total_supply")
	assert.True(t, ok)

	_, err = NewAssembler(dir)
	assert.Error(t, err)
}
