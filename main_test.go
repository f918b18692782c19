package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(name string) string {
	return filepath.Join("manifest", "testdata", name)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderInfo(t *testing.T) {
	c, err := manifest.Load(fixture("event_indexer.yaml"))
	require.NoError(t, err)
	g, err := codegen.New(c)
	require.NoError(t, err)
	info := renderInfo(c, g)
	assert.Contains(t, info, "erc20_transfers")
	assert.Contains(t, info, "ERC20.json")
	assert.Contains(t, info, "event_indexer")
}

func TestScriptCommand(t *testing.T) {
	out, err := execute(t, "script", fixture("snapshot_indexer_https.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "init_in")
	assert.Contains(t, out, "set_task")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", fixture("event_indexer.yaml"), fixture("snapshot_indexer_icp.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "event_indexer.yaml: ok")

	_, err = execute(t, "validate", fixture("relayer.yaml"))
	assert.ErrorContains(t, err, "1 of 1 manifests are invalid")
}

func TestSetupArgsCommand(t *testing.T) {
	out, err := execute(t, "setup-args", fixture("snapshot_indexer_https.yaml"))
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = execute(t, "setup-args", fixture("snapshot_indexer_icp.yaml"))
	assert.Error(t, err, "no id table in the working directory")
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema", "relayer")
	require.NoError(t, err)
	assert.Contains(t, out, `"const": "relayer"`)

	out, err = execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "snapshot_indexer_json_rpc\n")

	dir := t.TempDir()
	_, err = execute(t, "schema", "--out", dir)
	require.NoError(t, err)
	for _, kind := range manifest.Kinds {
		assert.FileExists(t, filepath.Join(dir, manifest.SchemaFile(kind)))
	}
	require.NoError(t, schemaCmd.Flags().Set("out", ""))

	_, err = execute(t, "schema", "nope")
	assert.Error(t, err)
}
