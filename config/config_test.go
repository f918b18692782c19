package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/script"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, script.NetworkLocal, c.ScriptNetwork())
	assert.Equal(t, ".", c.Project)
	assert.GreaterOrEqual(t, c.Parallelism, 1)
	assert.False(t, c.Verbose)
}

func TestFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "componentgen.yaml"), `
network: ic
parallelism: 2
oracles:
  - type: uint64
    network_id: 80002
    address: "0x00000000000000000000000000000000000000b0"
`)
	writeFile(t, filepath.Join(dir, ".env"), "COMPONENTGEN_PARALLELISM=6\n")
	t.Cleanup(func() { os.Unsetenv("COMPONENTGEN_PARALLELISM") })
	t.Setenv("COMPONENTGEN_PROJECT", "work")

	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, script.NetworkIC, c.ScriptNetwork())
	assert.Equal(t, 6, c.Parallelism)
	assert.Equal(t, "work", c.Project)

	r, err := c.Registry()
	require.NoError(t, err)
	addr, ok := r.Address(oracle.Uint64, oracle.NetworkAmoy)
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xb0"), addr)
	_, ok = r.Address(oracle.Uint256, oracle.NetworkLocal)
	assert.True(t, ok, "built-in deployments stay registered")
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"network", "network: mainnet\n"},
		{"parallelism", "parallelism: 0\n"},
		{"oracle kind", "oracles:\n  - type: int8\n    address: \"0x00000000000000000000000000000000000000b0\"\n"},
		{"oracle address", "oracles:\n  - type: uint64\n    address: nope\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			path := filepath.Join(dir, "custom.yaml")
			writeFile(t, path, tt.content)
			_, err := Load(viper.New(), path)
			assert.Error(t, err)
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(viper.New(), "absent.yaml")
	assert.Error(t, err)
}
