package codegen

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jshufro/componentgen/script"
	"github.com/stretchr/testify/require"
)

const checkModule = "example.com/componentcheck"

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

// checkModuleFile derives the go.mod of a scratch module from ours, so the
// generated packages build against the same dependency versions.
func checkModuleFile(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.True(t, strings.HasPrefix(lines[0], "module "))
	lines[0] = "module " + checkModule
	return strings.Join(lines, "\n") +
		"\nrequire github.com/jshufro/componentgen v0.0.0-00010101000000-000000000000\n" +
		"\nreplace github.com/jshufro/componentgen => " + root + "\n"
}

// TestGeneratedCodeBuilds writes every component kind into a scratch module
// and runs the compiler and vet over it.
func TestGeneratedCodeBuilds(t *testing.T) {
	if testing.Short() {
		t.Skip("builds generated packages")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not available")
	}
	root, err := filepath.Abs("..")
	require.NoError(t, err)

	dir := t.TempDir()
	write := func(path string, data []byte) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	write(filepath.Join(dir, "go.mod"), []byte(checkModuleFile(t, root)))
	if sum, err := os.ReadFile(filepath.Join(root, "go.sum")); err == nil {
		write(filepath.Join(dir, "go.sum"), sum)
	}

	interfaces := BuiltinInterfaces()
	for _, name := range fixtures {
		out, err := Generate(loadFixture(t, name), interfaces, script.NetworkLocal,
			WithOracles(testOracles()), WithImportPrefix(checkModule+"/artifacts"))
		require.NoError(t, err, name)

		pkgDir := filepath.Join(dir, "artifacts", PackageName(out.Label))
		for file, src := range out.Files() {
			write(filepath.Join(pkgDir, file), []byte(src))
		}
		for _, file := range out.InterfaceFiles {
			data, ok := interfaces.File(file)
			require.True(t, ok, file)
			write(filepath.Join(pkgDir, file), data)
		}
	}

	for _, args := range [][]string{{"build", "./..."}, {"vet", "./..."}} {
		cmd := exec.Command(goBin, args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod", "GOWORK=off")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "go %s:\n%s", strings.Join(args, " "), out)
	}
}
