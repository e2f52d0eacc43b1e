package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMockEndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	out := t.TempDir()

	rootCmd.SetArgs([]string{
		"scan", "mock", "--mock", "--no-tui",
		"--rpm", "100000", "--max-nodes", "60", "--log-level", "error",
		"-o", out,
	})
	require.NoError(t, rootCmd.Execute())

	summaries, err := filepath.Glob(filepath.Join(out, "*", "*", "summary.json"))
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	runDir := filepath.Dir(summaries[0])
	for _, name := range []string{"scan.json", "gephi/nodes.csv", "gephi/edges.csv", "probable_friends.csv"} {
		_, err := os.Stat(filepath.Join(runDir, filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, "76561198000000000", filepath.Base(filepath.Dir(runDir)))

	rootCmd.SetArgs([]string{"query", "-o", out, "--where", "is_seed", "--json"})
	require.NoError(t, rootCmd.Execute())
}

func TestProfileSaveAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)

	rootCmd.SetArgs([]string{"profile", "save", "tight", "--depth", "1", "--max-nodes", "150"})
	require.NoError(t, rootCmd.Execute())

	dir, err := os.UserConfigDir()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "vapora", "profiles", "tight.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_nodes: 150")
	assert.Contains(t, string(data), "depth: 1")
}
