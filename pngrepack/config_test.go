package pngrepack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "pngrepack.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, "root: assets\nthreshold: 500KB\nlimit: 3\napply: true\ndebug: true\n")
	c, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, Config{Root: "assets", Threshold: "500KB", Limit: 3, Apply: true, Debug: true}, c)

	opts, err := c.Options()
	require.NoError(t, err)
	require.Equal(t, Options{Root: "assets", Threshold: 500000, Limit: 3, Apply: true}, opts)
}

func TestReadConfigDefaults(t *testing.T) {
	c, err := ReadConfig(writeConfig(t, "limit: 2\n"))
	require.NoError(t, err)
	require.Equal(t, ".", c.Root)
	require.Equal(t, "1MB", c.Threshold)
	require.Equal(t, 2, c.Limit)
	require.False(t, c.Apply)

	opts, err := DefaultConfig().Options()
	require.NoError(t, err)
	require.Equal(t, uint64(1000000), opts.Threshold)
}

func TestReadConfigErrors(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = ReadConfig(writeConfig(t, "root: [unclosed\n"))
	require.Error(t, err)
}

func TestConfigOptionsErrors(t *testing.T) {
	c := DefaultConfig()
	c.Threshold = "lots"
	_, err := c.Options()
	require.Error(t, err)

	c = DefaultConfig()
	c.Limit = -1
	_, err = c.Options()
	require.Error(t, err)

	c = DefaultConfig()
	c.Threshold = "2 MiB"
	opts, err := c.Options()
	require.NoError(t, err)
	require.Equal(t, uint64(2<<20), opts.Threshold)
}
