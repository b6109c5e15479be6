package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas8/toolchain/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProjectConfig(), cfg)
}

func TestLoad_MalformedFileReturnsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[link\ninputs = "), 0o644))

	_, err := config.Load(path)
	require.Error(t, err, "malformed TOML should fail to load")

	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Path)
}

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlas.toml")
	contents := `
[link]
inputs = ["main.o", "math.o"]
output = "firmware.hex"
entry = "start"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.o", "math.o"}, cfg.Link.Inputs)
	assert.Equal(t, "start", cfg.Link.Entry)
}

func TestResolvedFormat_ExplicitWins(t *testing.T) {
	cfg := config.ProjectConfig{Link: config.LinkConfig{Format: "HEX", Output: "firmware.bin"}}
	assert.Equal(t, "hex", cfg.ResolvedFormat())
}

func TestResolvedFormat_InferredFromOutputExtension(t *testing.T) {
	cases := map[string]string{
		"firmware.hex": "hex",
		"firmware.HEX": "hex",
		"firmware.bin": "bin",
		"firmware":     "bin",
	}
	for output, want := range cases {
		cfg := config.ProjectConfig{Link: config.LinkConfig{Output: output}}
		assert.Equal(t, want, cfg.ResolvedFormat(), "output %q", output)
	}
}

func TestResolveProjectPath(t *testing.T) {
	got := config.ResolveProjectPath("/project/dir")
	assert.Equal(t, filepath.Join("/project/dir", config.DefaultProjectFile), got)
}
