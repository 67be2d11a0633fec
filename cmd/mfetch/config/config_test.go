package config

import (
	"bytes"
	"testing"

	"github.com/meza/manifest-fetcher/cmd/mfetch/common"
	"github.com/meza/manifest-fetcher/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MFETCH_TEST", "true")

	root := &cobra.Command{Use: "mfetch"}
	common.AddPersistentFlags(root)
	root.AddCommand(commandWithFs(fs))

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigInitWritesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	out, err := execute(t, fs, "config", "init", "--config", "custom.json")

	require.NoError(t, err)
	assert.Contains(t, out, "cmd.config.init.done")
	assert.NotContains(t, out, "cmd.config.init.backup")
	cfg, err := config.Load(fs, "custom.json")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRepositories, cfg.Repositories)
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "mfetch.json", []byte(`{"workers": 9}`), 0o644))

	_, err := execute(t, fs, "config", "init")

	var exists *config.ConfigFileExistsError
	require.ErrorAs(t, err, &exists)

	out, err := execute(t, fs, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "cmd.config.init.backup")
	cfg, err := config.Load(fs, "mfetch.json")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	previous, err := afero.ReadFile(fs, "mfetch.json.mfetch.bak")
	require.NoError(t, err)
	assert.Equal(t, `{"workers": 9}`, string(previous))
}
