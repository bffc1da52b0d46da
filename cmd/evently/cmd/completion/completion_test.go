package completion

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/pkg/errors"
)

func root() *cobra.Command {
	r := &cobra.Command{Use: "evently"}
	r.AddCommand(NewCommand())
	return r
}

func TestGenerate(t *testing.T) {
	for _, shell := range []string{ShellBash, ShellZsh, ShellFish, ShellPowerShell} {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Generate(root(), shell, &buf))
			assert.Contains(t, buf.String(), "evently")
		})
	}

	err := Generate(root(), "tcsh", &bytes.Buffer{})
	assert.True(t, errors.IsValidationError(err))
}

func TestInstallUninstall(t *testing.T) {
	prefix := t.TempDir()
	t.Setenv("HOMEBREW_PREFIX", prefix)

	path, err := Install(root(), ShellZsh)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(prefix, "share", "zsh", "site-functions", "_evently"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, removed, err := Uninstall(ShellZsh)
	require.NoError(t, err)
	assert.True(t, removed)

	_, removed, err = Uninstall(ShellZsh)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = Path(ShellPowerShell)
	assert.True(t, errors.IsValidationError(err))
}

func TestCommand(t *testing.T) {
	r := root()
	var out bytes.Buffer
	r.SetOut(&out)
	r.SetArgs([]string{"completion", "fish"})
	require.NoError(t, r.Execute())
	assert.Contains(t, out.String(), "complete -c evently")
}
