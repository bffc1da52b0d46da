// Package completion implements shell completion generation and install.
package completion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
)

// Supported shells.
const (
	ShellBash       = "bash"
	ShellZsh        = "zsh"
	ShellFish       = "fish"
	ShellPowerShell = "powershell"
)

// location is where a shell looks for completion files, relative to a
// Homebrew prefix and to the home directory.
type location struct {
	brew []string
	home []string
}

var locations = map[string]location{
	ShellBash: {
		brew: []string{"etc", "bash_completion.d", "evently"},
		home: []string{".bash_completion.d", "evently"},
	},
	ShellZsh: {
		brew: []string{"share", "zsh", "site-functions", "_evently"},
		home: []string{".zsh", "completions", "_evently"},
	},
	ShellFish: {
		brew: []string{"share", "fish", "vendor_completions.d", "evently.fish"},
		home: []string{".config", "fish", "completions", "evently.fish"},
	},
}

// NewCommand creates the completion command.
func NewCommand() *cobra.Command {
	var install, uninstall bool
	cmd := &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate or install shell completions",
		Example: `  source <(evently completion bash)
  evently completion zsh --install`,
		Args:                  cobra.ExactArgs(1),
		ValidArgs:             []string{ShellBash, ShellZsh, ShellFish, ShellPowerShell},
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			switch {
			case install:
				path, err := Install(cmd.Root(), shell)
				if err != nil {
					return err
				}
				cmd.Printf("%s completions installed to %s\n", shell, path)
				cmd.Println("Start a new shell session to enable them.")
				return nil
			case uninstall:
				path, removed, err := Uninstall(shell)
				if err != nil {
					return err
				}
				if removed {
					cmd.Printf("Removed %s completions from %s\n", shell, path)
				} else {
					cmd.Printf("No %s completions found at %s\n", shell, path)
				}
				return nil
			}
			return Generate(cmd.Root(), shell, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&install, "install", false, "install into the shell's completion directory")
	cmd.Flags().BoolVar(&uninstall, "uninstall", false, "remove installed completions")
	cmd.MarkFlagsMutuallyExclusive("install", "uninstall")
	return cmd
}

// Generate writes the completion script for shell to w.
func Generate(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case ShellBash:
		return root.GenBashCompletionV2(w, true)
	case ShellZsh:
		return root.GenZshCompletion(w)
	case ShellFish:
		return root.GenFishCompletion(w, true)
	case ShellPowerShell:
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return errors.NewValidationError("shell", shell, "must be bash, zsh, fish or powershell")
}

// Path returns where completions for shell are installed. A Homebrew
// prefix wins over the home directory.
func Path(shell string) (string, error) {
	loc, ok := locations[shell]
	if !ok {
		return "", errors.NewValidationError("shell", shell, "install supports bash, zsh and fish")
	}

	if prefix := brewPrefix(); prefix != "" {
		return filepath.Join(append([]string{prefix}, loc.brew...)...), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapIO("resolve", "home directory", err)
	}
	return filepath.Join(append([]string{home}, loc.home...)...), nil
}

func brewPrefix() string {
	if p := os.Getenv("HOMEBREW_PREFIX"); p != "" {
		return p
	}
	for _, p := range []string{"/opt/homebrew", "/usr/local"} {
		if _, err := os.Stat(filepath.Join(p, "bin", "brew")); err == nil {
			return p
		}
	}
	return ""
}

// Install writes the completion script for shell to Path(shell).
func Install(root *cobra.Command, shell string) (string, error) {
	path, err := Path(shell)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", filepath.Dir(path), err)
	}

	f, err := os.Create(path) // #nosec G304 - path is built from fixed locations
	if err != nil {
		return "", errors.WrapIO("create", path, err)
	}
	if err := Generate(root, shell, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("generating %s completions: %w", shell, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.WrapIO("write", path, err)
	}
	return path, nil
}

// Uninstall removes the completion file for shell, reporting whether one
// was there.
func Uninstall(shell string) (string, bool, error) {
	path, err := Path(shell)
	if err != nil {
		return "", false, err
	}
	switch err := os.Remove(path); {
	case err == nil:
		return path, true, nil
	case os.IsNotExist(err):
		return path, false, nil
	default:
		return path, false, errors.WrapIO("remove", path, err)
	}
}
