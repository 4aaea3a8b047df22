package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// createInstallCompletionCommand creates the install-completion subcommand
func createInstallCompletionCommand() *cobra.Command {
	installCompletionCmd := &cobra.Command{
		Use:   "install-completion",
		Short: "Install shell completion script",
		Long: `Install shell completion script for Bash, Zsh, Fish, or PowerShell.
Automatically detects your shell and installs the appropriate completion script.
Completion covers subcommands, flags, and archive/binary file suggestions.`,
		RunE: executeInstallCompletion,
	}

	// Add flags
	installCompletionCmd.Flags().String("shell", "", "Specify shell type (bash, zsh, fish, powershell)")
	installCompletionCmd.Flags().Bool("force", false, "Force overwrite existing completion files")

	return installCompletionCmd
}

// executeInstallCompletion handles installation of shell completion scripts
func executeInstallCompletion(cmd *cobra.Command, args []string) error {
	shellType, err := cmd.Flags().GetString("shell")
	if err != nil {
		return err
	}
	userForce, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if shellType == "" {
		shellType, err = detectShell()
		if err != nil {
			return err
		}
	}

	script, err := generateCompletion(cmd.Root(), shellType)
	if err != nil {
		return err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %v", err)
	}
	targetPath, err := completionTarget(shellType, homeDir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(targetPath); err == nil && !userForce {
		return fmt.Errorf("completion file already exists at %s. Use --force to overwrite", targetPath)
	}
	if err := os.WriteFile(targetPath, script, 0644); err != nil {
		return fmt.Errorf("could not write completion file: %v", err)
	}

	fmt.Printf("Shell completion installed for %s at %s\n", shellType, targetPath)
	fmt.Printf("Restart your shell or source your profile to enable completion.\n")

	return nil
}

// detectShell infers the shell type from the environment.
func detectShell() (string, error) {
	if shellEnv := os.Getenv("SHELL"); shellEnv != "" {
		for _, shell := range []string{"bash", "zsh", "fish"} {
			if strings.Contains(shellEnv, shell) {
				return shell, nil
			}
		}
		return "", fmt.Errorf("unsupported shell: %s. Please specify shell with --shell flag", shellEnv)
	}
	// On Windows, $SHELL is usually absent
	if os.Getenv("PSModulePath") != "" {
		return "powershell", nil
	}
	return "", fmt.Errorf("could not detect shell. Please specify with --shell flag")
}

// generateCompletion renders the completion script for the given shell.
func generateCompletion(root *cobra.Command, shellType string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch shellType {
	case "bash":
		err = root.GenBashCompletion(&buf)
	case "zsh":
		err = root.GenZshCompletion(&buf)
	case "fish":
		err = root.GenFishCompletion(&buf, true)
	case "powershell":
		err = root.GenPowerShellCompletion(&buf)
	default:
		return nil, fmt.Errorf("unsupported shell type: %s", shellType)
	}
	if err != nil {
		return nil, fmt.Errorf("error generating %s completion: %w", shellType, err)
	}
	return buf.Bytes(), nil
}

// completionTarget picks the install path for the shell's completion script,
// creating the containing directory when it does not exist.
func completionTarget(shellType, homeDir string) (string, error) {
	var dir, file string
	switch shellType {
	case "bash":
		// Prefer the system bash-completion drop-in directory when present.
		dir = "/etc/bash_completion.d"
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			dir = filepath.Join(homeDir, ".bash_completion.d")
		}
		file = "firmware-packager.bash"
	case "zsh":
		dir = filepath.Join(homeDir, ".zsh/completion")
		file = "_firmware-packager"
	case "fish":
		dir = filepath.Join(homeDir, ".config/fish/completions")
		file = "firmware-packager.fish"
	case "powershell":
		dir = filepath.Join(homeDir, "Documents/WindowsPowerShell")
		file = "firmware-packager-completion.ps1"
	default:
		return "", fmt.Errorf("unsupported shell type: %s", shellType)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("could not create directory %s: %v", dir, err)
		}
	}
	return filepath.Join(dir, file), nil
}
