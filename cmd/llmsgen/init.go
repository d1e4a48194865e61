package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/llmsgen/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/llmsgen.yaml
var configTemplate embed.FS

// configTemplatePath is the template path inside configTemplate.
const configTemplatePath = "templates/llmsgen.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new llmsgen configuration file",
		Long: `Initialize creates a new .llmsgen.yaml configuration file in the current directory.

The generated file includes:
- Default crawl settings applied to every site
- Commented examples for site-specific configurations
- Documentation for all available options

Examples:
  # Create .llmsgen.yaml in current directory
  llmsgen init

  # Create config file at a specific path
  llmsgen init -o myconfig.yaml

  # Force overwrite existing file
  llmsgen init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold cookies and authorization headers.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(w, "\nEdit this file to configure site-specific settings such as:")
	fmt.Fprintln(w, "  - Site names used as document titles")
	fmt.Fprintln(w, "  - Page budgets and crawl delays per site")
	fmt.Fprintln(w, "  - Authentication cookies and headers")

	return nil
}
