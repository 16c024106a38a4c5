package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	intconfig "github.com/leapstack-labs/tmplc/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tmplc project",
		Long: `Initialize a new tmplc project with a configuration document and a
template directory.

This creates:
  - tmplc.toml configuration file
  - templates/ directory with a base layout

Use --example to also create a page extending the layout and a Go package
declaring a type rendered with it.`,
		Example: `  # Initialize in current directory
  tmplc init

  # Initialize with a working example
  tmplc init --example

  # Initialize in a new directory
  tmplc init my-site --example

  # Force overwrite existing files
  tmplc init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			name := "minimal"
			if example {
				name = "example"
			}
			return runInit(cmd.OutOrStdout(), dir, name, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example page and Go declaration")

	return cmd
}

func runInit(w io.Writer, dir, scaffold string, force bool) error {
	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	if err := copyScaffold(scaffold, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files
	files, _ := listScaffoldFiles(scaffold)
	for _, f := range files {
		_, _ = fmt.Fprintf(w, "  created %s\n", f)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "tmplc project initialized!")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Next steps:")
	_, _ = fmt.Fprintln(w, "  1. Write templates in templates/")
	_, _ = fmt.Fprintln(w, "  2. Annotate Go types with //tmplc:template path=\"page.html\"")
	_, _ = fmt.Fprintln(w, "  3. Run 'tmplc build ./yourpackage' to generate the rendering code")
	_, _ = fmt.Fprintln(w, "  4. Run 'tmplc config' to see the resolved configuration")

	return nil
}
