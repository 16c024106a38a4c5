package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tmplc/internal/input"
)

// NewLocateCommand creates the locate command.
func NewLocateCommand() *cobra.Command {
	var (
		from string
		deps bool
	)

	cmd := &cobra.Command{
		Use:   "locate <name>",
		Short: "Show which file a template name resolves to",
		Long: `Resolve a template name the way includes and declarations do. With --from,
a file named <name> next to the referencing template wins; otherwise the
configured search directories are tried in order. With --deps, the
templates it extends, includes or imports follow, one per line.`,
		Example: `  # Resolve through the search directories
  tmplc locate layout.html

  # Resolve as an include inside templates/pages/home.html
  tmplc locate nav.html --from templates/pages/home.html

  # List everything a page needs
  tmplc locate pages/home.html --deps`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd, args[0], from, deps)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Template file the name is referenced from")
	cmd.Flags().BoolVar(&deps, "deps", false, "Also list the templates it depends on")

	return cmd
}

func runLocate(cmd *cobra.Command, name, from string, deps bool) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, _, err := cc.ResolveConfig()
	if err != nil {
		return err
	}

	if from != "" {
		if from, err = filepath.Abs(from); err != nil {
			return fmt.Errorf("invalid --from path: %w", err)
		}
	}
	path, err := cfg.FindTemplate(name, from)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, path)
	if !deps {
		return nil
	}

	in, err := input.New(&input.TemplateArgs{Path: path}, cfg)
	if err != nil {
		return err
	}
	found, err := input.Discoverer{}.Discover(in)
	if err != nil {
		return err
	}
	for _, dep := range found.Dependencies() {
		_, _ = fmt.Fprintln(out, dep)
	}
	return nil
}
