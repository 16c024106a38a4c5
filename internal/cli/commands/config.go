package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tmplc/internal/cli/config"
	intconfig "github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved template configuration",
		Long: `Resolve the project's configuration document over the built-in defaults
and print the result: search directories, delimiter syntaxes, escaper rules
and whitespace policy. Escaper rules are listed in lookup order; the first
rule containing an extension wins.`,
		Example: `  # Show the configuration as tables
  tmplc config

  # Machine-readable output
  tmplc config -o json
  tmplc config -o yaml

  # Resolve an alternative document
  tmplc config --config tmplc.dev.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, doc, err := cc.ResolveConfig()
	if err != nil {
		return err
	}
	view := newConfigView(doc, cfg)

	w := cmd.OutOrStdout()
	switch cc.Cfg.OutputFormat {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		renderConfigTables(w, view)
		return nil
	}
}

type configView struct {
	Root          string        `json:"root" yaml:"root"`
	Document      string        `json:"document,omitempty" yaml:"document,omitempty"`
	Dirs          []string      `json:"dirs" yaml:"dirs"`
	DefaultSyntax string        `json:"default_syntax" yaml:"default_syntax"`
	Whitespace    string        `json:"whitespace" yaml:"whitespace"`
	Syntaxes      []syntaxView  `json:"syntaxes" yaml:"syntaxes"`
	Escapers      []escaperView `json:"escapers" yaml:"escapers"`
}

type syntaxView struct {
	Name         string `json:"name" yaml:"name"`
	BlockStart   string `json:"block_start" yaml:"block_start"`
	BlockEnd     string `json:"block_end" yaml:"block_end"`
	ExprStart    string `json:"expr_start" yaml:"expr_start"`
	ExprEnd      string `json:"expr_end" yaml:"expr_end"`
	CommentStart string `json:"comment_start" yaml:"comment_start"`
	CommentEnd   string `json:"comment_end" yaml:"comment_end"`
}

type escaperView struct {
	Escaper    string   `json:"escaper" yaml:"escaper"`
	Extensions []string `json:"extensions" yaml:"extensions"`
}

func newConfigView(doc intconfig.Document, cfg *intconfig.Config) configView {
	view := configView{
		Root:          cfg.Root,
		Document:      doc.Path,
		Dirs:          cfg.Dirs,
		DefaultSyntax: cfg.DefaultSyntax,
		Whitespace:    cfg.Whitespace.String(),
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.Syntaxes)) {
		s := cfg.Syntaxes[name]
		view.Syntaxes = append(view.Syntaxes, syntaxView{
			Name:         name,
			BlockStart:   s.BlockStart,
			BlockEnd:     s.BlockEnd,
			ExprStart:    s.ExprStart,
			ExprEnd:      s.ExprEnd,
			CommentStart: s.CommentStart,
			CommentEnd:   s.CommentEnd,
		})
	}
	for _, r := range cfg.Escapers {
		view.Escapers = append(view.Escapers, escaperView{Escaper: r.Escaper, Extensions: r.Extensions})
	}
	return view
}

func renderConfigTables(w io.Writer, view configView) {
	document := "(none, defaults apply)"
	if view.Document != "" {
		document = diag.DisplayPath(view.Document)
	}

	general := table.NewWriter()
	general.SetOutputMirror(w)
	general.SetStyle(table.StyleLight)
	general.AppendHeader(table.Row{"Setting", "Value"})
	general.AppendRow(table.Row{"root", view.Root})
	general.AppendRow(table.Row{"document", document})
	general.AppendRow(table.Row{"dirs", strings.Join(view.Dirs, "\n")})
	general.AppendRow(table.Row{"default_syntax", view.DefaultSyntax})
	general.AppendRow(table.Row{"whitespace", view.Whitespace})
	general.Render()

	syntaxes := table.NewWriter()
	syntaxes.SetOutputMirror(w)
	syntaxes.SetStyle(table.StyleLight)
	syntaxes.SetTitle("Syntaxes")
	syntaxes.AppendHeader(table.Row{"Name", "Block", "Expression", "Comment"})
	for _, s := range view.Syntaxes {
		name := s.Name
		if name == view.DefaultSyntax {
			name += " (default)"
		}
		syntaxes.AppendRow(table.Row{
			name,
			s.BlockStart + " " + s.BlockEnd,
			s.ExprStart + " " + s.ExprEnd,
			s.CommentStart + " " + s.CommentEnd,
		})
	}
	syntaxes.Render()

	escapers := table.NewWriter()
	escapers.SetOutputMirror(w)
	escapers.SetStyle(table.StyleLight)
	escapers.SetTitle("Escapers")
	escapers.AppendHeader(table.Row{"#", "Escaper", "Extensions"})
	for i, e := range view.Escapers {
		exts := make([]string, len(e.Extensions))
		for j, ext := range e.Extensions {
			exts[j] = fmt.Sprintf("%q", ext)
		}
		escapers.AppendRow(table.Row{i + 1, e.Escaper, strings.Join(exts, ", ")})
	}
	escapers.Render()
}
