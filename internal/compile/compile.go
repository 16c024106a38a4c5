// Package compile runs the compilation pipeline for one templated
// declaration: configuration, root template, dependency discovery, parse
// contexts, inheritance, diagnostics and code generation. Every failure
// leaves the pipeline as a *diag.Error.
//
// Derive adds the fallback: after a failed build it generates a skeleton
// from placeholder arguments so the declared type still gets its methods,
// and the primary error is the only one reported.
package compile

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/tmplc/internal/config"
	"github.com/leapstack-labs/tmplc/internal/diag"
	"github.com/leapstack-labs/tmplc/internal/generator"
	"github.com/leapstack-labs/tmplc/internal/heritage"
	"github.com/leapstack-labs/tmplc/internal/input"
	"github.com/leapstack-labs/tmplc/internal/template"
)

// Parser finds and parses every template reachable from a root template.
type Parser interface {
	Discover(in *input.TemplateInput) (*input.Templates, error)
}

// HeritageBuilder builds per-file parse contexts and the inheritance graph.
type HeritageBuilder interface {
	Contexts(cfg *config.Config, templates map[string]*template.Template) (map[string]*heritage.Context, error)
	Heritage(root *heritage.Context, contexts map[string]*heritage.Context) *heritage.Heritage
}

// Generator emits the code for a resolved declaration.
type Generator interface {
	Generate(in *input.TemplateInput, contexts map[string]*heritage.Context, h *heritage.Heritage) (string, error)
}

// Compiler compiles templated declarations of one project. A Compiler holds
// no state between calls and may be used from several goroutines.
type Compiler struct {
	// Root is the project root; config documents and the default template
	// directory are resolved against it.
	Root string
	// ConfigPath is the config document used when a declaration names none.
	ConfigPath string
	// Whitespace is the whitespace policy used when a declaration sets none.
	// It takes precedence over the config document.
	Whitespace string
	// Diagnostics receives the ast and code dumps requested by print.
	// Nil discards them.
	Diagnostics io.Writer
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger

	// Collaborators; nil selects the default implementation.
	Parser    Parser
	Heritage  HeritageBuilder
	Generator Generator
}

// Result is the outcome of Derive. Code is always usable: it holds the
// skeleton when the build failed, or is empty when even that failed.
type Result struct {
	Code string
	Err  error
	// Templates lists the template files the build read, every template
	// after the templates it references. It is empty when discovery failed.
	Templates []string
}

// Derive builds args and falls back to a skeleton on failure. Failures of
// the fallback are logged and otherwise ignored.
func (c *Compiler) Derive(args *input.TemplateArgs) Result {
	code, templates, err := c.Build(args)
	if err == nil {
		return Result{Code: code, Templates: templates}
	}
	return Result{Code: c.skeleton(args), Err: err, Templates: templates}
}

func (c *Compiler) skeleton(args *input.TemplateArgs) (code string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Debug("skeleton generation panicked", "type", args.TypeName, "panic", r)
			code = ""
		}
	}()

	code, err := c.BuildSkeleton(args)
	if err != nil {
		c.logger().Debug("skeleton generation failed", "type", args.TypeName, "error", err)
		return ""
	}
	return code
}

// Build runs the full pipeline for args and returns the generated code and
// the templates it read. Errors without a location of their own are located
// at the declaration's directive.
func (c *Compiler) Build(args *input.TemplateArgs) (string, []string, error) {
	log := c.logger().With("type", args.Key())
	log.Debug("building declaration")

	fail := func(err error) error {
		e := diag.From(err).At(args.FileInfo())
		log.Debug("build failed", "kind", e.Kind(), "error", e.Message())
		return e
	}

	if args.Err != nil {
		return "", nil, fail(args.Err)
	}

	configPath := c.ConfigPath
	if args.Config != "" {
		configPath = args.Config
	}
	doc, err := config.ReadConfigFile(c.Root, configPath)
	if err != nil {
		return "", nil, fail(err)
	}

	whitespace := c.Whitespace
	if args.Whitespace != "" {
		whitespace = args.Whitespace
	}
	cfg, err := config.New(c.Root, doc, whitespace)
	if err != nil {
		return "", nil, fail(err)
	}
	log.Debug("configuration resolved", "document", doc.Path, "dirs", cfg.Dirs, "whitespace", cfg.Whitespace)

	in, err := input.New(args, cfg)
	if err != nil {
		return "", nil, fail(err)
	}

	found, err := c.parser().Discover(in)
	if err != nil {
		return "", nil, fail(err)
	}
	paths := found.Paths()
	log.Debug("templates discovered", "root", in.Path, "count", len(paths))

	contexts, err := c.heritage().Contexts(cfg, found.ByPath)
	if err != nil {
		return "", paths, fail(err)
	}
	root, ok := contexts[in.Path]
	if !ok {
		return "", paths, fail(diag.New(&diag.DiscoveryError{
			Msg: fmt.Sprintf("no parse context for %s", diag.DisplayPath(in.Path)),
		}))
	}

	var h *heritage.Heritage
	if root.HasInheritance() {
		h = c.heritage().Heritage(root, contexts)
	}
	if in.Block != "" && (h == nil || !h.Has(in.Block)) {
		return "", paths, fail(diag.New(&diag.UnresolvedBlockError{Name: in.Block}))
	}

	if in.Print.Prints(input.PrintAst) {
		if err := c.dumpAst(args, paths, found); err != nil {
			log.Warn("failed to write ast", "error", err)
		}
	}

	code, err := c.generator().Generate(in, contexts, h)
	if err != nil {
		return "", paths, fail(err)
	}

	if in.Print.Prints(input.PrintCode) {
		if _, err := fmt.Fprintf(c.diagnostics(), "// code for %s\n%s", args.Key(), code); err != nil {
			log.Warn("failed to write code", "error", err)
		}
	}

	log.Debug("declaration built", "templates", len(paths))
	return code, paths, nil
}

// BuildSkeleton generates placeholder code for the declared type: the
// default configuration, an empty template and no heritage.
func (c *Compiler) BuildSkeleton(args *input.TemplateArgs) (string, error) {
	fallback := args.Fallback()
	cfg, err := config.New(c.Root, config.Document{}, "")
	if err != nil {
		return "", err
	}
	in, err := input.New(fallback, cfg)
	if err != nil {
		return "", err
	}
	contexts := map[string]*heritage.Context{in.Path: heritage.Empty(in.Path)}
	return c.generator().Generate(in, contexts, nil)
}

// dumpAst writes the outline of every template in one Write, so dumps of
// concurrent builds sharing Diagnostics do not interleave.
func (c *Compiler) dumpAst(args *input.TemplateArgs, paths []string, found *input.Templates) error {
	var buf bytes.Buffer
	for _, path := range paths {
		fmt.Fprintf(&buf, "// ast of %s for %s\n", diag.DisplayPath(path), args.Key())
		if err := template.Dump(&buf, found.ByPath[path].Nodes); err != nil {
			return err
		}
	}
	_, err := c.diagnostics().Write(buf.Bytes())
	return err
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Compiler) diagnostics() io.Writer {
	if c.Diagnostics == nil {
		return io.Discard
	}
	return c.Diagnostics
}

func (c *Compiler) parser() Parser {
	if c.Parser == nil {
		return input.Discoverer{}
	}
	return c.Parser
}

func (c *Compiler) heritage() HeritageBuilder {
	if c.Heritage == nil {
		return heritage.Builder{}
	}
	return c.Heritage
}

func (c *Compiler) generator() Generator {
	if c.Generator == nil {
		return generator.Generator{}
	}
	return c.Generator
}
