package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tmplc/internal/compile"
	"github.com/leapstack-labs/tmplc/internal/input"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var (
		watch bool
		jobs  int
	)

	cmd := &cobra.Command{
		Use:   "build [dirs...]",
		Short: "Generate code for templated declarations",
		Long: `Scan Go package directories for types annotated with //tmplc:template and
write the generated rendering code next to each declaring file, as
<type>_tmplc.go.

Declarations are compiled concurrently. A failed declaration still gets a
placeholder file so the package keeps compiling, its error is reported and
the command exits non-zero.`,
		Example: `  # Build the package in the current directory
  tmplc build

  # Build several packages
  tmplc build ./views ./mail

  # Rebuild affected declarations whenever a template or Go file changes
  tmplc build --watch ./views`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, watch, jobs)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild affected declarations when templates or Go files change")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Maximum number of concurrent builds (default: GOMAXPROCS)")

	return cmd
}

func runBuild(cmd *cobra.Command, dirs []string, watch bool, jobs int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for i, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid directory %s: %w", dir, err)
		}
		dirs[i] = abs
	}

	b := &builder{
		compiler: cc.Compiler(cmd.ErrOrStderr()),
		cc:       cc,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		jobs:     jobs,
		styles:   newStyles(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
	ws := newWorkspace()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var decls []*input.TemplateArgs
	scanFailed := 0
	for _, dir := range dirs {
		found, err := input.ScanDir(dir)
		decls = append(decls, found...)
		for _, err := range input.SplitErrors(err) {
			b.reportError(err)
			scanFailed++
		}
	}

	buildFailed, err := b.build(ctx, ws, decls)
	if err != nil {
		return err
	}

	if watch {
		return b.watch(ctx, ws, dirs)
	}
	if n := scanFailed + buildFailed; n > 0 {
		return fmt.Errorf("%d of %d declarations failed", n, len(decls)+scanFailed)
	}
	return nil
}

// builder compiles declarations and writes their generated files.
type builder struct {
	compiler *compile.Compiler
	cc       *CommandContext
	out      io.Writer
	errOut   io.Writer
	jobs     int
	styles   styles
}

// build derives every declaration concurrently, writes the generated code
// and records the outcomes in ws. It returns the number of declarations
// that failed to compile; the error is reserved for write failures.
func (b *builder) build(ctx context.Context, ws *workspace, decls []*input.TemplateArgs) (int, error) {
	results := make([]compile.Result, len(decls))

	g, ctx := errgroup.WithContext(ctx)
	limit := b.jobs
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, args := range decls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.compiler.Derive(args)
			return writeGenerated(args, results[i].Code)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	failed := 0
	for i, args := range decls {
		ws.record(args, results[i])
		if err := results[i].Err; err != nil {
			failed++
			b.reportError(err)
			continue
		}
		b.cc.Logger.Debug("generated", "type", args.Key(), "output", outputPath(args), "templates", len(results[i].Templates))
	}
	ws.reindex()

	summary := b.styles.ok
	if failed > 0 {
		summary = b.styles.failed
	}
	_, _ = fmt.Fprintln(b.out, summary.Render(fmt.Sprintf("built %d declarations, %d failed", len(decls)-failed, failed)))
	return failed, nil
}

func (b *builder) reportError(err error) {
	_, _ = fmt.Fprintf(b.errOut, "%s %v\n\n", b.styles.errLabel.Render("error:"), err)
}

func outputPath(args *input.TemplateArgs) string {
	return filepath.Join(filepath.Dir(args.File), args.OutputName())
}

// writeGenerated atomically replaces the generated file of args. Unchanged
// content is not rewritten, and empty code leaves the file alone.
func writeGenerated(args *input.TemplateArgs, code string) error {
	if code == "" {
		return nil
	}
	path := outputPath(args)
	existing, err := os.ReadFile(path) //nolint:gosec // G304: path is derived from the scanned declaration
	if err == nil && bytes.Equal(existing, []byte(code)) {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
