package commands

import (
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tmplc/internal/cli/config"
	"github.com/leapstack-labs/tmplc/internal/compile"
	intconfig "github.com/leapstack-labs/tmplc/internal/config"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := config.GetConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
	}, nil
}

// ResolveConfig reads and resolves the project's template configuration
// with the CLI's config document and whitespace settings.
func (c *CommandContext) ResolveConfig() (*intconfig.Config, intconfig.Document, error) {
	doc, err := intconfig.ReadConfigFile(c.Cfg.ProjectRoot, c.Cfg.ConfigFile)
	if err != nil {
		return nil, doc, err
	}
	cfg, err := intconfig.New(c.Cfg.ProjectRoot, doc, c.Cfg.Whitespace)
	if err != nil {
		return nil, doc, err
	}
	return cfg, doc, nil
}

// Compiler returns a compiler for the project. Print diagnostics go to w.
func (c *CommandContext) Compiler(w io.Writer) *compile.Compiler {
	return &compile.Compiler{
		Root:        c.Cfg.ProjectRoot,
		ConfigPath:  c.Cfg.ConfigFile,
		Whitespace:  c.Cfg.Whitespace,
		Diagnostics: &lockedWriter{w: w},
		Logger:      c.Logger,
	}
}

// lockedWriter serializes writes from concurrent builds.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
