package commands

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/tmplc/internal/input"
)

// debounce is how long the watcher waits for further changes before
// rebuilding.
const debounce = 100 * time.Millisecond

// watch rebuilds affected declarations on file changes until interrupted.
func (b *builder) watch(ctx context.Context, ws *workspace, dirs []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	b.watchDirs(watcher, ws, dirs)
	_, _ = fmt.Fprintln(b.out, b.styles.muted.Render("watching for changes, press Ctrl+C to stop"))

	pending := make(map[string]bool)
	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending[event.Name] = true
			timer = time.After(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.cc.Logger.Warn("watcher error", "error", err)
		case <-timer:
			timer = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if err := b.rebuild(ctx, ws, changed); err != nil {
				return err
			}
			b.watchDirs(watcher, ws, dirs)
		}
	}
}

// relevant reports whether event can affect a build. Generated and test
// files are ignored, which also keeps the watcher from reacting to its own
// writes.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if strings.HasSuffix(event.Name, ".go") {
		return input.IsSourceFile(event.Name)
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}

// rebuild rescans changed Go files and rebuilds every declaration affected
// by the changes.
func (b *builder) rebuild(ctx context.Context, ws *workspace, changed []string) error {
	var templates []string
	rebuild := make(map[string]*input.TemplateArgs)

	for _, path := range changed {
		if !input.IsSourceFile(path) {
			templates = append(templates, path)
			continue
		}
		for _, key := range ws.forgetFile(path) {
			delete(rebuild, key)
		}
		found, err := input.ScanFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			for _, err := range input.SplitErrors(err) {
				b.reportError(err)
			}
		}
		for _, args := range found {
			rebuild[args.Key()] = args
		}
	}
	for _, args := range ws.affected(templates) {
		rebuild[args.Key()] = args
	}
	if len(rebuild) == 0 {
		return nil
	}

	decls := make([]*input.TemplateArgs, 0, len(rebuild))
	for _, key := range slices.Sorted(maps.Keys(rebuild)) {
		decls = append(decls, rebuild[key])
	}
	b.cc.Logger.Info("rebuilding", "changed", len(changed), "declarations", len(decls))
	_, err := b.build(ctx, ws, decls)
	return err
}

// watchDirs adds the scanned package directories, the project root, the
// configured search directories and every directory holding a template
// that was read. Adding a directory twice is harmless.
func (b *builder) watchDirs(watcher *fsnotify.Watcher, ws *workspace, dirs []string) {
	watch := slices.Clone(dirs)
	watch = append(watch, b.cc.Cfg.ProjectRoot)
	if cfg, _, err := b.cc.ResolveConfig(); err == nil {
		watch = append(watch, cfg.Dirs...)
	}
	watch = append(watch, ws.templateDirs()...)

	slices.Sort(watch)
	for _, dir := range slices.Compact(watch) {
		if err := watcher.Add(dir); err != nil {
			b.cc.Logger.Debug("cannot watch directory", "dir", dir, "error", err)
		}
	}
}
