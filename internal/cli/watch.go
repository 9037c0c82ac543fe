package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/elksvg/pkg/errors"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-render a document whenever it changes",
		Long: `Render a laid-out document, then render it again every time the file is
written. Rendering errors are reported and watching continues, so a layout
tool can rewrite the file until it is valid again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], &opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, ro *renderOpts) error {
	logger := loggerFromContext(ctx)
	if input == stdio {
		return errors.New(errors.ErrCodeInvalidInput, "cannot watch stdin")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := c.resolveOptions(cfg, ro)
	if err != nil {
		return err
	}
	output, err := outputPath(input, ro.output, opts.Format, false)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, ro.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	renderOnce := func() {
		prog := newProgress(logger)
		res, err := renderFile(ctx, runner, input, output, opts)
		if err != nil {
			printError("%s", errors.UserMessage(err))
			logger.Debug("render failed", "error", err)
			return
		}
		reportRender(input, output, res)
		prog.done("Rendered " + input)
	}

	w, err := newFileWatcher(input, watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	renderOnce()
	printInfo("Watching %s (Ctrl+C to stop)", input)
	w.run(ctx, renderOnce, func(err error) {
		logger.Warn("watch error", "error", err)
	})
	return ctx.Err()
}

// fileWatcher reports changes to a single file. It watches the parent
// directory so that editors which save by renaming a temp file over the
// original are still seen.
type fileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

func newFileWatcher(path string, debounce time.Duration) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", path)
	}
	return &fileWatcher{path: abs, debounce: debounce, watcher: watcher}, nil
}

// run calls onChange once per burst of changes to the file until ctx is
// done or the watcher is closed. onChange runs on the caller's goroutine.
func (w *fileWatcher) run(ctx context.Context, onChange func(), onError func(error)) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			onError(err)
		case <-timer.C:
			onChange()
		case <-ctx.Done():
			return
		}
	}
}

func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops watching.
func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
