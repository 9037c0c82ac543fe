package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/elksvg/internal/config"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/pipeline"
	"github.com/matzehuels/elksvg/pkg/render"
)

// stdio names standard input or output in place of a file path.
const stdio = "-"

// renderOpts holds the command-line flags shared by render and watch.
// Zero values leave the profile's setting in place.
type renderOpts struct {
	output      string   // output file, or directory for several inputs
	format      string   // svg, pdf or png
	styles      []string // named stylesheet fragments
	cssFile     string   // stylesheet file, replaces styles
	defsFile    string   // definitions file
	edgeRouting string   // global routing token (POLYLINE, SPLINES, ...)
	scale       float64  // PNG scale factor
	noCache     bool
	refresh     bool
	jobs        int // concurrent renders
}

func (o *renderOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (\"-\" for stdout), or directory when rendering several files")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format: svg (default), pdf, png")
	cmd.Flags().StringArrayVar(&o.styles, "style", nil, "stylesheet fragment: "+strings.Join(render.StyleNames(), ", ")+" (repeatable)")
	cmd.Flags().StringVar(&o.cssFile, "css", "", "stylesheet file, replaces --style")
	cmd.Flags().StringVar(&o.defsFile, "defs", "", "SVG definitions file")
	cmd.Flags().StringVar(&o.edgeRouting, "edge-routing", "", "edge routing for the whole graph: POLYLINE, ORTHOGONAL, SPLINES")
	cmd.Flags().Float64Var(&o.scale, "scale", 0, "PNG scale factor (default 2)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "re-render even if a cached artifact exists")
}

// apply layers the flags over the profile's options.
func (o *renderOpts) apply(base pipeline.Options) (pipeline.Options, error) {
	opts := base
	if o.format != "" {
		opts.Format = o.format
	}
	if len(o.styles) > 0 {
		opts.Styles = o.styles
		opts.CSS = ""
	}
	if o.cssFile != "" {
		css, err := readFlagFile("--css", o.cssFile)
		if err != nil {
			return opts, err
		}
		opts.CSS = css
	}
	if o.defsFile != "" {
		defs, err := readFlagFile("--defs", o.defsFile)
		if err != nil {
			return opts, err
		}
		opts.Defs = defs
	}
	if o.edgeRouting != "" {
		if _, ok := render.ParseRoutingMode(o.edgeRouting); !ok {
			return opts, errors.New(errors.ErrCodeInvalidConfig,
				"unknown edge routing %q (use POLYLINE, ORTHOGONAL or SPLINES)", o.edgeRouting)
		}
		opts.EdgeRouting = o.edgeRouting
	}
	if o.scale > 0 {
		opts.Scale = o.scale
	}
	opts.Refresh = o.refresh
	return opts, opts.ValidateAndSetDefaults()
}

func readFlagFile(flag, path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrCodeFileNotFound, "%s: file not found: %s", flag, path)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "%s: read %s", flag, path)
	}
	return string(data), nil
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [files...]",
		Short: "Render laid-out ELK/KLay documents",
		Long: `Render one or more laid-out ELK/KLay documents (JSON or YAML).

Each input is written next to itself as <input>.<format> unless --output is
given. With several inputs, --output names a directory. Use "-" to read from
stdin or write to stdout.`,
		Example: `  elksvg render graph.json
  elksvg render graph.json -f png --scale 3 -o graph.png
  elksvg render --style simple --style arrows --edge-routing SPLINES a.json b.yaml
  cat graph.json | elksvg render - -o - > graph.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "number of documents rendered concurrently")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, inputs []string, ro *renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := c.resolveOptions(cfg, ro)
	if err != nil {
		return err
	}

	outputs := make([]string, len(inputs))
	for i, input := range inputs {
		if outputs[i], err = outputPath(input, ro.output, opts.Format, len(inputs) > 1); err != nil {
			return err
		}
	}
	if len(inputs) > 1 && ro.output != "" && ro.output != stdio {
		if err := os.MkdirAll(ro.output, 0755); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
		}
	}

	runner, err := c.newRunner(ctx, cfg, ro.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)

	if len(inputs) == 1 {
		quiet := outputs[0] == stdio
		var spinner *Spinner
		if opts.Format != render.FormatSVG && !quiet {
			spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Converting to %s...", strings.ToUpper(opts.Format)))
			spinner.Start()
		}
		res, err := renderFile(ctx, runner, inputs[0], outputs[0], opts)
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return err
		}
		if !quiet {
			reportRender(inputs[0], outputs[0], res)
		}
		prog.done("Rendered " + inputs[0])
		return nil
	}

	jobs := ro.jobs
	if jobs < 1 {
		jobs = 1
	}
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering 0/%d documents...", len(inputs)))
	spinner.Start()

	var (
		mu       sync.Mutex
		finished int
	)
	results := make([]*pipeline.Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, input := range inputs {
		g.Go(func() error {
			res, err := renderFile(gctx, runner, input, outputs[i], opts)
			if err != nil {
				return err
			}
			results[i] = res
			mu.Lock()
			finished++
			spinner.Update("Rendering %d/%d documents...", finished, len(inputs))
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	spinner.Stop()
	if err != nil {
		return err
	}

	for i, input := range inputs {
		reportRender(input, outputs[i], results[i])
	}
	prog.done(fmt.Sprintf("Rendered %d documents", len(inputs)))
	return nil
}

// resolveOptions merges the profile and the flags into pipeline options.
func (c *CLI) resolveOptions(cfg *config.Config, ro *renderOpts) (pipeline.Options, error) {
	base, err := cfg.PipelineOptions()
	if err != nil {
		return pipeline.Options{}, err
	}
	base.Logger = c.Logger
	return ro.apply(base)
}

// renderFile renders one input and writes the artifact to output.
func renderFile(ctx context.Context, runner *pipeline.Runner, input, output string, opts pipeline.Options) (*pipeline.Result, error) {
	data, err := readInput(input)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", input)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", input)
	}

	opts.InputFormat = elk.FormatFromPath(input)
	res, err := runner.Render(ctx, data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	if err := writeOutput(output, res.Artifact); err != nil {
		return nil, err
	}
	return res, nil
}

// outputPath decides where the artifact for input goes. Without an explicit
// output it is written next to the input with the format's extension; with
// several inputs an explicit output is a directory.
func outputPath(input, output, format string, multi bool) (string, error) {
	var path string
	switch {
	case input == stdio && multi:
		return "", errors.New(errors.ErrCodeInvalidInput, "stdin cannot be combined with other inputs")
	case output == stdio:
		if multi {
			return "", errors.New(errors.ErrCodeInvalidPath, "cannot write several documents to stdout")
		}
		return stdio, nil
	case output != "" && multi:
		path = filepath.Join(output, trimExt(filepath.Base(input))+"."+format)
	case output != "":
		path = output
	case input == stdio:
		return stdio, nil
	default:
		path = trimExt(input) + "." + format
	}
	if err := errors.ValidateOutputPath(path); err != nil {
		return "", err
	}
	return path, nil
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func writeOutput(path string, data []byte) error {
	if path == stdio {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

func reportRender(input, output string, res *pipeline.Result) {
	printSuccess("Rendered %s", input)
	printFile(output)
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheHit)
}
