package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elksvg/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render service",
		Long: `Serve POST /v1/render, GET /v1/health and GET /metrics.

Render defaults and the cache backend come from the profile; query
parameters (format, routing, style, scale, refresh) override them per
request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from profile, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	defaults, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	printInfo("Serving on %s (cache: %s)", StyleHighlight.Render(cfg.Server.Addr), cacheBackend(cfg.Cache.Backend, noCache))
	srv := server.New(runner, defaults, cfg.Server, c.Logger)
	return srv.ListenAndServe(ctx)
}

func cacheBackend(backend string, disabled bool) string {
	if disabled {
		return "disabled"
	}
	return backend
}
