package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/render"
	"github.com/matzehuels/elksvg/pkg/render/outline"
)

type inspectOpts struct {
	dot         bool
	outline     string
	detailed    bool
	edgeRouting string
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show containment, edge ownership and routing of a document",
		Long: `Print one row per node: its parent, depth, the routing its edges use and
the edges it owns. Owned edges are drawn in the node's coordinate frame.

--dot prints a Graphviz outline of the structure instead; --outline renders
that outline to a file (svg, pdf or png by extension).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dot, "dot", false, "print the structure as Graphviz DOT")
	cmd.Flags().StringVar(&opts.outline, "outline", "", "render the structure outline to this file")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include geometry and owners in the outline")
	cmd.Flags().StringVar(&opts.edgeRouting, "edge-routing", "", "global edge routing to resolve against")
	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, opts *inspectOpts) error {
	doc, err := readDocument(input)
	if err != nil {
		return err
	}

	if opts.dot {
		dot, err := outline.ToDOT(doc, outline.Options{Detailed: opts.detailed})
		if err != nil {
			return err
		}
		fmt.Print(dot)
		return nil
	}

	if opts.outline != "" {
		return writeOutline(ctx, doc, opts)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	base, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	if opts.edgeRouting != "" {
		base.EdgeRouting = opts.edgeRouting
	}
	rcfg, err := base.RenderConfig()
	if err != nil {
		return err
	}

	rows, err := inspectRows(doc, rcfg)
	if err != nil {
		return err
	}
	nodes, edges := doc.Stats()
	printInfo("%s", input)
	fmt.Println(inspectTable(rows))
	printDetail("%d nodes · %d edges", nodes, edges)
	return nil
}

func readDocument(input string) (*elk.Document, error) {
	if input != stdio {
		return elk.ReadDocumentFile(input)
	}
	return elk.ReadDocument(os.Stdin, elk.InputJSON)
}

func writeOutline(ctx context.Context, doc *elk.Document, opts *inspectOpts) error {
	logger := loggerFromContext(ctx)
	format := strings.TrimPrefix(filepath.Ext(opts.outline), ".")
	if err := errors.ValidateFormat(format); err != nil {
		return err
	}
	if err := errors.ValidateOutputPath(opts.outline); err != nil {
		return err
	}

	prog := newProgress(logger)
	data, err := outline.Render(ctx, doc, outline.Options{Detailed: opts.detailed}, format, 2)
	if err != nil {
		return err
	}
	if err := writeOutput(opts.outline, data); err != nil {
		return err
	}
	printSuccess("Rendered outline")
	printFile(opts.outline)
	prog.done("Rendered outline " + opts.outline)
	return nil
}

// inspectRow describes one node of the document.
type inspectRow struct {
	ID      string
	Parent  string
	Depth   int
	Ports   int
	Routing string // empty for leaves, which own no edges
	Edges   []string
}

// inspectRows lists every node in document order with the edges it owns.
func inspectRows(doc *elk.Document, cfg render.Config) ([]inspectRow, error) {
	root := doc.Root()
	idx, err := render.IndexContainment(root)
	if err != nil {
		return nil, err
	}
	own, err := render.ResolveOwnership(root, idx)
	if err != nil {
		return nil, err
	}
	routing := render.NewRoutingResolver(render.CollectRoutingOverrides(root), cfg)

	rows := make([]inspectRow, 0, idx.Len())
	for _, id := range idx.IDs() {
		n, _ := idx.Node(id)
		parent, _ := idx.Parent(id)
		row := inspectRow{
			ID:     id,
			Parent: parent,
			Depth:  idx.Depth(id),
			Ports:  len(n.Ports),
		}
		edges, err := own.Edges(id)
		if err != nil {
			return nil, err
		}
		for i, e := range edges {
			name := e.ID
			if name == "" {
				name = "#" + strconv.Itoa(i)
			}
			row.Edges = append(row.Edges, name)
		}
		if n.IsContainer() || id == idx.Root() {
			row.Routing = routing.Mode(id).String()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func inspectTable(rows []inspectRow) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		Headers("NODE", "PARENT", "DEPTH", "PORTS", "ROUTING", "OWNED EDGES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = "(root)"
		}
		t.Row(
			strings.Repeat("  ", r.Depth)+id,
			r.Parent,
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.Ports),
			r.Routing,
			strings.Join(r.Edges, ", "),
		)
	}
	return t.Render()
}
