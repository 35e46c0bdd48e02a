package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/pkg/deps"
	"github.com/matzehuels/uimigrate/pkg/graph"
	pkgio "github.com/matzehuels/uimigrate/pkg/io"
	"github.com/matzehuels/uimigrate/pkg/render"
)

// Graph output formats.
const (
	formatDOT  = "dot"
	formatJSON = "json"
	formatSVG  = "svg"
)

// depsOpts holds flags shared by the deps subcommands.
type depsOpts struct {
	base     string
	maxDepth int
	jsonOut  bool
}

// depsCommand creates the deps command.
func (c *CLI) depsCommand() *cobra.Command {
	opts := &depsOpts{}
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect the dependency graph of a unit",
	}
	cmd.PersistentFlags().StringVar(&opts.base, "base", "", "directory references are resolved against (default: the file's directory)")
	cmd.PersistentFlags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum traversal depth (default from config)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON")

	cmd.AddCommand(c.depsStatsCommand(opts))
	cmd.AddCommand(c.depsFlattenCommand(opts))
	cmd.AddCommand(c.depsCyclesCommand(opts))
	cmd.AddCommand(c.depsGraphCommand(opts))
	return cmd
}

// resolver builds a resolver for unit from config and flags.
func (c *CLI) resolver(opts *depsOpts, unit string) (*deps.Resolver, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.maxDepth > 0 {
		cfg.Deps.MaxDepth = opts.maxDepth
	}
	base := opts.base
	if base == "" {
		base = filepath.Dir(unit)
	}
	return c.newResolver(cfg, base)
}

func (c *CLI) depsStatsCommand(opts *depsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize dependency counts, depth and cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.resolver(opts, args[0])
			if err != nil {
				return err
			}
			prog := newProgress(loggerFromContext(cmd.Context()))
			stats, err := r.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d units", stats.TotalDependencyCount+1))
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			printKeyValue("Unit", stats.Unit)
			printKeyValue("Direct", fmt.Sprint(stats.DirectDependencyCount))
			printKeyValue("Total", fmt.Sprint(stats.TotalDependencyCount))
			printKeyValue("Max depth", fmt.Sprint(stats.MaxDepth))
			printKeyValue("Cycles", fmt.Sprint(len(stats.Cycles)))
			return nil
		},
	}
}

func (c *CLI) depsFlattenCommand(opts *depsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten <file>",
		Short: "List every unit the file depends on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.resolver(opts, args[0])
			if err != nil {
				return err
			}
			all, err := r.Flatten(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), all)
			}
			if len(all) == 0 {
				printInfo("No dependencies")
				return nil
			}
			for _, p := range all {
				printFile(p)
			}
			return nil
		},
	}
}

func (c *CLI) depsCyclesCommand(opts *depsOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles <file>",
		Short: "Report circular dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.resolver(opts, args[0])
			if err != nil {
				return err
			}
			cycles, err := r.Cycles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				if cycles == nil {
					cycles = []deps.Cycle{}
				}
				return printJSON(cmd.OutOrStdout(), cycles)
			}
			if len(cycles) == 0 {
				printSuccess("No circular dependencies")
				return nil
			}
			printWarning("%d circular dependencies", len(cycles))
			for _, cy := range cycles {
				printDetail("%s %s %s", filepath.Base(cy.From), iconArrow, filepath.Base(cy.To))
			}
			return nil
		},
	}
}

func (c *CLI) depsGraphCommand(opts *depsOpts) *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "graph <file|graph.json>",
		Short: "Export the dependency graph as DOT, JSON or SVG",
		Long: `Export the dependency graph of a unit as DOT, JSON or SVG.

A .json argument is read as a previously exported graph and re-encoded
without resolving anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGraph(cmd, opts, args[0])
			if err != nil {
				return err
			}
			data, err := encodeGraph(cmd, g, format, detailed)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Graph written (%d nodes, %d edges)", g.NodeCount(), g.EdgeCount())
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, json or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with depth, kind and references")
	return cmd
}

// loadGraph resolves the graph of a unit, or imports an exported graph.
func (c *CLI) loadGraph(cmd *cobra.Command, opts *depsOpts, arg string) (*graph.Graph, error) {
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return pkgio.ImportJSON(arg)
	}
	r, err := c.resolver(opts, arg)
	if err != nil {
		return nil, err
	}
	return r.Build(cmd.Context(), arg)
}

func encodeGraph(cmd *cobra.Command, g *graph.Graph, format string, detailed bool) ([]byte, error) {
	dot := func() string { return render.ToDOT(g, render.Options{Detailed: detailed}) }
	switch format {
	case formatDOT:
		return []byte(dot()), nil
	case formatJSON:
		return pkgio.Marshal(g)
	case formatSVG:
		spin := startSpinner(cmd.Context(), "Rendering SVG...")
		svg, err := render.RenderSVG(cmd.Context(), dot())
		spin.Stop()
		return svg, err
	}
	return nil, fmt.Errorf("unknown format %q (want dot, json or svg)", format)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
