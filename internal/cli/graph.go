package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/export"
	"github.com/rastermill/rastermill/pkg/kinds"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// graphCommand creates the graph export command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output     string
		format     string
		showParams bool
	)

	cmd := &cobra.Command{
		Use:   "graph <project>",
		Short: "Export a project graph as DOT or SVG",
		Long: `Graph renders the project's dataflow structure: nodes labeled by name
and kind, edges labeled by input socket where a kind has several. Nodes
carrying an error annotation are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.exportGraph(cmd.Context(), args[0], output, format, showParams)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <project>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().BoolVar(&showParams, "params", false, "include node parameters in labels")

	return cmd
}

func (c *CLI) exportGraph(ctx context.Context, ref, output, format string, showParams bool) error {
	p, err := c.loadProject(ctx, ref)
	if err != nil {
		return err
	}

	// Export never evaluates, so sinks get a no-op save.
	reg := dataflow.NewRegistry()
	kinds.Register(reg, func(context.Context, int, tilegrid.Grid) error { return nil })

	g, err := p.Decode(reg)
	if err != nil {
		return err
	}

	dot := export.ToDOT(g, export.Options{ShowParams: showParams})

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = export.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (want dot or svg)", format)
	}

	if output == "" {
		output = outputName(ref, p.Name, format)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Exported %s", StyleHighlight.Render(p.Name))
	printFile(output)
	return nil
}

// outputName derives the default output file name from the project
// reference, falling back to the project name for ID references.
func outputName(ref, name, format string) string {
	base := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	if base == "" || base == "." {
		base = name
	}
	return base + "." + format
}
