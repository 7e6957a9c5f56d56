// Package export renders dataflow graphs for inspection outside the
// editor: Graphviz DOT source, and SVG through in-process rendering.
package export

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rastermill/rastermill/pkg/dataflow"
)

// Options configures DOT generation.
type Options struct {
	// ShowParams includes each node's parameters in its label.
	ShowParams bool
}

// ToDOT converts a dataflow graph to Graphviz DOT source. Nodes are
// labeled with their display name and kind; annotated nodes are drawn
// in red with the annotation as the tooltip. Edges into kinds with more
// than one input socket carry the socket name, so a mask's two inputs
// stay distinguishable.
func ToDOT(g *dataflow.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph rastermill {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(nodeAttrs(g, n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if label := edgeLabel(g, e); label != "" {
			fmt.Fprintf(&buf, "  %d -> %d [label=%q, fontsize=10];\n", e.From, e.To, label)
		} else {
			fmt.Fprintf(&buf, "  %d -> %d;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *dataflow.Node, opts Options) string {
	label := n.Name
	if n.Name != n.Kind {
		label += "\n" + n.Kind
	}
	if !opts.ShowParams {
		return label
	}
	for _, k := range slices.Sorted(maps.Keys(n.Params)) {
		label += fmt.Sprintf("\n%s: %v", k, n.Params[k])
	}
	return label
}

func nodeAttrs(g *dataflow.Graph, n *dataflow.Node, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, opts))}
	if msg, ok := n.Annotation(); ok {
		return append(attrs, "color=red3", "fillcolor=mistyrose", fmt.Sprintf("tooltip=%q", msg))
	}
	if k, ok := g.Registry().Lookup(n.Kind); ok {
		if tip := k.Spec().Tooltip; tip != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=%q", tip))
		}
	}
	return attrs
}

// edgeLabel names the target socket when the target kind declares more
// than one input.
func edgeLabel(g *dataflow.Graph, e dataflow.Edge) string {
	to, ok := g.Node(e.To)
	if !ok {
		return e.Input
	}
	k, ok := g.Registry().Lookup(to.Kind)
	if !ok || len(k.Spec().Inputs) > 1 {
		return e.Input
	}
	return ""
}
