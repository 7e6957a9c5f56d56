package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// GridStats logs summary statistics for whatever grid flows through it
// and passes the grid along unchanged. Drop one into a chain to watch a
// value range evolve between passes.
type GridStats struct{}

// Spec describes the kind.
func (GridStats) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "grid stats",
		Tooltip: "Log summary statistics, pass the grid through",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketGrid}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketGrid}},
	}
}

// Evaluate logs the stats and forwards the grid.
func (GridStats) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	g, ok := in.First("in")
	if !ok {
		return nil, ErrNoInput
	}

	st := g.Stats()
	fields := []any{
		"node", ec.NodeID(),
		"type", g.Type(),
		"zoom", g.Zoom(),
		"cells", g.Width() * g.Height(),
		"min", st.Min,
		"max", st.Max,
	}
	if ng, ok := g.(*tilegrid.NumericTileGrid); ok {
		fields = append(fields, "total", ng.Total())
	}
	ec.Logger().Info("grid stats", fields...)

	return dataflow.Outputs{"out": {g}}, nil
}
