package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// ConstantArea produces a uniform boolean grid over a configured tile
// extent. Chains start from one or more of these.
type ConstantArea struct{}

// Spec describes the kind.
func (ConstantArea) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "constant area",
		Tooltip: "Uniform boolean region over a tile extent",
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
		Params: []dataflow.ParamSpec{
			{Name: "zoom", Default: 10},
			{Name: "x", Default: 0},
			{Name: "y", Default: 0},
			{Name: "width", Default: 16},
			{Name: "height", Default: 16},
			{Name: "value", Default: true},
		},
	}
}

// Evaluate builds the grid and fills it with the configured value.
func (ConstantArea) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	g, err := tilegrid.NewBooleanTileGrid(
		params.Int("zoom", 10),
		params.Int("x", 0),
		params.Int("y", 0),
		params.Int("width", 16),
		params.Int("height", 16),
	)
	if err != nil {
		return nil, err
	}
	if params.Bool("value", true) {
		err := eachCell(g, func(cx, cy int) error {
			return g.Set(cx, cy, true)
		})
		if err != nil {
			return nil, err
		}
	}
	return dataflow.Outputs{"out": {g}}, nil
}
