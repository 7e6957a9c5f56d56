package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// PaintCategory builds a categorical grid from a boolean mask: cells true
// in the mask receive the configured code, everything else stays no-data.
type PaintCategory struct{}

// Spec describes the kind.
func (PaintCategory) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "paint category",
		Tooltip: "Paint a category code where the mask is true",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketCategorical}},
		Params: []dataflow.ParamSpec{
			{Name: "code", Default: 1},
			{Name: "label", Default: ""},
		},
	}
}

// Evaluate paints the mask onto a fresh categorical grid with the mask's
// frame.
func (PaintCategory) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	mask, err := booleanInput(in, "in")
	if err != nil {
		return nil, err
	}
	code := params.Code("code", 1)

	labels := map[uint8]string{}
	if label := params.String("label", ""); label != "" {
		labels[code] = label
	}

	out, err := tilegrid.NewCategoricalTileGrid(
		mask.Zoom(), mask.X(), mask.Y(), mask.Width(), mask.Height(), labels)
	if err != nil {
		return nil, err
	}
	if err := out.ApplyCategory(mask, code); err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}
