package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
)

// Threshold turns a numeric grid into a boolean one: cells strictly above
// the cutoff become true. Non-finite cells never pass.
type Threshold struct{}

// Spec describes the kind.
func (Threshold) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "threshold",
		Tooltip: "True where the value exceeds the cutoff",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
		Params:  []dataflow.ParamSpec{{Name: "cutoff", Default: 0.0}},
	}
}

// Evaluate applies the cutoff cell-wise.
func (Threshold) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := numericInput(in, "in")
	if err != nil {
		return nil, err
	}
	cutoff := float32(params.Float("cutoff", 0))
	out, err := newBooleanLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		if src.Get(cx, cy) > cutoff {
			return out.Set(cx, cy, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Scale multiplies every cell by a factor.
type Scale struct{}

// Spec describes the kind.
func (Scale) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "scale",
		Tooltip: "Multiply every cell by a factor",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
		Params:  []dataflow.ParamSpec{{Name: "factor", Default: 1.0}},
	}
}

// Evaluate multiplies cell-wise.
func (Scale) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := numericInput(in, "in")
	if err != nil {
		return nil, err
	}
	factor := float32(params.Float("factor", 1))
	out, err := newNumericLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		return out.Set(cx, cy, src.Get(cx, cy)*factor)
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Offset adds a constant to every cell.
type Offset struct{}

// Spec describes the kind.
func (Offset) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "offset",
		Tooltip: "Add a constant to every cell",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
		Params:  []dataflow.ParamSpec{{Name: "amount", Default: 0.0}},
	}
}

// Evaluate adds cell-wise.
func (Offset) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := numericInput(in, "in")
	if err != nil {
		return nil, err
	}
	amount := float32(params.Float("amount", 0))
	out, err := newNumericLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		return out.Set(cx, cy, src.Get(cx, cy)+amount)
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Sum adds all inputs cell-wise. The result adopts the first input's
// frame; coarser inputs contribute their covering cell's value.
type Sum struct{}

// Spec describes the kind.
func (Sum) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "sum",
		Tooltip: "Cell-wise sum of all inputs",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

// Evaluate adds the inputs cell-wise.
func (Sum) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	grids, err := numericInputs(in, "in")
	if err != nil {
		return nil, err
	}
	out, err := newNumericLike(grids[0])
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		var total float32
		for _, g := range grids {
			v, err := g.GetAtZoom(cx, cy, out.Zoom())
			if err != nil {
				return err
			}
			total += v
		}
		return out.Set(cx, cy, total)
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Mask keeps numeric cells where the mask is true and zeroes the rest.
type Mask struct{}

// Spec describes the kind.
func (Mask) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "mask",
		Tooltip: "Keep values inside the mask, zero outside",
		Inputs: []dataflow.Socket{
			{Name: "in", Type: dataflow.SocketNumeric},
			{Name: "mask", Type: dataflow.SocketBoolean},
		},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

// Evaluate copies cells covered by the mask.
func (Mask) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := numericInput(in, "in")
	if err != nil {
		return nil, err
	}
	mask, err := booleanInput(in, "mask")
	if err != nil {
		return nil, err
	}
	out, err := newNumericLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		on, err := mask.GetAtZoom(cx, cy, out.Zoom())
		if err != nil {
			return err
		}
		if on {
			return out.Set(cx, cy, src.Get(cx, cy))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Rasterize turns a boolean grid numeric: true becomes 1, false 0.
type Rasterize struct{}

// Spec describes the kind.
func (Rasterize) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "rasterize",
		Tooltip: "Boolean to numeric (true is 1)",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

// Evaluate converts cell-wise.
func (Rasterize) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := booleanInput(in, "in")
	if err != nil {
		return nil, err
	}
	out, err := newNumericLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		if src.Get(cx, cy) {
			return out.Set(cx, cy, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}
