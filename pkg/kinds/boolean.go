package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
)

// Union marks cells true in any input. The result adopts the first
// input's frame.
type Union struct{}

// Spec describes the kind.
func (Union) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "union",
		Tooltip: "Cells true in any input",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
	}
}

// Evaluate combines the inputs cell-wise with logical or.
func (Union) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	grids, err := booleanInputs(in, "in")
	if err != nil {
		return nil, err
	}
	out, err := newBooleanLike(grids[0])
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		for _, g := range grids {
			v, err := g.GetAtZoom(cx, cy, out.Zoom())
			if err != nil {
				return err
			}
			if v {
				return out.Set(cx, cy, true)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Intersection marks cells true in every input. Reads outside a
// secondary input's extent are false, so the result is clipped to the
// overlap.
type Intersection struct{}

// Spec describes the kind.
func (Intersection) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "intersection",
		Tooltip: "Cells true in every input",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
	}
}

// Evaluate combines the inputs cell-wise with logical and.
func (Intersection) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	grids, err := booleanInputs(in, "in")
	if err != nil {
		return nil, err
	}
	out, err := newBooleanLike(grids[0])
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		for _, g := range grids {
			v, err := g.GetAtZoom(cx, cy, out.Zoom())
			if err != nil {
				return err
			}
			if !v {
				return nil
			}
		}
		return out.Set(cx, cy, true)
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// Invert flips every cell of its input.
type Invert struct{}

// Spec describes the kind.
func (Invert) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "invert",
		Tooltip: "Logical not of the input",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketBoolean}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketBoolean}},
	}
}

// Evaluate negates the input cell-wise.
func (Invert) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, err := booleanInput(in, "in")
	if err != nil {
		return nil, err
	}
	out, err := newBooleanLike(src)
	if err != nil {
		return nil, err
	}
	err = eachCell(out, func(cx, cy int) error {
		if !src.Get(cx, cy) {
			return out.Set(cx, cy, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {out}}, nil
}
