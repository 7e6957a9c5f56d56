package kinds

import (
	"github.com/rastermill/rastermill/pkg/dataflow"
)

// LayerOutput is the sink: it hands its input grid to the layer store.
// The save itself is staged on the pass and executed by the engine only
// when the pass is applied, so a superseded pass never persists layers.
//
// With nothing connected the node reports [ErrNoInput] and the save
// callback is not invoked at all.
type LayerOutput struct {
	save dataflow.SaveFunc
}

// NewLayerOutput creates the sink kind bound to a save callback.
func NewLayerOutput(save dataflow.SaveFunc) *LayerOutput {
	return &LayerOutput{save: save}
}

// Spec describes the kind.
func (k *LayerOutput) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "layer output",
		Tooltip: "Save the incoming grid as this node's layer",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketGrid}},
	}
}

// Evaluate stages exactly one save for the first input value.
func (k *LayerOutput) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	g, ok := in.First("in")
	if !ok {
		return nil, ErrNoInput
	}
	ec.StageSave(g, k.save)
	return dataflow.Outputs{}, nil
}
