package kinds

import (
	"errors"
	"fmt"

	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// Sentinel errors for node transforms.
var (
	// ErrNoInput is returned when a required input socket carries no
	// value. Its message becomes the node's annotation.
	ErrNoInput = errors.New("no input")

	// ErrInputType is returned when a delivered grid does not match the
	// socket's declared type. Socket typing prevents this for
	// well-behaved kinds [dataflow.Compatible]; this is the backstop.
	ErrInputType = errors.New("unexpected input grid type")
)

// Register adds the full built-in catalog to reg, with the "layer output"
// sink bound to save.
func Register(reg *dataflow.Registry, save dataflow.SaveFunc) {
	reg.Register(ConstantArea{})
	reg.Register(Union{})
	reg.Register(Intersection{})
	reg.Register(Invert{})
	reg.Register(Threshold{})
	reg.Register(Scale{})
	reg.Register(Offset{})
	reg.Register(Sum{})
	reg.Register(Mask{})
	reg.Register(Rasterize{})
	reg.Register(PaintCategory{})
	reg.Register(GridStats{})
	reg.Register(NewLayerOutput(save))
}

// ===== Input helpers =====

func booleanInput(in dataflow.Inputs, socket string) (*tilegrid.BooleanTileGrid, error) {
	v, ok := in.First(socket)
	if !ok {
		return nil, ErrNoInput
	}
	b, ok := v.(*tilegrid.BooleanTileGrid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInputType, v.Type())
	}
	return b, nil
}

func booleanInputs(in dataflow.Inputs, socket string) ([]*tilegrid.BooleanTileGrid, error) {
	vs := in[socket]
	if len(vs) == 0 {
		return nil, ErrNoInput
	}
	grids := make([]*tilegrid.BooleanTileGrid, len(vs))
	for i, v := range vs {
		b, ok := v.(*tilegrid.BooleanTileGrid)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInputType, v.Type())
		}
		grids[i] = b
	}
	return grids, nil
}

func numericInput(in dataflow.Inputs, socket string) (*tilegrid.NumericTileGrid, error) {
	v, ok := in.First(socket)
	if !ok {
		return nil, ErrNoInput
	}
	n, ok := v.(*tilegrid.NumericTileGrid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInputType, v.Type())
	}
	return n, nil
}

func numericInputs(in dataflow.Inputs, socket string) ([]*tilegrid.NumericTileGrid, error) {
	vs := in[socket]
	if len(vs) == 0 {
		return nil, ErrNoInput
	}
	grids := make([]*tilegrid.NumericTileGrid, len(vs))
	for i, v := range vs {
		n, ok := v.(*tilegrid.NumericTileGrid)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInputType, v.Type())
		}
		grids[i] = n
	}
	return grids, nil
}

// ===== Frame helpers =====

// newBooleanLike creates an empty boolean grid with g's frame.
func newBooleanLike(g tilegrid.Grid) (*tilegrid.BooleanTileGrid, error) {
	return tilegrid.NewBooleanTileGrid(g.Zoom(), g.X(), g.Y(), g.Width(), g.Height())
}

// newNumericLike creates an empty numeric grid with g's frame.
func newNumericLike(g tilegrid.Grid) (*tilegrid.NumericTileGrid, error) {
	return tilegrid.NewNumericTileGrid(g.Zoom(), g.X(), g.Y(), g.Width(), g.Height())
}

// eachCell calls fn for every cell coordinate of g's extent.
func eachCell(g tilegrid.Grid, fn func(cx, cy int) error) error {
	for cx := g.X(); cx < g.X()+g.Width(); cx++ {
		for cy := g.Y(); cy < g.Y()+g.Height(); cy++ {
			if err := fn(cx, cy); err != nil {
				return err
			}
		}
	}
	return nil
}
