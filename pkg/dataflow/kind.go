package dataflow

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// SocketType constrains which connections a socket accepts. Each grid
// variant has a matching socket type; [SocketGrid] accepts any variant.
type SocketType string

const (
	// SocketBoolean carries [tilegrid.BooleanTileGrid] values.
	SocketBoolean SocketType = "boolean"
	// SocketNumeric carries [tilegrid.NumericTileGrid] values.
	SocketNumeric SocketType = "numeric"
	// SocketCategorical carries [tilegrid.CategoricalTileGrid] values.
	SocketCategorical SocketType = "categorical"
	// SocketGrid carries any tile grid variant.
	SocketGrid SocketType = "grid"
)

// Compatible reports whether a value produced on an output socket of type
// out may be delivered to an input socket of type in. Types match exactly,
// and a [SocketGrid] input additionally accepts every variant.
func Compatible(out, in SocketType) bool {
	return out == in || in == SocketGrid
}

// Socket declares one named, typed connection point of a kind.
type Socket struct {
	Name string
	Type SocketType
}

// ParamSpec declares one node-local parameter with its default value.
// Defaults are applied by [Params.Float] and friends when a node has no
// explicit value set.
type ParamSpec struct {
	Name    string
	Default any
}

// Spec describes a kind at graph-build time: its registry tag, a tooltip
// for editors, and the sockets and parameters it declares.
type Spec struct {
	Name    string
	Tooltip string
	Inputs  []Socket
	Outputs []Socket
	Params  []ParamSpec
}

// Kind is the contract a processing step implements. Spec is consulted when
// nodes are added and connected; Evaluate runs once per evaluation pass for
// each node of the kind.
//
// Evaluate must be a pure function of its inputs and parameters with no
// hidden shared state, because passes run on a worker goroutine concurrent
// with graph edits. It must not block on external I/O; side effects that
// have to wait for a pass to be accepted (such as persisting a result) are
// staged on the [EvalContext] instead of executed inline.
type Kind interface {
	Spec() Spec
	Evaluate(ec *EvalContext, in Inputs, params Params) (Outputs, error)
}

// Inputs holds the resolved values present on each input socket, in edge
// insertion order. Unconnected sockets map to an empty list.
type Inputs map[string][]tilegrid.Grid

// First returns the first value on the named socket and whether one exists.
func (in Inputs) First(socket string) (tilegrid.Grid, bool) {
	vs := in[socket]
	if len(vs) == 0 {
		return nil, false
	}
	return vs[0], true
}

// Outputs holds the values a transform produced for each output socket.
type Outputs map[string][]tilegrid.Grid

// Params holds a node's local parameters. Values arrive from editors and
// persisted projects as JSON, so numbers may be float64 even when a
// parameter is integral; the typed getters normalize that.
type Params map[string]any

// Float returns the named parameter as a float64, falling back to def when
// the parameter is unset or not numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Int returns the named parameter as an int, falling back to def when the
// parameter is unset or not numeric. Fractional values truncate.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return def
	}
}

// Bool returns the named parameter as a bool, falling back to def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// String returns the named parameter as a string, falling back to def.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Code returns the named parameter as a categorical byte code, falling
// back to def when the parameter is unset, not numeric or out of range.
func (p Params) Code(key string, def uint8) uint8 {
	v := p.Int(key, int(def))
	if v < 0 || v > 255 {
		return def
	}
	return uint8(v)
}

// SaveFunc hands a finished grid to an external layer store. The engine
// invokes it during the apply step of a completed, non-stale pass.
type SaveFunc func(ctx context.Context, nodeID int, grid tilegrid.Grid) error

// StagedSave is a save a sink transform requested during a pass. Staged
// saves execute only if the pass is still current when it completes.
type StagedSave struct {
	NodeID int
	Grid   tilegrid.Grid
	Save   SaveFunc
}

// EvalContext carries per-invocation state from the engine into a
// transform: the node under evaluation, a logger, and the staging area for
// deferred saves.
type EvalContext struct {
	nodeID int
	logger *log.Logger
	saves  []StagedSave
}

// NewEvalContext creates the context the engine hands to one node's
// transform. A nil logger falls back to [log.Default].
func NewEvalContext(nodeID int, logger *log.Logger) *EvalContext {
	if logger == nil {
		logger = log.Default()
	}
	return &EvalContext{nodeID: nodeID, logger: logger}
}

// NodeID returns the ID of the node being evaluated.
func (ec *EvalContext) NodeID() int { return ec.nodeID }

// Logger returns the pass logger scoped to this node.
func (ec *EvalContext) Logger() *log.Logger { return ec.logger }

// StageSave defers handing grid to fn until the pass is applied. A pass
// superseded before apply never executes its staged saves.
func (ec *EvalContext) StageSave(grid tilegrid.Grid, fn SaveFunc) {
	ec.saves = append(ec.saves, StagedSave{NodeID: ec.nodeID, Grid: grid, Save: fn})
}

// StagedSaves returns the saves staged during this node's evaluation.
func (ec *EvalContext) StagedSaves() []StagedSave { return ec.saves }
