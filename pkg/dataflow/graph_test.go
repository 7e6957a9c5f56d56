package dataflow

import (
	"errors"
	"testing"

	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// stubKind is a minimal kind for graph structure tests.
type stubKind struct {
	name    string
	inputs  []Socket
	outputs []Socket
}

func (k stubKind) Spec() Spec {
	return Spec{Name: k.name, Inputs: k.inputs, Outputs: k.outputs}
}

func (k stubKind) Evaluate(_ *EvalContext, _ Inputs, _ Params) (Outputs, error) {
	return Outputs{}, nil
}

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(stubKind{
		name:    "source",
		outputs: []Socket{{Name: "out", Type: SocketBoolean}},
	})
	reg.Register(stubKind{
		name:    "combine",
		inputs:  []Socket{{Name: "in", Type: SocketBoolean}},
		outputs: []Socket{{Name: "out", Type: SocketBoolean}},
	})
	reg.Register(stubKind{
		name:   "sink",
		inputs: []Socket{{Name: "in", Type: SocketGrid}},
	})
	reg.Register(stubKind{
		name:    "measure",
		inputs:  []Socket{{Name: "in", Type: SocketNumeric}},
		outputs: []Socket{{Name: "out", Type: SocketNumeric}},
	})
	return reg
}

func TestAddNode(t *testing.T) {
	g := New(testRegistry())

	if err := g.AddNode(Node{ID: 1, Kind: "source"}); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if err := g.AddNode(Node{ID: 0, Kind: "source"}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(ID=0) error = %v, want ErrInvalidNodeID", err)
	}
	if err := g.AddNode(Node{ID: 1, Kind: "sink"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(duplicate) error = %v, want ErrDuplicateNodeID", err)
	}
	if err := g.AddNode(Node{ID: 2, Kind: "warp"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("AddNode(unknown kind) error = %v, want ErrUnknownKind", err)
	}

	n, ok := g.Node(1)
	if !ok {
		t.Fatal("Node(1) not found after AddNode")
	}
	if n.Name != "source" {
		t.Errorf("Name = %q, want kind tag as default display name", n.Name)
	}
	if n.Params == nil {
		t.Error("Params not initialized by AddNode")
	}
}

func TestConnectValidation(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	mustAdd(t, g, Node{ID: 2, Kind: "combine"})
	mustAdd(t, g, Node{ID: 3, Kind: "sink"})
	mustAdd(t, g, Node{ID: 4, Kind: "measure"})

	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{"valid matching types", Edge{From: 1, Output: "out", To: 2, Input: "in"}, nil},
		{"valid into any-grid input", Edge{From: 1, Output: "out", To: 3, Input: "in"}, nil},
		{"unknown source node", Edge{From: 9, Output: "out", To: 2, Input: "in"}, ErrUnknownNode},
		{"unknown target node", Edge{From: 1, Output: "out", To: 9, Input: "in"}, ErrUnknownNode},
		{"unknown output socket", Edge{From: 1, Output: "result", To: 2, Input: "in"}, ErrUnknownSocket},
		{"unknown input socket", Edge{From: 1, Output: "out", To: 2, Input: "mask"}, ErrUnknownSocket},
		{"boolean into numeric", Edge{From: 1, Output: "out", To: 4, Input: "in"}, ErrSocketType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Connect(tt.edge)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Connect() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMultiInputOrdering(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	mustAdd(t, g, Node{ID: 2, Kind: "source"})
	mustAdd(t, g, Node{ID: 3, Kind: "combine"})

	first := Edge{From: 2, Output: "out", To: 3, Input: "in"}
	second := Edge{From: 1, Output: "out", To: 3, Input: "in"}
	if err := g.Connect(first); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := g.Connect(second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	edges := g.Edges()
	if len(edges) != 2 || edges[0] != first || edges[1] != second {
		t.Errorf("Edges() = %v, want insertion order [%v %v]", edges, first, second)
	}
}

func TestRemoveNodeDropsEdges(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	mustAdd(t, g, Node{ID: 2, Kind: "combine"})
	mustAdd(t, g, Node{ID: 3, Kind: "sink"})
	mustConnect(t, g, Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, Edge{From: 2, Output: "out", To: 3, Input: "in"})

	if err := g.RemoveNode(2); err != nil {
		t.Fatalf("RemoveNode() error = %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d after removing the connecting node, want 0", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
	if err := g.RemoveNode(2); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("RemoveNode(missing) error = %v, want ErrUnknownNode", err)
	}
}

func TestDisconnect(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	mustAdd(t, g, Node{ID: 2, Kind: "combine"})
	e := Edge{From: 1, Output: "out", To: 2, Input: "in"}
	mustConnect(t, g, e)

	g.Disconnect(e)
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d after Disconnect, want 0", g.EdgeCount())
	}
	// Disconnecting again is a no-op.
	g.Disconnect(e)
}

func TestValidateCycle(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "combine"})
	mustAdd(t, g, Node{ID: 2, Kind: "combine"})
	mustAdd(t, g, Node{ID: 3, Kind: "combine"})
	mustConnect(t, g, Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, Edge{From: 2, Output: "out", To: 3, Input: "in"})

	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() error = %v on acyclic graph", err)
	}

	mustConnect(t, g, Edge{From: 3, Output: "out", To: 1, Input: "in"})
	if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() error = %v, want ErrGraphHasCycle", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	if err := g.SetParam(1, "value", true); err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}

	snap := g.Snapshot()

	// Edits to the live graph must not leak into the snapshot.
	if err := g.SetParam(1, "value", false); err != nil {
		t.Fatalf("SetParam() error = %v", err)
	}
	mustAdd(t, g, Node{ID: 2, Kind: "sink"})
	mustConnect(t, g, Edge{From: 1, Output: "out", To: 2, Input: "in"})

	sn, ok := snap.Node(1)
	if !ok {
		t.Fatal("snapshot lost node 1")
	}
	if got := sn.Params.Bool("value", false); !got {
		t.Error("snapshot param changed by live edit")
	}
	if snap.NodeCount() != 1 || snap.EdgeCount() != 0 {
		t.Errorf("snapshot = %d nodes / %d edges, want 1 / 0",
			snap.NodeCount(), snap.EdgeCount())
	}
}

func TestAnnotations(t *testing.T) {
	g := New(testRegistry())
	mustAdd(t, g, Node{ID: 1, Kind: "source"})

	if err := g.Annotate(1, "no input"); err != nil {
		t.Fatalf("Annotate() error = %v", err)
	}
	n, _ := g.Node(1)
	if msg, ok := n.Annotation(); !ok || msg != "no input" {
		t.Errorf("Annotation() = (%q, %v), want (no input, true)", msg, ok)
	}
	if got := g.Annotations(); len(got) != 1 || got[1] != "no input" {
		t.Errorf("Annotations() = %v, want map[1:no input]", got)
	}

	if err := g.ClearAnnotation(1); err != nil {
		t.Fatalf("ClearAnnotation() error = %v", err)
	}
	if _, ok := n.Annotation(); ok {
		t.Error("Annotation() still set after ClearAnnotation")
	}

	if err := g.Annotate(9, "x"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Annotate(missing) error = %v, want ErrUnknownNode", err)
	}
}

func TestNextID(t *testing.T) {
	g := New(testRegistry())
	if got := g.NextID(); got != 1 {
		t.Errorf("NextID() on empty graph = %d, want 1", got)
	}
	mustAdd(t, g, Node{ID: 1, Kind: "source"})
	mustAdd(t, g, Node{ID: 7, Kind: "source"})
	if got := g.NextID(); got != 8 {
		t.Errorf("NextID() = %d, want 8", got)
	}
	if err := g.RemoveNode(7); err != nil {
		t.Fatalf("RemoveNode() error = %v", err)
	}
	if got := g.NextID(); got != 2 {
		t.Errorf("NextID() after removing the high node = %d, want 2", got)
	}
}

func TestInputsFirst(t *testing.T) {
	grid, err := tilegrid.NewBooleanTileGrid(0, 0, 0, 1, 1)
	if err != nil {
		t.Fatalf("NewBooleanTileGrid() error = %v", err)
	}

	in := Inputs{"in": {grid}}
	if got, ok := in.First("in"); !ok || got != tilegrid.Grid(grid) {
		t.Errorf("First(in) = (%v, %v), want the connected grid", got, ok)
	}
	if _, ok := in.First("other"); ok {
		t.Error("First(other) = present, want absent for unconnected socket")
	}
}

func mustAdd(t *testing.T, g *Graph, n Node) {
	t.Helper()
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%d) error = %v", n.ID, err)
	}
}

func mustConnect(t *testing.T, g *Graph, e Edge) {
	t.Helper()
	if err := g.Connect(e); err != nil {
		t.Fatalf("Connect(%v) error = %v", e, err)
	}
}
