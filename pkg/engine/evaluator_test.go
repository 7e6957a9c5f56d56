package engine

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rastermill/rastermill/pkg/cache"
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/observability"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// ===== Stub kinds =====

// gate lets a test hold a transform open and release it exactly once.
type gate struct {
	once sync.Once
	ch   chan struct{}
}

func newGate() *gate { return &gate{ch: make(chan struct{})} }

func (g *gate) wait()    { <-g.ch }
func (g *gate) release() { g.once.Do(func() { close(g.ch) }) }

// emitKind produces a 1x1 numeric grid holding its "value" parameter. With
// "block" set it waits on the gate first, which holds the pass open.
type emitKind struct {
	gate *gate
}

func (k *emitKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "emit",
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
		Params: []dataflow.ParamSpec{
			{Name: "value", Default: 0.0},
			{Name: "block", Default: false},
		},
	}
}

func (k *emitKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	if k.gate != nil && params.Bool("block", false) {
		k.gate.wait()
	}
	g, err := tilegrid.NewNumericTileGrid(0, 0, 0, 1, 1)
	if err != nil {
		return nil, err
	}
	if err := g.Set(0, 0, float32(params.Float("value", 0))); err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {g}}, nil
}

// doubleKind doubles every cell of its first input.
type doubleKind struct{}

func (doubleKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "double",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

func (doubleKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	src, ok := in.First("in")
	if !ok {
		return nil, errors.New("no input")
	}
	ng := src.(*tilegrid.NumericTileGrid)
	out, err := tilegrid.NewNumericTileGrid(ng.Zoom(), ng.X(), ng.Y(), ng.Width(), ng.Height())
	if err != nil {
		return nil, err
	}
	for cx := ng.X(); cx < ng.X()+ng.Width(); cx++ {
		for cy := ng.Y(); cy < ng.Y()+ng.Height(); cy++ {
			if err := out.Set(cx, cy, ng.Get(cx, cy)*2); err != nil {
				return nil, err
			}
		}
	}
	return dataflow.Outputs{"out": {out}}, nil
}

// failKind always reports a node-local error.
type failKind struct{}

func (failKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "fail",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

func (failKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	return nil, errors.New("boom")
}

// collectKind stages its first input for saving, like a sink node.
type collectKind struct {
	save dataflow.SaveFunc
}

func (k *collectKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:   "collect",
		Inputs: []dataflow.Socket{{Name: "in", Type: dataflow.SocketGrid}},
	}
}

func (k *collectKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	g, ok := in.First("in")
	if !ok {
		return nil, errors.New("no input")
	}
	ec.StageSave(g, k.save)
	return dataflow.Outputs{}, nil
}

// saveRecorder records executed saves for assertions.
type saveRecorder struct {
	mu    sync.Mutex
	err   error
	nodes []int
	cells []float32
}

func (r *saveRecorder) fn(ctx context.Context, nodeID int, grid tilegrid.Grid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nodes = append(r.nodes, nodeID)
	if ng, ok := grid.(*tilegrid.NumericTileGrid); ok {
		r.cells = append(r.cells, ng.Get(0, 0))
	}
	return nil
}

func (r *saveRecorder) values() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.cells)
}

// ===== Helpers =====

func newTestRegistry(gt *gate, rec *saveRecorder) *dataflow.Registry {
	reg := dataflow.NewRegistry()
	reg.Register(&emitKind{gate: gt})
	reg.Register(doubleKind{})
	reg.Register(failKind{})
	reg.Register(&collectKind{save: rec.fn})
	return reg
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func mustAddNode(t *testing.T, g *dataflow.Graph, n dataflow.Node) {
	t.Helper()
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%d): %v", n.ID, err)
	}
}

func mustConnect(t *testing.T, g *dataflow.Graph, e dataflow.Edge) {
	t.Helper()
	if err := g.Connect(e); err != nil {
		t.Fatalf("Connect(%+v): %v", e, err)
	}
}

// ===== Tests =====

func TestEvaluateChain(t *testing.T) {
	rec := &saveRecorder{}
	g := dataflow.New(newTestRegistry(nil, rec))
	mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "emit", Params: dataflow.Params{"value": 3.0}})
	mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "double"})
	mustAddNode(t, g, dataflow.Node{ID: 3, Kind: "collect"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 2, Output: "out", To: 3, Input: "in"})

	res := Evaluate(context.Background(), g, PassConfig{Logger: quietLogger()})
	if res.Err != nil {
		t.Fatalf("Err = %v, want nil", res.Err)
	}
	if res.Failed != 0 {
		t.Fatalf("Failed = %d, want 0", res.Failed)
	}
	if len(res.Nodes) != 3 {
		t.Fatalf("len(Nodes) = %d, want 3", len(res.Nodes))
	}
	for id, msg := range res.Nodes {
		if msg != "" {
			t.Errorf("node %d: unexpected error %q", id, msg)
		}
	}

	if len(res.Saves) != 1 {
		t.Fatalf("len(Saves) = %d, want 1", len(res.Saves))
	}
	if got := rec.values(); len(got) != 0 {
		t.Fatalf("save executed during evaluation: %v", got)
	}
	s := res.Saves[0]
	if s.NodeID != 3 {
		t.Errorf("staged save node = %d, want 3", s.NodeID)
	}
	ng, ok := s.Grid.(*tilegrid.NumericTileGrid)
	if !ok {
		t.Fatalf("staged grid type = %T, want *tilegrid.NumericTileGrid", s.Grid)
	}
	if got := ng.Get(0, 0); got != 6 {
		t.Errorf("staged cell = %v, want 6", got)
	}
}

func TestEvaluateNodeFailureIsolated(t *testing.T) {
	rec := &saveRecorder{}
	g := dataflow.New(newTestRegistry(nil, rec))
	mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "emit"})
	mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "fail"})
	mustAddNode(t, g, dataflow.Node{ID: 3, Kind: "double"})
	mustAddNode(t, g, dataflow.Node{ID: 4, Kind: "emit"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 2, Output: "out", To: 3, Input: "in"})

	res := Evaluate(context.Background(), g, PassConfig{Logger: quietLogger()})
	if res.Err != nil {
		t.Fatalf("Err = %v, want nil (node errors are not pass-fatal)", res.Err)
	}
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2", res.Failed)
	}
	if got := res.Nodes[2]; got != "boom" {
		t.Errorf("Nodes[2] = %q, want %q", got, "boom")
	}
	// Downstream of the failure sees no input and reports its own error.
	if got := res.Nodes[3]; got != "no input" {
		t.Errorf("Nodes[3] = %q, want %q", got, "no input")
	}
	if got := res.Nodes[1]; got != "" {
		t.Errorf("Nodes[1] = %q, want success", got)
	}
	if got := res.Nodes[4]; got != "" {
		t.Errorf("Nodes[4] = %q, want success", got)
	}
}

func TestEvaluateCycleFatal(t *testing.T) {
	rec := &saveRecorder{}
	g := dataflow.New(newTestRegistry(nil, rec))
	mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "double"})
	mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "double"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 2, Output: "out", To: 1, Input: "in"})

	res := Evaluate(context.Background(), g, PassConfig{Logger: quietLogger()})
	if !errors.Is(res.Err, dataflow.ErrGraphHasCycle) {
		t.Fatalf("Err = %v, want %v", res.Err, dataflow.ErrGraphHasCycle)
	}
	if len(res.Nodes) != 0 {
		t.Errorf("Nodes = %v, want none evaluated", res.Nodes)
	}
}

// traceKind appends its node ID to a shared sequence and passes a fresh
// grid along.
type traceKind struct {
	seq *[]int
}

func (k *traceKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:    "trace",
		Inputs:  []dataflow.Socket{{Name: "in", Type: dataflow.SocketGrid}},
		Outputs: []dataflow.Socket{{Name: "out", Type: dataflow.SocketNumeric}},
	}
}

func (k *traceKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	*k.seq = append(*k.seq, ec.NodeID())
	g, err := tilegrid.NewNumericTileGrid(0, 0, 0, 1, 1)
	if err != nil {
		return nil, err
	}
	return dataflow.Outputs{"out": {g}}, nil
}

func TestEvaluateOrderDeterministic(t *testing.T) {
	var seq []int
	reg := dataflow.NewRegistry()
	reg.Register(&traceKind{seq: &seq})

	// Diamond: 1 fans out to 2 and 3, which join at 4.
	g := dataflow.New(reg)
	for id := 1; id <= 4; id++ {
		mustAddNode(t, g, dataflow.Node{ID: id, Kind: "trace"})
	}
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 3, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 2, Output: "out", To: 4, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 3, Output: "out", To: 4, Input: "in"})

	want := []int{1, 2, 3, 4}
	for i := 0; i < 3; i++ {
		seq = seq[:0]
		if res := Evaluate(context.Background(), g, PassConfig{Logger: quietLogger()}); res.Err != nil {
			t.Fatalf("pass %d: Err = %v", i, res.Err)
		}
		if !slices.Equal(seq, want) {
			t.Fatalf("pass %d: order = %v, want %v", i, seq, want)
		}
	}
}

// captureKind records the cell values arriving on its input socket.
type captureKind struct {
	got *[]float32
}

func (k *captureKind) Spec() dataflow.Spec {
	return dataflow.Spec{
		Name:   "capture",
		Inputs: []dataflow.Socket{{Name: "in", Type: dataflow.SocketNumeric}},
	}
}

func (k *captureKind) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	for _, g := range in["in"] {
		*k.got = append(*k.got, g.(*tilegrid.NumericTileGrid).Get(0, 0))
	}
	return dataflow.Outputs{}, nil
}

func TestEvaluateMultiInputOrder(t *testing.T) {
	build := func(got *[]float32, first, second int) *dataflow.Graph {
		reg := dataflow.NewRegistry()
		reg.Register(&emitKind{})
		reg.Register(&captureKind{got: got})
		g := dataflow.New(reg)
		mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "emit", Params: dataflow.Params{"value": 1.0}})
		mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "emit", Params: dataflow.Params{"value": 2.0}})
		mustAddNode(t, g, dataflow.Node{ID: 3, Kind: "capture"})
		mustConnect(t, g, dataflow.Edge{From: first, Output: "out", To: 3, Input: "in"})
		mustConnect(t, g, dataflow.Edge{From: second, Output: "out", To: 3, Input: "in"})
		return g
	}

	var got []float32
	if res := Evaluate(context.Background(), build(&got, 1, 2), PassConfig{Logger: quietLogger()}); res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}
	if !slices.Equal(got, []float32{1, 2}) {
		t.Errorf("values = %v, want [1 2]", got)
	}

	got = nil
	if res := Evaluate(context.Background(), build(&got, 2, 1), PassConfig{Logger: quietLogger()}); res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}
	if !slices.Equal(got, []float32{2, 1}) {
		t.Errorf("values = %v, want [2 1] (edge insertion order)", got)
	}
}

// countEmit counts how often its transform actually runs.
type countEmit struct {
	emitKind
	evals int
}

func (k *countEmit) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	k.evals++
	return k.emitKind.Evaluate(ec, in, params)
}

// countDouble counts how often its transform actually runs.
type countDouble struct {
	doubleKind
	evals int
}

func (k *countDouble) Evaluate(ec *dataflow.EvalContext, in dataflow.Inputs, params dataflow.Params) (dataflow.Outputs, error) {
	k.evals++
	return k.doubleKind.Evaluate(ec, in, params)
}

// cacheCounting tallies cache hook invocations.
type cacheCounting struct {
	observability.NoopCacheHooks

	mu   sync.Mutex
	hit  int
	miss int
	set  int
}

func (h *cacheCounting) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	h.hit++
	h.mu.Unlock()
}

func (h *cacheCounting) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	h.miss++
	h.mu.Unlock()
}

func (h *cacheCounting) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	h.set++
	h.mu.Unlock()
}

func TestEvaluateCacheReuse(t *testing.T) {
	hooks := &cacheCounting{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	emit := &countEmit{}
	dbl := &countDouble{}
	rec := &saveRecorder{}
	reg := dataflow.NewRegistry()
	reg.Register(emit)
	reg.Register(dbl)
	reg.Register(&collectKind{save: rec.fn})

	g := dataflow.New(reg)
	mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "emit", Params: dataflow.Params{"value": 3.0}})
	mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "double"})
	mustAddNode(t, g, dataflow.Node{ID: 3, Kind: "collect"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
	mustConnect(t, g, dataflow.Edge{From: 2, Output: "out", To: 3, Input: "in"})

	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	cfg := PassConfig{Logger: quietLogger(), Cache: store}
	ctx := context.Background()

	if res := Evaluate(ctx, g, cfg); res.Err != nil || res.Failed != 0 {
		t.Fatalf("first pass: Err %v, Failed %d", res.Err, res.Failed)
	}
	if emit.evals != 1 || dbl.evals != 1 {
		t.Fatalf("first pass evals = emit %d, double %d; want 1, 1", emit.evals, dbl.evals)
	}

	res := Evaluate(ctx, g, cfg)
	if res.Err != nil || res.Failed != 0 {
		t.Fatalf("second pass: Err %v, Failed %d", res.Err, res.Failed)
	}
	if emit.evals != 1 || dbl.evals != 1 {
		t.Errorf("second pass re-ran cached nodes: emit %d, double %d", emit.evals, dbl.evals)
	}
	// The sink has no outputs to cache, so its save is staged every pass.
	if len(res.Saves) != 1 {
		t.Fatalf("second pass Saves = %d, want 1", len(res.Saves))
	}
	if got := res.Saves[0].Grid.(*tilegrid.NumericTileGrid).Get(0, 0); got != 6 {
		t.Errorf("cached chain result = %v, want 6", got)
	}

	// A parameter change flows into the keys of the whole chain.
	if err := g.SetParam(1, "value", 4.0); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	res = Evaluate(ctx, g, cfg)
	if emit.evals != 2 || dbl.evals != 2 {
		t.Errorf("third pass evals = emit %d, double %d; want 2, 2", emit.evals, dbl.evals)
	}
	if got := res.Saves[0].Grid.(*tilegrid.NumericTileGrid).Get(0, 0); got != 8 {
		t.Errorf("recomputed chain result = %v, want 8", got)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.hit != 2 || hooks.miss != 4 || hooks.set != 4 {
		t.Errorf("cache hooks = hit %d, miss %d, set %d; want 2, 4, 4",
			hooks.hit, hooks.miss, hooks.set)
	}
}

// countingHooks tallies engine hook invocations.
type countingHooks struct {
	observability.NoopEngineHooks

	mu        sync.Mutex
	evaluated int
	failures  int
}

func (h *countingHooks) OnNodeEvaluated(_ context.Context, kind string, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evaluated++
	if err != nil {
		h.failures++
	}
}

func TestEvaluateReportsNodeHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetEngineHooks(hooks)
	t.Cleanup(observability.Reset)

	rec := &saveRecorder{}
	g := dataflow.New(newTestRegistry(nil, rec))
	mustAddNode(t, g, dataflow.Node{ID: 1, Kind: "emit"})
	mustAddNode(t, g, dataflow.Node{ID: 2, Kind: "fail"})
	mustConnect(t, g, dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})

	if res := Evaluate(context.Background(), g, PassConfig{Logger: quietLogger()}); res.Err != nil {
		t.Fatalf("Err = %v", res.Err)
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.evaluated != 2 {
		t.Errorf("evaluated = %d, want 2", hooks.evaluated)
	}
	if hooks.failures != 1 {
		t.Errorf("failures = %d, want 1", hooks.failures)
	}
}
