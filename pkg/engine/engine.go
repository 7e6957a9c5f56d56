package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rastermill/rastermill/pkg/cache"
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/observability"
)

// Mode selects how graph edits turn into evaluation passes.
type Mode string

const (
	// ModeAuto dispatches passes automatically: parameter edits after a
	// debounce delay, structural edits immediately.
	ModeAuto Mode = "auto"
	// ModeManual dispatches passes only on an explicit [Engine.Run].
	ModeManual Mode = "manual"
)

// State describes the scheduler's position in its trigger cycle.
type State string

const (
	// StateIdle means no pass is running and no timer is armed.
	StateIdle State = "idle"
	// StatePending means a debounce timer is armed but not yet dispatched.
	StatePending State = "pending"
	// StateRunning means a pass is executing on the worker goroutine.
	StateRunning State = "running"
)

// DefaultDebounce is the delay between a parameter edit and the pass it
// triggers in auto mode. Rapid consecutive edits re-arm the timer, so only
// the last edit in a burst dispatches.
const DefaultDebounce = 500 * time.Millisecond

// Config carries the optional knobs of [New]. The zero value is usable:
// auto mode, the default debounce delay, the default logger and no result
// caching.
type Config struct {
	// Logger receives engine and pass logging. Defaults to [log.Default].
	Logger *log.Logger
	// Mode is the initial trigger mode. Defaults to [ModeAuto].
	Mode Mode
	// Debounce is the parameter-edit delay. Defaults to [DefaultDebounce].
	Debounce time.Duration
	// Cache, when set, lets passes reuse node results across evaluations.
	Cache cache.Cache
	// Keyer derives result cache keys. Defaults to [cache.NewDefaultKeyer].
	Keyer cache.Keyer
}

// Engine owns a dataflow graph and schedules its evaluation. All graph
// edits go through the engine so it can serialize them against running
// passes and decide when to trigger.
//
// A pass runs on its own goroutine over a snapshot of the graph taken at
// dispatch time. Every dispatch advances a generation counter; when a pass
// completes, its results are applied only if its generation is still
// current, otherwise they are discarded without touching any node state.
// Superseded passes are never interrupted, just ignored.
type Engine struct {
	logger   *log.Logger
	debounce time.Duration
	pass     PassConfig

	mu         sync.Mutex
	graph      *dataflow.Graph
	mode       Mode
	state      State
	generation uint64
	armSeq     uint64
	timer      *time.Timer
	inflight   int
	loading    bool
	lastErr    error
	closed     bool
	changed    chan struct{}
}

// New creates an engine owning g. The graph must not be mutated directly
// afterwards; use the engine's edit methods.
func New(g *dataflow.Graph, cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Engine{
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		pass:     PassConfig{Logger: cfg.Logger, Cache: cfg.Cache, Keyer: cfg.Keyer},
		graph:    g,
		mode:     cfg.Mode,
		state:    StateIdle,
		changed:  make(chan struct{}),
	}
}

// ===== Status =====

// Status is a point-in-time view of the engine for UI collaborators.
type Status struct {
	State       State          `json:"state"`
	Mode        Mode           `json:"mode"`
	Processing  bool           `json:"processing"`
	Loading     bool           `json:"loading"`
	Generation  uint64         `json:"generation"`
	Annotations map[int]string `json:"annotations,omitempty"`
	Err         string         `json:"error,omitempty"`
}

// Status returns the engine's current state, flags and per-node error
// annotations.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		State:       e.state,
		Mode:        e.mode,
		Processing:  e.state == StateRunning,
		Loading:     e.loading,
		Generation:  e.generation,
		Annotations: e.graph.Annotations(),
	}
	if e.lastErr != nil {
		s.Err = e.lastErr.Error()
	}
	return s
}

// IsProcessing reports whether a pass is currently running.
func (e *Engine) IsProcessing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateRunning
}

// IsLoading reports the externally supplied loading flag.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// SetLoading records whether the surrounding application is still loading
// its dataset. The flag is surfaced through [Engine.Status] untouched.
func (e *Engine) SetLoading(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = v
}

// Mode returns the current trigger mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode switches between auto and manual triggering. Switching to manual
// cancels a pending debounce timer; nothing dispatches until the next
// explicit [Engine.Run].
func (e *Engine) SetMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m != ModeAuto && m != ModeManual {
		return
	}
	e.mode = m
	if m == ModeManual {
		e.cancelTimerLocked()
		if e.state == StatePending {
			e.state = StateIdle
		}
		e.notifyLocked()
	}
}

// Generation returns the current dispatch generation.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Snapshot returns a deep copy of the live graph, for serialization or
// export without holding up the engine.
func (e *Engine) Snapshot() *dataflow.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// ===== Edits =====

// AddNode adds a node to the graph. A successful add is a structural edit:
// in auto mode it cancels any pending timer and dispatches immediately.
func (e *Engine) AddNode(n dataflow.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.AddNode(n); err != nil {
		return err
	}
	e.structuralEditLocked()
	return nil
}

// RemoveNode removes a node and its edges. A successful removal is a
// structural edit.
func (e *Engine) RemoveNode(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.RemoveNode(id); err != nil {
		return err
	}
	e.structuralEditLocked()
	return nil
}

// Connect adds an edge. An edge that would make the graph cyclic is
// rejected with [dataflow.ErrGraphHasCycle] and leaves the graph
// unchanged. A successful connect is a structural edit.
func (e *Engine) Connect(edge dataflow.Edge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.Connect(edge); err != nil {
		return err
	}
	if err := e.graph.Validate(); err != nil {
		e.graph.Disconnect(edge)
		return err
	}
	e.structuralEditLocked()
	return nil
}

// Disconnect removes an edge if present. It always counts as a structural
// edit, mirroring editors that fire a change event for the gesture itself.
func (e *Engine) Disconnect(edge dataflow.Edge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph.Disconnect(edge)
	e.structuralEditLocked()
}

// SetParam sets one node-local parameter. In auto mode a successful edit
// arms (or re-arms) the debounce timer.
func (e *Engine) SetParam(id int, key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.SetParam(id, key, value); err != nil {
		return err
	}
	e.paramEditLocked()
	return nil
}

// SetName changes a node's display name. Display names do not affect
// results, so the edit debounces like a parameter change rather than
// dispatching immediately.
func (e *Engine) SetName(id int, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.graph.Node(id)
	if !ok {
		return fmt.Errorf("%w: %d", dataflow.ErrUnknownNode, id)
	}
	n.Name = name
	e.paramEditLocked()
	return nil
}

// Run dispatches a pass immediately in any mode, canceling a pending
// debounce timer. In manual mode this is the only way a pass starts.
func (e *Engine) Run() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimerLocked()
	e.dispatchLocked()
}

// ===== Triggering =====

// paramEditLocked arms or re-arms the debounce timer in auto mode. While a
// pass is running the engine stays in running state; the timer fires
// regardless and its dispatch supersedes the in-flight pass.
func (e *Engine) paramEditLocked() {
	if e.mode != ModeAuto || e.closed {
		return
	}
	e.cancelTimerLocked()
	e.armSeq++
	seq := e.armSeq
	e.timer = time.AfterFunc(e.debounce, func() { e.timerFired(seq) })
	if e.state == StateIdle {
		e.state = StatePending
	}
	e.notifyLocked()
}

// structuralEditLocked dispatches immediately in auto mode, canceling any
// pending timer first.
func (e *Engine) structuralEditLocked() {
	if e.mode != ModeAuto || e.closed {
		return
	}
	e.cancelTimerLocked()
	e.dispatchLocked()
}

// timerFired runs when a debounce delay elapses. A timer re-armed or
// canceled after this one was set carries a newer sequence number, which
// makes this firing a no-op.
func (e *Engine) timerFired(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.armSeq || e.closed {
		return
	}
	e.timer = nil
	e.dispatchLocked()
}

// cancelTimerLocked stops a pending debounce timer and invalidates its
// sequence so a concurrent firing is ignored.
func (e *Engine) cancelTimerLocked() {
	e.armSeq++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// dispatchLocked starts a new pass: it advances the generation (which
// supersedes any in-flight pass), snapshots the graph and hands the
// snapshot to a worker goroutine.
func (e *Engine) dispatchLocked() {
	if e.closed {
		return
	}
	e.generation++
	gen := e.generation
	e.state = StateRunning
	snap := e.graph.Snapshot()
	e.inflight++
	e.notifyLocked()

	observability.Engine().OnPassStart(context.Background(), gen, snap.NodeCount())
	e.logger.Debug("pass dispatched", "generation", gen, "nodes", snap.NodeCount())

	go e.runPass(gen, snap)
}

// runPass evaluates a snapshot off the interactive thread and applies or
// discards the result.
func (e *Engine) runPass(gen uint64, snap *dataflow.Graph) {
	ctx := context.Background()
	res := Evaluate(ctx, snap, e.pass)
	res.Generation = gen

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight--

	if gen != e.generation {
		// Superseded while running: contribute nothing.
		observability.Engine().OnPassDiscarded(ctx, gen)
		e.logger.Debug("pass discarded", "generation", gen, "current", e.generation)
		e.notifyLocked()
		return
	}

	e.applyLocked(ctx, res)
	observability.Engine().OnPassComplete(ctx, gen, res.Failed, res.Duration, res.Err)
	e.notifyLocked()
}

// applyLocked applies a still-current pass: node annotations first, then
// the staged sink saves, then the state transition back to idle (or
// pending, when a timer re-armed during the pass). Annotations for nodes
// removed since the snapshot are skipped.
func (e *Engine) applyLocked(ctx context.Context, res *Result) {
	e.lastErr = res.Err

	for id, msg := range res.Nodes {
		if msg == "" {
			_ = e.graph.ClearAnnotation(id)
			continue
		}
		_ = e.graph.Annotate(id, msg)
	}

	for _, s := range res.Saves {
		err := s.Save(ctx, s.NodeID, s.Grid)
		observability.Engine().OnSave(ctx, s.NodeID, string(s.Grid.Type()), err)
		if err != nil {
			_ = e.graph.Annotate(s.NodeID, fmt.Sprintf("save failed: %v", err))
			e.logger.Warn("sink save failed", "node", s.NodeID, "err", err)
		}
	}

	e.state = StateIdle
	if e.timer != nil {
		e.state = StatePending
	}

	if res.Err != nil {
		e.logger.Warn("pass failed", "generation", res.Generation, "err", res.Err)
		return
	}
	e.logger.Info("pass applied",
		"generation", res.Generation,
		"nodes", len(res.Nodes),
		"failed", res.Failed,
		"saves", len(res.Saves),
		"duration", res.Duration)
}

// notifyLocked wakes everything blocked in [Engine.Wait].
func (e *Engine) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})
}

// quietLocked reports whether nothing is pending, running or in flight.
func (e *Engine) quietLocked() bool {
	return e.state != StateRunning && e.timer == nil && e.inflight == 0
}

// Wait blocks until the engine is quiet: no armed timer, no running pass
// and no superseded pass still draining. It returns early with the
// context's error if ctx is done first.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.quietLocked() {
			e.mu.Unlock()
			return nil
		}
		ch := e.changed
		e.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any pending timer, refuses further dispatches and waits
// for in-flight passes to drain. Already-superseded passes finish and are
// discarded; the current pass, if any, still applies.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.cancelTimerLocked()
	if e.state == StatePending {
		e.state = StateIdle
	}
	e.notifyLocked()
	for e.inflight > 0 {
		ch := e.changed
		e.mu.Unlock()
		<-ch
		e.mu.Lock()
	}
	e.mu.Unlock()
	return nil
}
