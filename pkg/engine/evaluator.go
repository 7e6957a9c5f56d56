package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rastermill/rastermill/pkg/cache"
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/observability"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// Result is the outcome of one evaluation pass over a graph snapshot.
// Nothing in a Result has touched the live graph yet; the engine applies or
// discards it depending on whether the pass's generation is still current.
type Result struct {
	// Generation identifies the dispatch that produced this pass.
	Generation uint64

	// Nodes maps every node of the snapshot to its error message, with ""
	// marking success. Applying the result turns these entries into node
	// annotations (set on error, cleared on success).
	Nodes map[int]string

	// Saves holds the sink saves staged during the pass. They execute
	// only in the apply step of a still-current pass, so a superseded
	// pass never persists anything.
	Saves []dataflow.StagedSave

	// Failed counts nodes that reported a node-local error.
	Failed int

	// Duration is the wall time of the pass.
	Duration time.Duration

	// Err is set only for errors fatal to the whole pass, which means
	// structural problems such as a cycle. Node-local errors are isolated
	// in Nodes and never abort a pass.
	Err error
}

// PassConfig carries the optional collaborators of [Evaluate]. The zero
// value runs an uncached pass with the default logger.
type PassConfig struct {
	// Logger receives pass logging. Defaults to [log.Default].
	Logger *log.Logger

	// Cache, when set, stores node results keyed by kind, parameters and
	// input grids so unchanged nodes skip re-evaluation. Nil disables
	// result caching entirely.
	Cache cache.Cache

	// Keyer derives cache keys. Defaults to [cache.NewDefaultKeyer].
	Keyer cache.Keyer
}

// Evaluate runs one evaluation pass over a graph snapshot: it orders the
// nodes by dependency, invokes each node's transform with the values
// gathered from its predecessors, and records per-node outcomes.
//
// A node whose transform fails gets its error recorded and its outputs
// cleared; evaluation continues, so downstream nodes observe an empty input
// list and typically report their own missing-input error. The only fatal
// condition is a structurally invalid snapshot.
//
// With a cache configured, output-producing nodes are looked up before
// their transform runs and stored after it succeeds. Nodes without output
// sockets (sinks) always run, since their work is the staged side effect.
func Evaluate(ctx context.Context, snap *dataflow.Graph, cfg PassConfig) *Result {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}

	start := time.Now()
	res := &Result{Nodes: make(map[int]string, snap.NodeCount())}

	if err := snap.Validate(); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	reg := snap.Registry()
	edges := snap.Edges()
	outputs := make(map[int]dataflow.Outputs, snap.NodeCount())

	for _, n := range topoOrder(snap) {
		kind, ok := reg.Lookup(n.Kind)
		if !ok {
			res.Nodes[n.ID] = fmt.Sprintf("unknown kind %q", n.Kind)
			res.Failed++
			continue
		}

		spec := kind.Spec()
		in := gatherInputs(spec, n.ID, edges, outputs)

		var key string
		if cfg.Cache != nil && len(spec.Outputs) > 0 {
			k, err := resultKey(cfg.Keyer, n, spec, in)
			if err == nil {
				key = k
				if out, hit := cacheLookup(ctx, cfg.Cache, key); hit {
					observability.Cache().OnCacheHit(ctx, n.Kind)
					outputs[n.ID] = out
					res.Nodes[n.ID] = ""
					continue
				}
				observability.Cache().OnCacheMiss(ctx, n.Kind)
			}
		}

		ec := dataflow.NewEvalContext(n.ID, cfg.Logger)

		nodeStart := time.Now()
		out, err := kind.Evaluate(ec, in, n.Params)
		observability.Engine().OnNodeEvaluated(ctx, n.Kind, time.Since(nodeStart), err)

		if err != nil {
			res.Nodes[n.ID] = err.Error()
			res.Failed++
			cfg.Logger.Debug("node transform failed", "node", n.ID, "kind", n.Kind, "err", err)
			continue
		}
		outputs[n.ID] = out
		res.Saves = append(res.Saves, ec.StagedSaves()...)
		res.Nodes[n.ID] = ""

		// Results with staged side effects stay uncached; a hit would
		// silently skip the effect.
		if key != "" && len(ec.StagedSaves()) == 0 {
			if data, err := encodeOutputs(out); err == nil {
				if err := cfg.Cache.Set(ctx, key, data, cache.TTLResult); err == nil {
					observability.Cache().OnCacheSet(ctx, n.Kind, len(data))
				}
			}
		}
	}

	res.Duration = time.Since(start)
	return res
}

// topoOrder returns the snapshot's nodes in dependency order using Kahn's
// algorithm. Ties resolve in node insertion order, and successors are
// visited in edge insertion order, so repeated passes over the same graph
// evaluate identically. The caller has already checked acyclicity.
func topoOrder(g *dataflow.Graph) []*dataflow.Node {
	nodes := g.Nodes()
	byID := make(map[int]*dataflow.Node, len(nodes))
	indegree := make(map[int]int, len(nodes))
	succ := make(map[int][]int, len(nodes))

	for _, n := range nodes {
		byID[n.ID] = n
		indegree[n.ID] = 0
	}
	for _, e := range g.Edges() {
		indegree[e.To]++
		succ[e.From] = append(succ[e.From], e.To)
	}

	queue := make([]int, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]*dataflow.Node, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, byID[id])
		for _, next := range succ[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return order
}

// gatherInputs resolves the value list for each declared input socket from
// already-evaluated predecessor outputs. Edges from failed or unconnected
// predecessors contribute nothing, leaving the socket list empty.
func gatherInputs(spec dataflow.Spec, nodeID int, edges []dataflow.Edge, outputs map[int]dataflow.Outputs) dataflow.Inputs {
	in := make(dataflow.Inputs, len(spec.Inputs))
	for _, s := range spec.Inputs {
		in[s.Name] = nil
		for _, e := range edges {
			if e.To != nodeID || e.Input != s.Name {
				continue
			}
			outs, ok := outputs[e.From]
			if !ok {
				continue
			}
			in[s.Name] = append(in[s.Name], outs[e.Output]...)
		}
	}
	return in
}

// resultKey derives the cache key for one node from its kind, parameters
// and the wire encoding of its resolved inputs in declared socket order.
func resultKey(keyer cache.Keyer, n *dataflow.Node, spec dataflow.Spec, in dataflow.Inputs) (string, error) {
	params, err := json.Marshal(n.Params)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, s := range spec.Inputs {
		buf.WriteString(s.Name)
		for _, g := range in[s.Name] {
			data, err := tilegrid.Marshal(g)
			if err != nil {
				return "", err
			}
			buf.Write(data)
		}
	}

	return keyer.ResultKey(n.Kind, cache.ResultKeyOpts{
		ParamsHash: cache.Hash(params),
		InputsHash: cache.Hash(buf.Bytes()),
	}), nil
}

// cacheLookup fetches and decodes a cached result. Errors and undecodable
// entries degrade to a miss so a bad cache never fails a pass.
func cacheLookup(ctx context.Context, c cache.Cache, key string) (dataflow.Outputs, bool) {
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	out, err := decodeOutputs(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

// encodeOutputs packs a node's outputs as a JSON object of socket name to
// tagged grid list, the same per-grid wire format used everywhere else.
func encodeOutputs(out dataflow.Outputs) ([]byte, error) {
	enc := make(map[string][]json.RawMessage, len(out))
	for socket, grids := range out {
		msgs := make([]json.RawMessage, len(grids))
		for i, g := range grids {
			data, err := tilegrid.Marshal(g)
			if err != nil {
				return nil, err
			}
			msgs[i] = data
		}
		enc[socket] = msgs
	}
	return json.Marshal(enc)
}

func decodeOutputs(data []byte) (dataflow.Outputs, error) {
	var enc map[string][]json.RawMessage
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, err
	}
	out := make(dataflow.Outputs, len(enc))
	for socket, msgs := range enc {
		grids := make([]tilegrid.Grid, len(msgs))
		for i, m := range msgs {
			g, err := tilegrid.Unmarshal(m)
			if err != nil {
				return nil, err
			}
			grids[i] = g
		}
		out[socket] = grids
	}
	return out, nil
}
