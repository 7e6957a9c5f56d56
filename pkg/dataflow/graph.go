package dataflow

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// not positive. All nodes carry positive integer identifiers.
	ErrInvalidNodeID = errors.New("node ID must be positive")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownKind is returned by [Graph.AddNode] when the node's kind
	// tag is not present in the graph's registry.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrUnknownNode is returned by [Graph.Connect], [Graph.RemoveNode],
	// [Graph.SetParam] and the annotation methods when a node ID does not
	// exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSocket is returned by [Graph.Connect] when the named
	// output or input socket is not declared by the endpoint's kind.
	ErrUnknownSocket = errors.New("unknown socket")

	// ErrSocketType is returned by [Graph.Connect] when the output
	// socket's type cannot feed the input socket's type.
	ErrSocketType = errors.New("incompatible socket types")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates graph
	// corruption, since [Graph.Connect] checks endpoints.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a directed
	// cycle is detected. Evaluation requires an acyclic graph; a cycle is
	// a structural error reported to the user, never silently tolerated.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Node is one processing step in a dataflow graph: a kind tag selecting its
// transform, a user-editable display name and a bag of node-local
// parameters. The engine records evaluation failures as an annotation on
// the node via [Graph.Annotate].
//
// The zero value is not usable - ID and Kind must be set before adding to a
// graph.
type Node struct {
	ID     int    // Unique positive identifier
	Kind   string // Kind tag, resolved through the graph's registry
	Name   string // Display name (defaults to the kind tag)
	Params Params // Node-local parameters (never nil after AddNode)

	annotation string
}

// Annotation returns the node's error annotation and whether one is set.
func (n *Node) Annotation() (string, bool) {
	return n.annotation, n.annotation != ""
}

// Edge connects one node's output socket to another node's input socket.
// An input socket may receive any number of edges; their values arrive in
// edge insertion order.
type Edge struct {
	From   int    `json:"from"`   // Source node ID
	Output string `json:"output"` // Source output socket name
	To     int    `json:"to"`     // Target node ID
	Input  string `json:"input"`  // Target input socket name
}

// Graph is a dataflow graph of typed processing nodes. Sockets are checked
// against the kind registry at connect time, so a well-formed graph can
// only fail structurally by containing a cycle.
//
// The zero value is not usable - use [New] to create a graph. A Graph is
// not safe for concurrent use; the engine mutates it only on the caller's
// thread and evaluates snapshots taken with [Graph.Snapshot].
type Graph struct {
	reg   *Registry
	nodes map[int]*Node
	order []int // node IDs in insertion order
	edges []Edge
}

// New creates an empty graph whose node kinds are resolved through reg.
func New(reg *Registry) *Graph {
	return &Graph{
		reg:   reg,
		nodes: make(map[int]*Node),
	}
}

// Registry returns the kind registry the graph was created with.
func (g *Graph) Registry() *Registry { return g.reg }

// AddNode adds a node to the graph. It returns [ErrInvalidNodeID] for a
// non-positive ID, [ErrDuplicateNodeID] if the ID is taken and
// [ErrUnknownKind] if the kind tag is not registered. A nil Params map is
// initialized and an empty Name defaults to the kind tag.
func (g *Graph) AddNode(n Node) error {
	if n.ID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeID, n.ID)
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateNodeID, n.ID)
	}
	if _, ok := g.reg.Lookup(n.Kind); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
	if n.Params == nil {
		n.Params = Params{}
	}
	if n.Name == "" {
		n.Name = n.Kind
	}
	node := &n
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	return nil
}

// RemoveNode deletes a node and every edge touching it. It returns
// [ErrUnknownNode] if the ID does not exist.
func (g *Graph) RemoveNode(id int) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(nid int) bool { return nid == id })
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.From == id || e.To == id })
	return nil
}

// Connect adds an edge after checking that both endpoints exist, that the
// named sockets are declared by the endpoint kinds and that the output
// socket's type can feed the input socket's type.
func (g *Graph) Connect(e Edge) error {
	from, ok := g.nodes[e.From]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, e.From)
	}
	to, ok := g.nodes[e.To]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, e.To)
	}

	out, ok := g.socket(from.Kind, e.Output, false)
	if !ok {
		return fmt.Errorf("%w: node %d has no output %q", ErrUnknownSocket, e.From, e.Output)
	}
	in, ok := g.socket(to.Kind, e.Input, true)
	if !ok {
		return fmt.Errorf("%w: node %d has no input %q", ErrUnknownSocket, e.To, e.Input)
	}
	if !Compatible(out.Type, in.Type) {
		return fmt.Errorf("%w: %s output cannot feed %s input", ErrSocketType, out.Type, in.Type)
	}

	g.edges = append(g.edges, e)
	return nil
}

// socket resolves a declared socket by name on the given kind.
func (g *Graph) socket(kind, name string, input bool) (Socket, bool) {
	k, ok := g.reg.Lookup(kind)
	if !ok {
		return Socket{}, false
	}
	spec := k.Spec()
	sockets := spec.Outputs
	if input {
		sockets = spec.Inputs
	}
	for _, s := range sockets {
		if s.Name == name {
			return s, true
		}
	}
	return Socket{}, false
}

// Disconnect removes the first edge matching e. Removing an edge that does
// not exist is a no-op.
func (g *Graph) Disconnect(e Edge) {
	if i := slices.Index(g.edges, e); i >= 0 {
		g.edges = slices.Delete(g.edges, i, i+1)
	}
}

// Node returns the node with the given ID and true, or nil and false.
// The pointer refers to the live node, so parameter and annotation changes
// are visible through the graph.
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the live node structs.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order, which is also the
// order in which multi-edge inputs deliver their values.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NextID returns one past the highest node ID in use, or 1 on an empty
// graph. Callers assembling graphs interactively use it to allocate IDs.
func (g *Graph) NextID() int {
	id := 1
	for _, nid := range g.order {
		if nid >= id {
			id = nid + 1
		}
	}
	return id
}

// SetParam sets one node-local parameter. It returns [ErrUnknownNode] if
// the ID does not exist.
func (g *Graph) SetParam(id int, key string, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n.Params[key] = value
	return nil
}

// Annotate sets a node's error annotation. It returns [ErrUnknownNode] if
// the ID does not exist, which callers applying a finished evaluation may
// treat as the node having been removed in the meantime.
func (g *Graph) Annotate(id int, msg string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n.annotation = msg
	return nil
}

// ClearAnnotation removes a node's error annotation, if any. It returns
// [ErrUnknownNode] if the ID does not exist.
func (g *Graph) ClearAnnotation(id int) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n.annotation = ""
	return nil
}

// Annotations returns the error annotations of all annotated nodes keyed
// by node ID.
func (g *Graph) Annotations() map[int]string {
	out := make(map[int]string)
	for id, n := range g.nodes {
		if n.annotation != "" {
			out[id] = n.annotation
		}
	}
	return out
}

// Snapshot returns a deep copy of the graph sharing only the registry.
// The engine snapshots at dispatch time so a running evaluation never
// observes concurrent edits.
func (g *Graph) Snapshot() *Graph {
	cp := &Graph{
		reg:   g.reg,
		nodes: make(map[int]*Node, len(g.nodes)),
		order: slices.Clone(g.order),
		edges: slices.Clone(g.edges),
	}
	for id, n := range g.nodes {
		node := *n
		node.Params = make(Params, len(n.Params))
		maps.Copy(node.Params, n.Params)
		cp.nodes[id] = &node
	}
	return cp
}

// Validate checks graph integrity and returns nil if the graph can be
// evaluated. It verifies that every edge connects existing nodes and that
// the graph is acyclic.
//
// Returns [ErrInvalidEdgeEndpoint] if an edge references a missing node or
// [ErrGraphHasCycle] if a directed cycle exists. Cycle detection runs in
// O(N+E) time using depth-first search.
func (g *Graph) Validate() error {
	outgoing := make(map[int][]int, len(g.nodes))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("%w: %d", ErrInvalidEdgeEndpoint, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("%w: %d", ErrInvalidEdgeEndpoint, e.To)
		}
		outgoing[e.From] = append(outgoing[e.From], e.To)
	}
	return detectCycles(g.order, outgoing)
}

func detectCycles(ids []int, outgoing map[int][]int) error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[int]int, len(ids))
	var hasCycle bool

	var dfs func(id int)
	dfs = func(id int) {
		color[id] = gray
		for _, next := range outgoing[id] {
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
