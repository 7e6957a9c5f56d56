// Package project persists dataflow graphs as project documents.
//
// A Project is the durable form of a graph: nodes with their kind tags and
// parameters, edges, the trigger mode, and a schema version for forward
// compatibility. Documents carry both JSON and BSON tags so the same
// structs travel to files and to MongoDB.
//
// Node annotations are deliberately not persisted. They describe the
// outcome of the last evaluation pass, which is recomputed on load.
package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rastermill/rastermill/pkg/dataflow"
)

// SchemaVersion is the document schema this package reads and writes.
const SchemaVersion = 1

// Sentinel errors for project operations.
var (
	// ErrNotFound is returned when no project exists for the ID.
	ErrNotFound = errors.New("project not found")

	// ErrSchema is returned by Decode when the document's schema version
	// is not one this build understands.
	ErrSchema = errors.New("unsupported project schema version")
)

// Project is a persisted dataflow graph plus its trigger settings.
type Project struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Schema    int       `json:"schema" bson:"schema"`
	Mode      string    `json:"mode" bson:"mode"`
	Nodes     []NodeDoc `json:"nodes" bson:"nodes"`
	Edges     []EdgeDoc `json:"edges" bson:"edges"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NodeDoc is the persisted form of one graph node.
type NodeDoc struct {
	ID     int            `json:"id" bson:"id"`
	Kind   string         `json:"kind" bson:"kind"`
	Name   string         `json:"name" bson:"name"`
	Params map[string]any `json:"params,omitempty" bson:"params,omitempty"`
}

// EdgeDoc is the persisted form of one graph edge.
type EdgeDoc struct {
	From   int    `json:"from" bson:"from"`
	Output string `json:"output" bson:"output"`
	To     int    `json:"to" bson:"to"`
	Input  string `json:"input" bson:"input"`
}

// Store is the interface for project storage backends.
type Store interface {
	// Save stores p under its ID, replacing any previous version.
	Save(ctx context.Context, p *Project) error

	// Load retrieves the project with the given ID, or ErrNotFound.
	Load(ctx context.Context, id string) (*Project, error)

	// Delete removes the project with the given ID. Deleting an absent
	// project is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// New creates an empty project with a fresh UUID, the current schema
// version and automatic triggering.
func New(name string) *Project {
	return &Project{
		ID:     uuid.NewString(),
		Name:   name,
		Schema: SchemaVersion,
		Mode:   "auto",
	}
}

// Encode captures g into p, replacing any previously captured nodes and
// edges and stamping UpdatedAt.
func (p *Project) Encode(g *dataflow.Graph) {
	nodes := g.Nodes()
	p.Nodes = make([]NodeDoc, 0, len(nodes))
	for _, n := range nodes {
		p.Nodes = append(p.Nodes, NodeDoc{
			ID:     n.ID,
			Kind:   n.Kind,
			Name:   n.Name,
			Params: n.Params,
		})
	}
	edges := g.Edges()
	p.Edges = make([]EdgeDoc, 0, len(edges))
	for _, e := range edges {
		p.Edges = append(p.Edges, EdgeDoc(e))
	}
	p.UpdatedAt = time.Now().UTC()
}

// Decode rebuilds the stored graph against reg. Unknown kinds, invalid
// sockets and duplicate IDs surface as errors naming the offending node
// or edge.
func (p *Project) Decode(reg *dataflow.Registry) (*dataflow.Graph, error) {
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSchema, p.Schema)
	}
	g := dataflow.New(reg)
	for _, nd := range p.Nodes {
		n := dataflow.Node{
			ID:     nd.ID,
			Kind:   nd.Kind,
			Name:   nd.Name,
			Params: dataflow.Params(nd.Params),
		}
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", nd.ID, nd.Kind, err)
		}
	}
	for _, ed := range p.Edges {
		if err := g.Connect(dataflow.Edge(ed)); err != nil {
			return nil, fmt.Errorf("edge %d.%s -> %d.%s: %w",
				ed.From, ed.Output, ed.To, ed.Input, err)
		}
	}
	return g, nil
}
