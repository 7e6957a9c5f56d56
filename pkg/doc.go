// Package pkg provides the core libraries for Rastermill dataflow evaluation.
//
// # Overview
//
// Rastermill evaluates dataflow graphs over tiled raster layers: nodes
// transform grids of boolean, numeric or categorical cells, and sink nodes
// publish their results to a layer store. The pkg directory is organized
// into four main areas:
//
//  1. [tilegrid] - Grid data model (extents, resolution mapping, wire codec)
//  2. [dataflow] - Graph structure (typed sockets, kind registry, validation)
//  3. [engine] - Evaluation scheduling (debounce, generations, passes)
//  4. [kinds] - Built-in node kinds (sources, set algebra, sinks)
//
// # Architecture
//
// The typical data flow through Rastermill:
//
//	Project Document (JSON)
//	         ↓
//	    [project] package (decode against the kind registry)
//	         ↓
//	    [dataflow] package (typed graph + validation)
//	         ↓
//	    [engine] package (pass scheduling + evaluation)
//	         ↓
//	    [layerstore] package (published layers)
//
// # Quick Start
//
// Build a graph, evaluate it and read back the saved layer:
//
//	import (
//	    "context"
//	    "github.com/rastermill/rastermill/pkg/dataflow"
//	    "github.com/rastermill/rastermill/pkg/engine"
//	    "github.com/rastermill/rastermill/pkg/kinds"
//	    "github.com/rastermill/rastermill/pkg/layerstore"
//	)
//
//	// 1. Register the built-in kinds against a layer store
//	store := layerstore.NewMemoryStore()
//	reg := dataflow.NewRegistry()
//	kinds.Register(reg, store.Save)
//
//	// 2. Build the graph
//	g := dataflow.New(reg)
//	g.AddNode(dataflow.Node{ID: 1, Kind: "constant area"})
//	g.AddNode(dataflow.Node{ID: 2, Kind: "layer output"})
//	g.Connect(dataflow.Edge{From: 1, Output: "out", To: 2, Input: "in"})
//
//	// 3. Evaluate through the engine
//	eng := engine.New(g, engine.Config{Mode: engine.ModeManual})
//	eng.Run()
//	eng.Wait(context.Background())
//
//	// 4. Read the published layer
//	grid, _ := store.Get(context.Background(), 2)
//
// # Main Packages
//
// ## Data Model
//
// [tilegrid] - Tiled grids addressed by zoom/x/y with three cell types
// (boolean, numeric, categorical). Queries at a finer zoom than the grid
// resolve through floor-divide coordinate mapping; the tagged JSON wire
// codec is the cross-boundary contract for stores and the HTTP API.
//
// [dataflow] - The graph: nodes with kind tags and parameter bags, edges
// between typed sockets checked at connect time, cycle detection, and
// deep snapshots for evaluation.
//
// ## Evaluation
//
// [engine] - The scheduler. Parameter edits debounce, structural edits
// dispatch immediately, and every dispatch advances a generation so a
// superseded pass is discarded without touching node state. Passes
// evaluate a snapshot in dependency order and stage sink saves until the
// pass is applied.
//
// [kinds] - The built-in node library: "constant area" sources, boolean
// set algebra (union, intersection, invert), numeric arithmetic (scale,
// offset, sum, threshold, mask, rasterize), "paint category", "grid
// stats" and the "layer output" sink.
//
// [cache] - Content-addressed result caching keyed on (kind, params,
// input grids), with file, Redis and null backends.
//
// ## Persistence
//
// [layerstore] - Published layers behind the sink save callback. Memory
// and Redis backends; layers round-trip through the tilegrid wire codec.
//
// [project] - The project document: graph nodes/edges/params, trigger
// mode and schema version as JSON, with file and MongoDB stores.
//
// ## Supporting Packages
//
// [export] - DOT and SVG rendering of the graph structure via Graphviz.
//
// [observability] - Hook interfaces (engine, cache, store) with no-op
// defaults; the HTTP server installs Prometheus implementations.
//
// [errors] - Stable error codes for the server/CLI boundary.
//
// [httputil] - Shared JSON envelope helpers and retry with backoff.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Common Workflows
//
// Load a project document and evaluate it:
//
//	p, _ := project.ReadFile("coastline.json")
//	g, _ := p.Decode(reg)
//	eng := engine.New(g, engine.Config{Mode: engine.ModeManual})
//	eng.Run()
//	eng.Wait(ctx)
//
// React to edits the way an editor would:
//
//	eng := engine.New(g, engine.Config{Mode: engine.ModeAuto})
//	eng.SetParam(1, "zoom", 6) // debounces, then dispatches a pass
//	eng.Connect(edge)          // dispatches immediately
//
// Cache results across evaluations:
//
//	c, _ := cache.NewFileCache(dir)
//	eng := engine.New(g, engine.Config{
//	    Cache: c,
//	    Keyer: cache.NewScopedKeyer(cache.NewDefaultKeyer(), projectID),
//	})
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/engine/...   # Specific package
//	go test -run Example       # Examples only
//
// [tilegrid]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/tilegrid
// [dataflow]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/dataflow
// [engine]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/engine
// [kinds]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/kinds
// [cache]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/cache
// [layerstore]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/layerstore
// [project]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/project
// [export]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/export
// [observability]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/observability
// [errors]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/httputil
// [buildinfo]: https://pkg.go.dev/github.com/rastermill/rastermill/pkg/buildinfo
package pkg
