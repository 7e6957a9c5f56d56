// Package dataflow defines the processing graph that turns tile grids into
// derived tile grids: nodes select registered transform kinds, typed edges
// carry grids between their sockets.
//
// # Kinds
//
// A [Kind] declares its sockets and parameters through [Kind.Spec] and
// implements a pure transform in [Kind.Evaluate]. Kinds are registered in a
// [Registry] keyed by tag; a [Graph] resolves specs through its registry
// when nodes are added and edges connected, so socket names and type
// compatibility are enforced at build time rather than during evaluation.
//
// # Inputs and Outputs
//
// An input socket may be fed by any number of edges. The transform receives
// every connected value in edge insertion order as [Inputs]; an unconnected
// socket resolves to an empty list, which kinds with required inputs report
// as a node-local error. Transforms return [Outputs] holding the value
// lists for each output socket.
//
// # Purity
//
// Transforms run on a worker goroutine while the editor keeps mutating the
// live graph, which is why [Kind.Evaluate] must depend only on its inputs
// and parameters. Effects that must not happen for superseded passes, such
// as persisting a sink's grid, are staged through [EvalContext.StageSave]
// and executed by the engine only when the pass is applied.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. The evaluation engine serializes
// access by mutating only on its caller's thread and handing
// [Graph.Snapshot] copies to worker passes.
package dataflow
