// Package engine evaluates dataflow graphs off the interactive thread and
// decides when evaluation happens.
//
// # Passes
//
// One evaluation pass walks a snapshot of the graph in dependency order and
// invokes each node's transform. Node failures are isolated: the failing
// node gets an error annotation and empty outputs while the rest of the
// pass continues, so one broken parameter never blanks the whole graph.
// Only a structural problem (a cycle) fails a pass outright. With a result
// cache configured, nodes whose kind, parameters and inputs are unchanged
// restore their outputs from the cache instead of re-running.
//
// # Triggering
//
// The [Engine] wraps a graph and schedules passes around its edits. In auto
// mode a parameter edit arms a debounce timer ([DefaultDebounce]) and a
// structural edit dispatches immediately; in manual mode only [Engine.Run]
// dispatches. Every dispatch advances a generation counter and evaluates a
// fresh snapshot on a worker goroutine.
//
// # Staleness
//
// A dispatch while a pass is running supersedes it: the old pass keeps
// running but its generation no longer matches, so its results (including
// staged sink saves) are discarded at completion without touching any node
// state. Cancellation is purely this generation comparison; in-flight work
// is never interrupted.
//
// # Applying
//
// A still-current pass applies atomically under the engine lock: per-node
// annotations are set or cleared, then staged saves execute in order. Save
// callbacks run on the worker goroutine and must not call back into the
// engine.
package engine
