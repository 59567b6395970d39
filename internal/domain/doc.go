// Package domain defines the core types of the archcanvas system-design canvas.
//
// This package contains the entities and value objects shared by the graph
// store, the remote service client and the workflow engine.
//
// # Core Types
//
// ComponentNode is a system-design building block (database, cache, queue, ...)
// that exists on the canvas only after the remote service created it.
//
// LinkEdge is a directed interaction between two components. A LinkEdge may be
// optimistic: a visual placeholder inserted the moment a connect gesture
// completes and later replaced by the confirmed edge or removed.
//
// Canvas is a deep-copied snapshot of the whole graph, used for export,
// persistence and rollback checks.
//
// # Pending Operations
//
// PendingComponentCreation, PendingComponentWithSubtype and PendingConnection
// record user workflows that have started but not yet committed.
//
// # Design Principles
//
// - No network, database or UI dependencies
// - Fixed enumerations for component and link types
// - Heuristics are opaque remote payloads, carried verbatim
package domain
