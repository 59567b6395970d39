// Package workflow implements the graph construction engine.
//
// The Engine owns the canvas (a graphstore.Store), the session and the
// selection state, and is the only writer to any of them. Each user gesture
// runs as an explicit state machine:
//
// # Component creation
//
//	Idle -> AwaitingSubtypeChoice -> AwaitingName -> Committing -> Idle
//	Idle -> AwaitingName -> Committing -> Idle
//
// Nothing is inserted until the remote service has created the component.
//
// # Connection
//
//	Idle -> OptimisticPlaced -> SuggestionPending
//	     -> ResolvedSingle | AwaitingDisambiguation
//	     -> Validating -> Committing -> Idle
//
// An optimistic edge labelled "connecting" is placed immediately and is either
// replaced by the confirmed edge in one store operation or removed.
//
// # Outcomes
//
// Every terminal state produces exactly one notification on the configured
// notify.Sink. Engine methods then return the error that drove the outcome;
// Classify maps it onto the error taxonomy.
//
// At most one workflow of each kind advances at a time. Later gestures of the
// same kind queue behind it; a queued connection keeps its optimistic edge
// visible while it waits.
package workflow
