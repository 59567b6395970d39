// Package handler implements the HTTP front end for an archcanvas session.
//
// The front end drives one workflow.Engine. Gestures that open dialogs
// (dropping a component, connecting two components) block until the dialog
// is resolved; dialogs are exposed as prompts under /api/prompts and are
// answered by a separate request, typically from the same browser.
//
// # API Design
//
// Routes follow REST conventions and are served by a chi router:
// - GET for retrieval
// - POST for gestures and creation
// - PATCH/PUT for edits
// - DELETE for removal
//
// # Response Format
//
// Success responses return JSON with 200 or 201. A gesture the operator
// cancelled returns 204. Error responses return JSON with {error, details}
// and a status derived from the workflow error kind.
//
// # Server-Sent Events
//
// The /events endpoint streams graph, selection, prompt and notification
// events so that every open view follows the session.
package handler
