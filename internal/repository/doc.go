// Package repository defines the persistence interfaces for archcanvas.
//
// A session's canvas can be saved and restored so that a shell or server
// restart resumes where the user left off. The actual implementation is in
// the sqlite subpackage.
//
// # Repository Interface
//
// The Repository interface covers canvas snapshots, the session index and
// the notification journal. Snapshots hold confirmed entities only: an
// optimistic edge is a placeholder for a link that does not exist yet and
// is never written.
//
// # Journal
//
// Journal adapts a Repository to notify.Sink so that every workflow outcome
// is recorded alongside the canvas it changed.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
