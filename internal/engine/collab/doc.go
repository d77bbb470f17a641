// Package collab implements the client side of collaborative editing and an
// in-memory ordering authority.
//
// Every client keeps the version of the shared step log it has seen and the
// local steps the authority has not yet confirmed. Local steps are sent
// together with that version. When steps from the authority arrive, those
// the client sent itself are stripped off as confirmed, and the remaining
// unconfirmed steps are rebased over the rest: undone, the remote steps
// applied, and the local steps mapped forward and re-applied. Local steps
// that no longer apply are dropped and counted.
//
// Because every client applies the authority's steps in the same order and
// rebases its own on top, all clients converge on the same document once
// the log stops growing.
package collab
