// Package history provides undo/redo for the editing engine.
//
// History records the inverse of every step applied to a document, grouped
// into events. Key concepts:
//
// # Items and Branches
//
// An Item holds one step map and, for local changes, the inverted step that
// undoes it. Items that start an event also carry a selection bookmark.
// Items without a step record changes made by others (remote steps, edits
// applied with addToHistory disabled); they are needed to map older inverted
// steps forward when those are finally undone.
//
// A Branch is a persistent sequence of items stored in a finger tree
// measured by item, event and map-only counts, so the start of the last
// event and cut-off points are found by splitting rather than scanning.
//
// # History State
//
// State holds the done and undone branches:
//
//	h := history.NewState()
//	h = h.Apply(tr, history.Meta{AddToHistory: true, Time: now, SelectionBefore: sel.Bookmark()}, cfg)
//
//	// Undo produces a transform that reverts the last event.
//	res, err := h.Undo(doc, sel.Bookmark(), cfg)
//
// Consecutive changes join the current event unless the history was closed,
// the configured delay elapsed, or the change is not adjacent to the last.
//
// # Collaboration
//
// When unconfirmed local steps are rebased over remote ones, Rebased swaps
// the affected items for the rebased versions so undo keeps working.
// PreserveItems keeps every item separate, which collaborative sessions
// require.
package history
