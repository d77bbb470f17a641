// Package engine provides the editor state facade for Prosecore.
//
// The engine package ties the document model, selections, undo history and
// collaboration state together into one immutable State value. Every change
// is made through a Transaction and applied with State.Apply, which returns
// the next State and leaves the old one untouched.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - model: schema, nodes, fragments, marks, slices and resolved positions
//   - transform: steps, step maps, mappings and the Transform builder
//   - selection: text, node and all selections that follow document changes
//   - history: undo/redo branches that survive remote changes
//   - collab: unconfirmed local steps, rebasing and the ordering authority
//
// Editor wraps a State for callers that share one editing session between
// goroutines. State itself needs no locking.
//
// # Basic Usage
//
//	st, _ := engine.NewState(doc)
//	tr := st.Tr()
//	_ = tr.InsertText("hello", 1, 1)
//	st, _ = st.Apply(tr)
//
//	st, ok := st.Undo() // back to doc
//
// # Collaboration
//
// A State created with WithCollab tracks the local steps the authority has
// not confirmed yet:
//
//	if send := st.SendableSteps(); send != nil {
//	    err := authority.Submit(send.Version, send.Steps, send.ClientID)
//	    ...
//	}
//	steps, ids, _ := authority.StepsSince(st.Version())
//	st, _ = st.Receive(steps, ids)
//
// Receive confirms the session's own steps, applies the others and rebases
// whatever is still pending on top of them. Steps lost during rebasing are
// counted in the collab state and logged at warn level.
package engine
