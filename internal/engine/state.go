package engine

import (
	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/history"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// State is an immutable editor state.
type State struct {
	Doc       *model.Node
	Selection selection.Selection
	// History is nil when the state was created WithoutHistory.
	History *history.State
	// Collab is nil unless the state was created WithCollab.
	Collab *collab.State

	cfg *config
}

// NewState creates a state for doc. The document is checked against its
// schema first.
func NewState(doc *model.Node, opts ...Option) (*State, error) {
	if err := doc.Check(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	st := &State{Doc: doc, Selection: o.selection, cfg: o.config()}
	if st.Selection == nil {
		st.Selection = selection.AtStart(doc)
	}
	if !o.noHistory {
		st.History = history.NewState()
	}
	if o.collab {
		st.Collab = collab.NewState(o.version)
	}
	return st, nil
}

// Schema returns the schema of the state's document.
func (s *State) Schema() *model.Schema { return s.Doc.Type.Schema }

// ClientID returns the collaboration client ID, or "" without collaboration.
func (s *State) ClientID() string { return s.cfg.clientID }

// Version returns the number of authority steps the state has seen.
func (s *State) Version() int {
	if s.Collab == nil {
		return 0
	}
	return s.Collab.Version
}

// UndoDepth returns the number of undoable events.
func (s *State) UndoDepth() int {
	if s.History == nil {
		return 0
	}
	return s.History.UndoDepth()
}

// RedoDepth returns the number of redoable events.
func (s *State) RedoDepth() int {
	if s.History == nil {
		return 0
	}
	return s.History.RedoDepth()
}

// Tr starts a transaction on the state.
func (s *State) Tr() *Transaction {
	return newTransaction(s)
}

// Apply applies a transaction and returns the new state.
func (s *State) Apply(tr *Transaction) (*State, error) {
	if tr.Before() != s.Doc {
		return nil, ErrMismatchedTransaction
	}
	next := &State{
		Doc:       tr.Doc,
		Selection: tr.Selection(),
		History:   s.History,
		Collab:    s.Collab,
		cfg:       s.cfg,
	}

	switch {
	case tr.history != nil:
		next.History = tr.history
	case s.History != nil:
		next.History = s.History.Apply(tr.Transform, history.Meta{
			AddToHistory:    tr.addToHistory,
			CloseHistory:    tr.closeHistory,
			Rebased:         tr.rebased,
			Time:            tr.Time,
			SelectionBefore: s.Selection.Bookmark(),
		}, s.cfg.history)
	}

	switch {
	case tr.collabState != nil:
		next.Collab = tr.collabState
	case s.Collab != nil:
		next.Collab = s.Collab.Apply(tr.Transform)
	}
	return next, nil
}

// CloseHistory ends the current undo event so that the next change starts
// a new one.
func (s *State) CloseHistory() *State {
	if s.History == nil {
		return s
	}
	next := *s
	next.History = s.History.Close()
	return &next
}

// Undo reverts the last undo event. It returns the state unchanged and
// false when there is nothing to undo.
func (s *State) Undo() (*State, bool) {
	return s.histOp(false)
}

// Redo reapplies the last undone event. It returns the state unchanged and
// false when there is nothing to redo.
func (s *State) Redo() (*State, bool) {
	return s.histOp(true)
}

func (s *State) histOp(redo bool) (*State, bool) {
	if s.History == nil {
		return s, false
	}
	op, name := s.History.Undo, "undo"
	if redo {
		op, name = s.History.Redo, "redo"
	}
	res, err := op(s.Doc, s.Selection.Bookmark(), s.cfg.history)
	if err != nil {
		return s, false
	}
	if res.Skipped > 0 {
		s.cfg.logger.WithField("skipped", res.Skipped).Debug("%s skipped steps that no longer apply", name)
	}

	tr := &Transaction{
		Transform: res.Transform,
		Time:      s.cfg.clock(),
		history:   res.History,
	}
	tr.SetSelection(res.Selection.Resolve(res.Transform.Doc))
	next, err := s.Apply(tr)
	if err != nil {
		return s, false
	}
	return next, true
}

// SendableSteps returns the local steps the authority has not confirmed,
// or nil when there are none or collaboration is disabled.
func (s *State) SendableSteps() *collab.Sendable {
	if s.Collab == nil {
		return nil
	}
	return s.Collab.SendableSteps(s.cfg.clientID)
}

// Receive applies steps from the authority. clientIDs holds the client
// that submitted each step.
func (s *State) Receive(steps []transform.Step, clientIDs []string) (*State, error) {
	if s.Collab == nil {
		return nil, ErrCollabDisabled
	}
	res, err := s.Collab.Receive(s.Doc, steps, clientIDs, s.cfg.clientID)
	if err != nil {
		return nil, err
	}
	if res.Dropped > 0 {
		s.cfg.logger.WithFields(map[string]any{
			"clientID": s.cfg.clientID,
			"version":  res.State.Version,
			"dropped":  res.Dropped,
		}).Warn("dropped steps while rebasing")
	}
	tr := &Transaction{
		Transform:   res.Transform,
		Time:        s.cfg.clock(),
		curSel:      s.Selection,
		rebased:     res.Rebased,
		collabState: res.State,
	}
	return s.Apply(tr)
}

// ReceiveJSON decodes a JSON array of steps and receives them.
func (s *State) ReceiveJSON(steps []byte, clientIDs []string) (*State, error) {
	decoded, err := transform.StepsFromJSON(s.Schema(), steps)
	if err != nil {
		return nil, err
	}
	return s.Receive(decoded, clientIDs)
}
