package engine

import (
	"errors"
	"sync"

	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/selection"
)

// Editor holds the current State of one editing session.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Editor struct {
	mu    sync.RWMutex
	state *State
}

// NewEditor creates an Editor for doc with the given options.
func NewEditor(doc *model.Node, opts ...Option) (*Editor, error) {
	st, err := NewState(doc, opts...)
	if err != nil {
		return nil, err
	}
	return &Editor{state: st}, nil
}

// NewEditorFromState creates an Editor that starts at st.
func NewEditorFromState(st *State) *Editor {
	return &Editor{state: st}
}

// ============================================================================
// Read Operations
// ============================================================================

// State returns the current state.
func (e *Editor) State() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Doc returns the current document.
func (e *Editor) Doc() *model.Node {
	return e.State().Doc
}

// Selection returns the current selection.
func (e *Editor) Selection() selection.Selection {
	return e.State().Selection
}

// ============================================================================
// Write Operations
// ============================================================================

// Dispatch builds a transaction with fn on the current state and applies
// it. Nothing changes when fn returns an error.
func (e *Editor) Dispatch(fn func(tr *Transaction) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr := e.state.Tr()
	if err := fn(tr); err != nil {
		return err
	}
	next, err := e.state.Apply(tr)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

// Undo reverts the last undo event. It reports false when there was
// nothing to undo.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.state.Undo()
	e.state = next
	return ok
}

// Redo reapplies the last undone event. It reports false when there was
// nothing to redo.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.state.Redo()
	e.state = next
	return ok
}

// CloseHistory ends the current undo event.
func (e *Editor) CloseHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.state.CloseHistory()
}

// ============================================================================
// Collaboration
// ============================================================================

// Pull receives every step the authority accepted since the editor's version.
func (e *Editor) Pull(a *collab.Authority) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pull(a)
}

func (e *Editor) pull(a *collab.Authority) error {
	if e.state.Collab == nil {
		return ErrCollabDisabled
	}
	steps, ids, err := a.StepsSince(e.state.Collab.Version)
	if err != nil {
		return err
	}
	next, err := e.state.Receive(steps, ids)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

// Sync submits the editor's unconfirmed steps to the authority, catching
// up and retrying while other clients are ahead, and then pulls until the
// local steps are confirmed.
func (e *Editor) Sync(a *collab.Authority) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		send := e.state.SendableSteps()
		if send == nil {
			return e.pull(a)
		}
		err := a.Submit(send.Version, send.Steps, send.ClientID)
		if err != nil && !errors.Is(err, collab.ErrVersionMismatch) {
			return err
		}
		if err := e.pull(a); err != nil {
			return err
		}
	}
}
