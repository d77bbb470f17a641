package engine

import (
	"time"

	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/history"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Transaction is a Transform that also carries a selection and metadata
// for the history and collaboration layers. Create one with State.Tr.
type Transaction struct {
	*transform.Transform

	// Time stamps the transaction for history grouping.
	Time time.Time

	curSel       selection.Selection
	curSelFor    int
	selSet       bool
	addToHistory bool
	closeHistory bool

	// Set on transactions built by the engine itself.
	rebased     int
	collabState *collab.State
	history     *history.State
}

func newTransaction(st *State) *Transaction {
	return &Transaction{
		Transform:    transform.New(st.Doc),
		Time:         st.cfg.clock(),
		curSel:       st.Selection,
		addToHistory: true,
	}
}

// Selection returns the transaction's selection, mapped through the steps
// added since it was set.
func (tr *Transaction) Selection() selection.Selection {
	if tr.curSelFor < len(tr.Steps) {
		tr.curSel = tr.curSel.Map(tr.Doc, tr.Mapping.SliceFrom(tr.curSelFor))
		tr.curSelFor = len(tr.Steps)
	}
	return tr.curSel
}

// SetSelection sets the selection. It must point into the current document.
func (tr *Transaction) SetSelection(sel selection.Selection) *Transaction {
	tr.curSel = sel
	tr.curSelFor = len(tr.Steps)
	tr.selSet = true
	return tr
}

// SelectionSet reports whether SetSelection was called.
func (tr *Transaction) SelectionSet() bool { return tr.selSet }

// SetAddToHistory controls whether undo history records the transaction.
func (tr *Transaction) SetAddToHistory(add bool) *Transaction {
	tr.addToHistory = add
	return tr
}

// AddToHistory reports whether undo history records the transaction.
func (tr *Transaction) AddToHistory() bool { return tr.addToHistory }

// CloseHistory starts a new undo event with this transaction.
func (tr *Transaction) CloseHistory() *Transaction {
	tr.closeHistory = true
	return tr
}

// ReplaceSelection replaces the selection with text. The mapped selection
// ends up after the inserted text.
func (tr *Transaction) ReplaceSelection(text string) error {
	sel := tr.Selection()
	return tr.InsertText(text, sel.From(), sel.To())
}

// DeleteSelection removes the selected content.
func (tr *Transaction) DeleteSelection() error {
	sel := tr.Selection()
	if sel.Empty() {
		return nil
	}
	return tr.Delete(sel.From(), sel.To())
}
