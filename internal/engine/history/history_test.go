package history

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/model/basic"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

var b = basic.NewBuilder()

// editor is a minimal document + selection + history loop.
type editor struct {
	t    *testing.T
	doc  *model.Node
	sel  selection.Selection
	hist *State
	cfg  Config
	now  time.Time
}

func newEditor(t *testing.T, doc *model.Node, cfg Config) *editor {
	return &editor{
		t:    t,
		doc:  doc,
		sel:  selection.AtStart(doc),
		hist: NewState(),
		cfg:  cfg,
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (e *editor) apply(tr *transform.Transform, addToHistory bool) {
	e.t.Helper()
	e.now = e.now.Add(10 * time.Millisecond)
	e.hist = e.hist.Apply(tr, Meta{AddToHistory: addToHistory, Time: e.now, SelectionBefore: e.sel.Bookmark()}, e.cfg)
	e.sel = e.sel.Map(tr.Doc, tr.Mapping)
	e.doc = tr.Doc
}

func (e *editor) edit(addToHistory bool, fn func(tr *transform.Transform) error) {
	e.t.Helper()
	tr := transform.New(e.doc)
	if err := fn(tr); err != nil {
		e.t.Fatal(err)
	}
	e.apply(tr, addToHistory)
}

func (e *editor) typeText(text string) {
	e.t.Helper()
	from, to := e.sel.From(), e.sel.To()
	e.edit(true, func(tr *transform.Transform) error { return tr.InsertText(text, from, to) })
}

func (e *editor) insertText(pos int, text string, addToHistory bool) {
	e.t.Helper()
	e.edit(addToHistory, func(tr *transform.Transform) error { return tr.InsertText(text, pos, pos) })
}

func (e *editor) split(pos int, addToHistory bool) {
	e.t.Helper()
	e.edit(addToHistory, func(tr *transform.Transform) error { return tr.Split(pos, 1) })
}

func (e *editor) del(from, to int, addToHistory bool) {
	e.t.Helper()
	e.edit(addToHistory, func(tr *transform.Transform) error { return tr.Delete(from, to) })
}

func (e *editor) setSel(anchor, head int) {
	e.t.Helper()
	sel, err := selection.CreateText(e.doc, anchor, head)
	if err != nil {
		e.t.Fatal(err)
	}
	e.sel = sel
}

func (e *editor) cut() { e.hist = e.hist.Close() }

func (e *editor) undo() bool {
	res, err := e.hist.Undo(e.doc, e.sel.Bookmark(), e.cfg)
	if err != nil {
		return false
	}
	e.install(res)
	return true
}

func (e *editor) redo() bool {
	res, err := e.hist.Redo(e.doc, e.sel.Bookmark(), e.cfg)
	if err != nil {
		return false
	}
	e.install(res)
	return true
}

func (e *editor) install(res *Result) {
	e.doc = res.Transform.Doc
	e.sel = res.Selection.Resolve(e.doc)
	e.hist = res.History
}

func (e *editor) check(want *model.Node) {
	e.t.Helper()
	if !e.doc.Eq(want) {
		e.t.Fatalf("doc mismatch (-want +got):\n%s", cmp.Diff(want.String(), e.doc.String()))
	}
}

func TestUndo(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("a")
	e.typeText("b")
	e.check(b.Doc(b.P("ab")))
	if e.hist.UndoDepth() != 1 {
		t.Errorf("UndoDepth() = %d, want 1", e.hist.UndoDepth())
	}
	e.undo()
	e.check(b.Doc(b.P()))
}

func TestRedo(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("a")
	e.typeText("b")
	e.undo()
	e.check(b.Doc(b.P()))
	if e.hist.RedoDepth() != 1 {
		t.Errorf("RedoDepth() = %d, want 1", e.hist.RedoDepth())
	}
	e.redo()
	e.check(b.Doc(b.P("ab")))
}

func TestMultipleEvents(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("a")
	e.cut()
	e.typeText("b")
	e.check(b.Doc(b.P("ab")))
	steps := []struct {
		op   func() bool
		want *model.Node
	}{
		{e.undo, b.Doc(b.P("a"))},
		{e.undo, b.Doc(b.P())},
		{e.redo, b.Doc(b.P("a"))},
		{e.redo, b.Doc(b.P("ab"))},
		{e.undo, b.Doc(b.P("a"))},
	}
	for _, s := range steps {
		if !s.op() {
			t.Fatal("history operation found nothing to do")
		}
		e.check(s.want)
	}
}

func TestEmptyHistory(t *testing.T) {
	h := NewState()
	doc := b.Doc(b.P())
	sel := selection.AtStart(doc).Bookmark()
	if _, err := h.Undo(doc, sel, DefaultConfig()); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want ErrNothingToUndo", err)
	}
	if _, err := h.Redo(doc, sel, DefaultConfig()); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestUnsyncedChanges(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hello")
	e.insertText(1, "oops", false)
	e.insertText(10, "!", false)
	e.undo()
	e.check(b.Doc(b.P("oops!")))
}

func testUnsyncedComplex(t *testing.T, compress bool) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hello")
	e.cut()
	e.typeText("!")
	e.insertText(1, "....", false)
	e.split(3, true)
	e.check(b.Doc(b.P(".."), b.P("..hello!")))
	e.split(2, false)
	if compress {
		e.hist = e.hist.Compress()
		if n := e.hist.Done.EmptyItemCount(); n != 0 {
			t.Fatalf("EmptyItemCount() after Compress = %d", n)
		}
	}
	e.undo()
	e.check(b.Doc(b.P("."), b.P("...hello!")))
	e.undo()
	e.check(b.Doc(b.P("."), b.P("...hello")))
	e.undo()
	e.check(b.Doc(b.P("."), b.P("...")))
}

func TestUnsyncedComplex(t *testing.T) { testUnsyncedComplex(t, false) }

func TestUnsyncedComplexCompressed(t *testing.T) { testUnsyncedComplex(t, true) }

func TestOverlapping(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hello")
	e.cut()
	e.del(1, 6, true)
	e.check(b.Doc(b.P()))
	e.undo()
	e.check(b.Doc(b.P("hello")))
	e.undo()
	e.check(b.Doc(b.P()))
}

func TestOverlappingNoCollapse(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.insertText(1, "h", false)
	e.typeText("ello")
	e.cut()
	e.del(1, 6, true)
	e.check(b.Doc(b.P()))
	e.undo()
	e.check(b.Doc(b.P("hello")))
	e.undo()
	e.check(b.Doc(b.P("h")))
}

func TestOverlappingUnsyncedDelete(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hi")
	e.cut()
	e.typeText("hello")
	e.del(1, 8, false)
	e.check(b.Doc(b.P()))
	e.undo()
	e.check(b.Doc(b.P()))
}

func TestPingPong(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("one")
	e.typeText(" two")
	e.cut()
	e.typeText(" three")
	e.insertText(1, "zero ", true)
	e.cut()
	e.split(1, true)
	e.setSel(1, 1)
	e.typeText("top")
	for i := 0; i < 6; i++ {
		redo := i%2 == 1
		for j := 0; j < 4; j++ {
			if redo {
				e.redo()
			} else {
				e.undo()
			}
		}
		if redo {
			e.check(b.Doc(b.P("top"), b.P("zero one two three")))
		} else {
			e.check(b.Doc(b.P()))
		}
	}
}

func TestSelectionRestoredOnUndo(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hi")
	e.cut()
	e.setSel(1, 3)
	before := e.sel
	e.edit(true, func(tr *transform.Transform) error { return tr.ReplaceWith(1, 3, b.Text("hello")) })
	after := e.sel
	e.undo()
	if !e.sel.Eq(before) {
		t.Errorf("selection after undo = %s, want %s", e.sel, before)
	}
	e.redo()
	if !e.sel.Eq(after) {
		t.Errorf("selection after redo = %s, want %s", e.sel, after)
	}
}

func TestSelectionRebasedOnUndo(t *testing.T) {
	e := newEditor(t, b.Doc(b.P()), DefaultConfig())
	e.typeText("hi")
	e.cut()
	e.setSel(1, 3)
	e.insertText(1, "hello", true)
	e.insertText(1, "---", false)
	e.undo()
	e.check(b.Doc(b.P("---hi")))
	if e.sel.Head() != 6 {
		t.Errorf("selection head = %d, want 6", e.sel.Head())
	}
}

func TestUnsyncedOverwritePreserveItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreserveItems = true
	e := newEditor(t, b.Doc(b.P()), cfg)
	e.typeText("a")
	e.typeText("b")
	e.cut()
	e.setSel(1, 3)
	e.typeText("c")
	e.undo()
	e.undo()
	e.check(b.Doc(b.P()))
}

func TestAdjacentTypingMerges(t *testing.T) {
	e := newEditor(t, b.Doc(b.P("hello")), DefaultConfig())
	e.insertText(1, "a", true)
	e.insertText(2, "b", true)
	if got := e.hist.UndoDepth(); got != 1 {
		t.Fatalf("UndoDepth() = %d, want 1", got)
	}
	if got := e.hist.Done.Len(); got != 1 {
		t.Errorf("Done.Len() = %d, want a single merged item", got)
	}
	e.undo()
	e.check(b.Doc(b.P("hello")))
}

func TestClosedHistorySeparatesEvents(t *testing.T) {
	e := newEditor(t, b.Doc(b.P("hello")), DefaultConfig())
	e.insertText(1, "a", true)
	e.cut()
	e.insertText(2, "b", true)
	if got := e.hist.UndoDepth(); got != 2 {
		t.Fatalf("UndoDepth() = %d, want 2", got)
	}
	e.undo()
	e.check(b.Doc(b.P("ahello")))
	e.undo()
	e.check(b.Doc(b.P("hello")))
}

func TestGroupingRules(t *testing.T) {
	tests := []struct {
		name  string
		pause time.Duration
		pos   int
		want  int
	}{
		{"adjacent and quick", 0, 2, 1},
		{"after delay", time.Second, 2, 2},
		{"not adjacent", 0, 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t, b.Doc(b.P("hello")), DefaultConfig())
			e.insertText(1, "a", true)
			e.now = e.now.Add(tt.pause)
			e.insertText(tt.pos, "b", true)
			if got := e.hist.UndoDepth(); got != tt.want {
				t.Errorf("UndoDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDepthCutOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Depth = 2
	e := newEditor(t, b.Doc(b.P()), cfg)
	for i := 0; i < 30; i++ {
		e.typeText("x")
		e.cut()
		if d := e.hist.UndoDepth(); d > cfg.Depth+depthOverflow {
			t.Fatalf("UndoDepth() = %d after %d events", d, i+1)
		}
	}
	if got := e.hist.UndoDepth(); got != 9 {
		t.Fatalf("UndoDepth() = %d, want 9", got)
	}
	n := 0
	for e.undo() {
		n++
	}
	if n != 9 {
		t.Errorf("undid %d events, want 9", n)
	}
	e.check(b.Doc(b.P("xxxxxxxxxxxxxxxxxxxxx")))
}

func TestUndoRedoUndoIsStable(t *testing.T) {
	e := newEditor(t, b.Doc(b.P("abc")), DefaultConfig())
	e.insertText(2, "X", true)
	e.cut()
	e.del(1, 3, true)
	e.insertText(1, "remote", false)

	e.undo()
	once := e.doc
	e.redo()
	e.undo()
	if !e.doc.Eq(once) {
		t.Errorf("undo(redo(undo)) = %s, undo = %s", e.doc, once)
	}
}

func TestAddMapsWithoutEvents(t *testing.T) {
	maps := []*transform.StepMap{transform.NewStepMap([]int{1, 0, 2})}
	if got := EmptyBranch.AddMaps(maps); got != EmptyBranch {
		t.Error("AddMaps on an empty branch should not record maps")
	}
}
