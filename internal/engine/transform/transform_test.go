package transform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/prosecore/internal/engine/model"
)

func checkDoc(t *testing.T, got, want *model.Node) {
	t.Helper()
	if !got.Eq(want) {
		t.Errorf("doc mismatch (-want +got):\n%s", cmp.Diff(want.String(), got.String()))
	}
}

func TestInsertTextInheritsMarks(t *testing.T) {
	tr := New(b.Doc(b.P(b.Em("ab"), "cd")))
	if err := tr.InsertText("x", 2, 2); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P(b.Em("axb"), "cd")))

	if err := tr.InsertText("y", 5, 6); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P(b.Em("axb"), "cy")))
	if len(tr.Steps) != 2 {
		t.Errorf("len(Steps) = %d, want 2", len(tr.Steps))
	}
}

func TestInsertTextEmptyDeletes(t *testing.T) {
	tr := New(b.Doc(b.P("hello")))
	if err := tr.InsertText("", 1, 3); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P("llo")))
}

func TestAddMark(t *testing.T) {
	tests := []struct {
		name      string
		doc       *model.Node
		from, to  int
		mark      *model.Mark
		want      *model.Node
		wantSteps int
	}{
		{"plain text", b.Doc(b.P("hello")), 1, 6, b.StrongMark(), b.Doc(b.P(b.Strong("hello"))), 1},
		{"partial", b.Doc(b.P("hello")), 2, 4, b.EmMark(), b.Doc(b.P("h", b.Em("el"), "lo")), 1},
		{"already marked", b.Doc(b.P(b.Em("hello"))), 1, 6, b.EmMark(), b.Doc(b.P(b.Em("hello"))), 0},
		{"fills gaps only", b.Doc(b.P("a", b.Em("b"), "c")), 1, 4, b.EmMark(), b.Doc(b.P(b.Em("abc"))), 2},
		{"code excludes em", b.Doc(b.P(b.Em("ab"))), 1, 3, b.CodeMark(), b.Doc(b.P(b.Code("ab"))), 2},
		{"across blocks", b.Doc(b.P("ab"), b.P("cd")), 2, 7, b.EmMark(), b.Doc(b.P("a", b.Em("b")), b.P(b.Em("cd"))), 2},
		{"not in code block", b.Doc(b.Pre("ab")), 1, 3, b.EmMark(), b.Doc(b.Pre("ab")), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.doc)
			if err := tr.AddMark(tt.from, tt.to, tt.mark); err != nil {
				t.Fatal(err)
			}
			checkDoc(t, tr.Doc, tt.want)
			if len(tr.Steps) != tt.wantSteps {
				t.Errorf("len(Steps) = %d, want %d", len(tr.Steps), tt.wantSteps)
			}
			if tr.Before() != tt.doc {
				t.Error("Before() is not the starting document")
			}
		})
	}
}

func TestRemoveMark(t *testing.T) {
	tests := []struct {
		name     string
		doc      *model.Node
		from, to int
		mark     *model.Mark
		want     *model.Node
	}{
		{"single", b.Doc(b.P(b.Em("hello"))), 2, 4, b.EmMark(), b.Doc(b.P(b.Em("h"), "el", b.Em("lo")))},
		{"absent", b.Doc(b.P("hello")), 1, 6, b.EmMark(), b.Doc(b.P("hello"))},
		{"all marks", b.Doc(b.P(b.Em("a"), b.Strong("b"))), 1, 3, nil, b.Doc(b.P("ab"))},
		{"across nested", b.Doc(b.P(b.Em("a", b.Strong("b"), "c"))), 1, 4, b.EmMark(), b.Doc(b.P("a", b.Strong("b"), "c"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.doc)
			if err := tr.RemoveMark(tt.from, tt.to, tt.mark); err != nil {
				t.Fatal(err)
			}
			checkDoc(t, tr.Doc, tt.want)
		})
	}
}

func TestRemoveMarkType(t *testing.T) {
	tr := New(b.Doc(b.P(b.Link("a.html", "x"), b.Link("b.html", "y"))))
	if err := tr.RemoveMarkType(1, 3, b.Schema.MarkType("link")); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P("xy")))
}

func TestSplitAndJoin(t *testing.T) {
	tr := New(b.Doc(b.P("hello")))
	if err := tr.Split(3, 1); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P("he"), b.P("llo")))
	if !CanJoin(tr.Doc, 4) {
		t.Fatal("CanJoin() = false after split")
	}
	if err := tr.Join(4, 1); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P("hello")))
	if got := tr.Mapping.Map(4, 1); got != 4 {
		t.Errorf("Mapping.Map(4) = %d, want 4", got)
	}
}

func TestSplitNested(t *testing.T) {
	tr := New(b.Doc(b.Blockquote(b.P("ab"))))
	if err := tr.Split(3, 2); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.Blockquote(b.P("a")), b.Blockquote(b.P("b"))))
	if err := tr.Split(1, 3); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("Split() too deep error = %v, want ErrRangeInvalid", err)
	}
}

func TestCanJoin(t *testing.T) {
	tests := []struct {
		name string
		doc  *model.Node
		pos  int
		want bool
	}{
		{"paragraphs", b.Doc(b.P("a"), b.P("b")), 3, true},
		{"inside text", b.Doc(b.P("a"), b.P("b")), 1, false},
		{"paragraph and rule", b.Doc(b.P("a"), b.HR()), 3, false},
		{"paragraph and heading", b.Doc(b.P("a"), b.H(1, "b")), 3, true},
		{"paragraph and blockquote", b.Doc(b.P("a"), b.Blockquote(b.P("b"))), 3, false},
		{"out of range", b.Doc(b.P("a")), 40, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanJoin(tt.doc, tt.pos); got != tt.want {
				t.Errorf("CanJoin(%d) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestTransformStepFailure(t *testing.T) {
	doc := b.Doc(b.P("ab"))
	tr := New(doc)
	err := tr.Step(NewReplaceStep(3, 2, model.EmptySlice, false))
	if !errors.Is(err, ErrStepFailed) {
		t.Fatalf("Step() error = %v, want ErrStepFailed", err)
	}
	if tr.DocChanged() || tr.Doc != doc {
		t.Error("failed step changed the transform")
	}
	if r := tr.MaybeStep(NewReplaceStep(1, 40, model.EmptySlice, false)); r.Failed == "" {
		t.Error("MaybeStep() out of range succeeded")
	}
}

func TestTransformSkipsEmptyReplace(t *testing.T) {
	tr := New(b.Doc(b.P("ab")))
	if err := tr.Replace(2, 2, nil); err != nil {
		t.Fatal(err)
	}
	if tr.DocChanged() {
		t.Error("empty replace added a step")
	}
}

func TestTransformMapping(t *testing.T) {
	tr := New(b.Doc(b.P("hello"), b.P("world")))
	if err := tr.Insert(1, b.Text("ab")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Delete(10, 12); err != nil {
		t.Fatal(err)
	}
	checkDoc(t, tr.Doc, b.Doc(b.P("abhello"), b.P("rld")))
	if len(tr.Docs) != 2 || !tr.Docs[1].Eq(b.Doc(b.P("abhello"), b.P("world"))) {
		t.Errorf("Docs = %v", tr.Docs)
	}
	tests := []struct{ pos, assoc, want int }{
		{1, -1, 1},
		{1, 1, 3},
		{6, 1, 8},
		{8, 1, 10},
		{9, 1, 10},
		{12, 1, 12},
	}
	for _, tt := range tests {
		if got := tr.Mapping.Map(tt.pos, tt.assoc); got != tt.want {
			t.Errorf("Mapping.Map(%d, %d) = %d, want %d", tt.pos, tt.assoc, got, tt.want)
		}
	}
}
