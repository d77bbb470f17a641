package engine

import (
	"strings"
	"testing"

	"github.com/dshills/prosecore/internal/engine/collab"
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// ============================================================================
// Setup Helpers
// ============================================================================

var builder = b

func setupLargeDoc(b *testing.B, paragraphs int) *model.Node {
	b.Helper()
	children := make([]any, paragraphs)
	line := strings.Repeat("x", 80)
	for i := range children {
		children[i] = builder.P(line)
	}
	return builder.Doc(children...)
}

func setupState(b *testing.B, paragraphs int, opts ...Option) *State {
	b.Helper()
	st, err := NewState(setupLargeDoc(b, paragraphs), opts...)
	if err != nil {
		b.Fatal(err)
	}
	return st
}

// ============================================================================
// Edit Benchmarks
// ============================================================================

func BenchmarkStateTyping(b *testing.B) {
	st := setupState(b, 1000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		tr := st.Tr()
		if err := tr.ReplaceSelection("a"); err != nil {
			b.Fatal(err)
		}
		next, err := st.Apply(tr)
		if err != nil {
			b.Fatal(err)
		}
		st = next
	}
}

func BenchmarkStateUndo(b *testing.B) {
	base := setupState(b, 1000)
	st := base
	for i := 0; i < 200; i++ {
		tr := st.Tr()
		_ = tr.ReplaceSelection("a")
		st, _ = st.Apply(tr.CloseHistory())
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		undone, _ := st.Undo()
		_, _ = undone.Redo()
	}
}

// ============================================================================
// Collaboration Benchmarks
// ============================================================================

func BenchmarkReceiveWithRebase(b *testing.B) {
	st := setupState(b, 1000, WithCollab("local", 0))
	for i := 0; i < 20; i++ {
		tr := st.Tr()
		_ = tr.InsertText("l", 1, 1)
		st, _ = st.Apply(tr)
	}
	remote := make([]transform.Step, 20)
	ids := make([]string, 20)
	for i := range remote {
		remote[i] = transform.NewReplaceStep(1000, 1001, nil, false)
		ids[i] = "remote"
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := st.Receive(remote, ids); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAuthoritySubmit(b *testing.B) {
	doc := setupLargeDoc(b, 100)
	auth := collab.NewAuthority(doc)
	step := []transform.Step{transform.NewReplaceStep(1, 1, model.NewSlice(model.FragmentFrom(doc.Child(0).Child(0).Cut(0, 1)), 0, 0), false)}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := auth.Submit(i, step, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}
