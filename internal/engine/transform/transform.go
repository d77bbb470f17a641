package transform

import (
	"fmt"

	"github.com/dshills/prosecore/internal/engine/model"
)

// Transform accumulates steps applied to a document, together with the
// intermediate documents and the mapping of all step maps.
type Transform struct {
	// Doc is the current document.
	Doc *model.Node
	// Steps are the steps applied so far.
	Steps []Step
	// Docs holds the document before each step.
	Docs []*model.Node
	// Mapping maps positions in the start document to the current one.
	Mapping *Mapping
}

// New starts a transform on doc.
func New(doc *model.Node) *Transform {
	return &Transform{Doc: doc, Mapping: &Mapping{}}
}

// Before returns the document the transform started from.
func (t *Transform) Before() *model.Node {
	if len(t.Docs) > 0 {
		return t.Docs[0]
	}
	return t.Doc
}

// DocChanged reports whether any step was applied.
func (t *Transform) DocChanged() bool { return len(t.Steps) > 0 }

// Step applies a step, returning an error wrapping ErrStepFailed when it fails.
func (t *Transform) Step(step Step) error {
	result := t.MaybeStep(step)
	if result.Failed != "" {
		return fmt.Errorf("%w: %s", ErrStepFailed, result.Failed)
	}
	return nil
}

// MaybeStep applies a step if possible and returns the result.
func (t *Transform) MaybeStep(step Step) StepResult {
	result := step.Apply(t.Doc)
	if result.Failed == "" {
		t.addStep(step, result.Doc)
	}
	return result
}

func (t *Transform) addStep(step Step, doc *model.Node) {
	t.Docs = append(t.Docs, t.Doc)
	t.Steps = append(t.Steps, step)
	t.Mapping.AppendMap(step.GetMap(), -1)
	t.Doc = doc
}

// Replace replaces [from, to) with the slice. Empty replacements are skipped.
func (t *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	if from == to && slice.Size() == 0 {
		return nil
	}
	return t.Step(NewReplaceStep(from, to, slice, false))
}

// ReplaceWith replaces [from, to) with the given nodes.
func (t *Transform) ReplaceWith(from, to int, nodes ...*model.Node) error {
	return t.Replace(from, to, model.NewSlice(model.FragmentFromArray(nodes), 0, 0))
}

// Delete removes [from, to).
func (t *Transform) Delete(from, to int) error {
	return t.Replace(from, to, model.EmptySlice)
}

// Insert inserts nodes at pos.
func (t *Transform) Insert(pos int, nodes ...*model.Node) error {
	return t.ReplaceWith(pos, pos, nodes...)
}

// InsertText replaces [from, to) with text carrying the marks active at from.
// Empty text deletes the range.
func (t *Transform) InsertText(text string, from, to int) error {
	if text == "" {
		return t.Delete(from, to)
	}
	rFrom, err := t.Doc.Resolve(from)
	if err != nil {
		return err
	}
	var marks []*model.Mark
	if from == to {
		marks = rFrom.Marks()
	} else {
		rTo, err := t.Doc.Resolve(to)
		if err != nil {
			return err
		}
		marks = rFrom.MarksAcross(rTo)
	}
	node, err := t.Doc.Type.Schema.Text(text, marks)
	if err != nil {
		return err
	}
	return t.ReplaceWith(from, to, node)
}

// AddMark adds mark to the inline content in [from, to). Only stretches that
// lack the mark get a step; marks the new one excludes are removed first.
func (t *Transform) AddMark(from, to int, mark *model.Mark) error {
	if from > to {
		return fmt.Errorf("%w: from %d > to %d", ErrRangeInvalid, from, to)
	}
	var removed []*RemoveMarkStep
	var adding []*AddMarkStep
	var removing *RemoveMarkStep
	var lastAdd *AddMarkStep
	t.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		marks := node.Marks
		if mark.IsInSet(marks) || !parent.Type.AllowsMarkType(mark.Type) {
			return true
		}
		start, end := max(pos, from), min(pos+node.NodeSize(), to)
		newSet := mark.AddToSet(marks)
		for _, m := range marks {
			if m.IsInSet(newSet) {
				continue
			}
			if removing != nil && removing.To == start && removing.Mark.Eq(m) {
				removing.To = end
			} else {
				removing = NewRemoveMarkStep(start, end, m)
				removed = append(removed, removing)
			}
		}
		if lastAdd != nil && lastAdd.To == start {
			lastAdd.To = end
		} else {
			lastAdd = NewAddMarkStep(start, end, mark)
			adding = append(adding, lastAdd)
		}
		return true
	}, 0)
	for _, s := range removed {
		if err := t.Step(s); err != nil {
			return err
		}
	}
	for _, s := range adding {
		if err := t.Step(s); err != nil {
			return err
		}
	}
	return nil
}

type matchedMark struct {
	mark     *model.Mark
	from, to int
	step     int
}

// RemoveMark removes mark from the inline content in [from, to). A nil mark
// removes all marks.
func (t *Transform) RemoveMark(from, to int, mark *model.Mark) error {
	return t.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		if mark == nil {
			return marks
		}
		if mark.IsInSet(marks) {
			return []*model.Mark{mark}
		}
		return nil
	})
}

// RemoveMarkType removes every mark of the given type from [from, to).
func (t *Transform) RemoveMarkType(from, to int, mt *model.MarkType) error {
	return t.removeMarks(from, to, func(marks []*model.Mark) []*model.Mark {
		var found []*model.Mark
		for m := mt.IsInSet(marks); m != nil; m = mt.IsInSet(marks) {
			found = append(found, m)
			marks = m.RemoveFromSet(marks)
		}
		return found
	})
}

func (t *Transform) removeMarks(from, to int, pick func([]*model.Mark) []*model.Mark) error {
	if from > to {
		return fmt.Errorf("%w: from %d > to %d", ErrRangeInvalid, from, to)
	}
	var matched []*matchedMark
	step := 0
	t.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		step++
		toRemove := pick(node.Marks)
		if len(toRemove) == 0 {
			return true
		}
		end := min(pos+node.NodeSize(), to)
		for _, style := range toRemove {
			var found *matchedMark
			for _, m := range matched {
				if m.step == step-1 && style.Eq(m.mark) {
					found = m
				}
			}
			if found != nil {
				found.to = end
				found.step = step
			} else {
				matched = append(matched, &matchedMark{mark: style, from: max(pos, from), to: end, step: step})
			}
		}
		return true
	}, 0)
	for _, m := range matched {
		if err := t.Step(NewRemoveMarkStep(m.from, m.to, m.mark)); err != nil {
			return err
		}
	}
	return nil
}

// Split splits the node at pos, and depth-1 of its ancestors, into two.
func (t *Transform) Split(pos, depth int) error {
	rPos, err := t.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	if depth < 1 || depth > rPos.Depth {
		return fmt.Errorf("%w: cannot split %d levels at depth %d", ErrRangeInvalid, depth, rPos.Depth)
	}
	before, after := model.EmptyFragment, model.EmptyFragment
	for d := rPos.Depth; d > rPos.Depth-depth; d-- {
		before = model.FragmentFrom(rPos.Node(d).Copy(before))
		after = model.FragmentFrom(rPos.Node(d).Copy(after))
	}
	return t.Step(NewReplaceStep(pos, pos, model.NewSlice(before.Append(after), depth, depth), true))
}

// Join joins the blocks around pos, removing depth levels of node boundaries.
func (t *Transform) Join(pos, depth int) error {
	return t.Step(NewReplaceStep(pos-depth, pos+depth, model.EmptySlice, true))
}

// CanJoin reports whether the blocks directly before and after pos can be joined.
func CanJoin(doc *model.Node, pos int) bool {
	rPos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	index := rPos.Index(rPos.Depth)
	a, b := rPos.NodeBefore(), rPos.NodeAfter()
	if a == nil || b == nil || a.IsLeaf() || !a.CanAppend(b) {
		return false
	}
	return rPos.Parent().CanReplace(index, index+1, model.EmptyFragment, 0, 0)
}
