package transform

import (
	"fmt"

	"github.com/dshills/prosecore/internal/engine/model"
)

// mapFragment rebuilds a fragment, passing every inline node through fn.
func mapFragment(frag *model.Fragment, fn func(node, parent *model.Node) *model.Node, parent *model.Node) *model.Fragment {
	mapped := make([]*model.Node, 0, frag.ChildCount())
	for i := 0; i < frag.ChildCount(); i++ {
		child := frag.Child(i)
		if child.Content().Size() > 0 {
			child = child.Copy(mapFragment(child.Content(), fn, child))
		}
		if child.IsInline() {
			child = fn(child, parent)
		}
		mapped = append(mapped, child)
	}
	return model.FragmentFromArray(mapped)
}

// AddMarkStep adds Mark to the inline content in [From, To).
type AddMarkStep struct {
	From int
	To   int
	Mark *model.Mark
}

// NewAddMarkStep creates an add-mark step.
func NewAddMarkStep(from, to int, mark *model.Mark) *AddMarkStep {
	return &AddMarkStep{From: from, To: to, Mark: mark}
}

func (s *AddMarkStep) isStep() {}

// Apply implements Step.
func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	if s.From > s.To {
		return Fail(fmt.Sprintf("%v: from %d > to %d", ErrRangeInvalid, s.From, s.To))
	}
	oldSlice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return Fail(err.Error())
	}
	rFrom, err := doc.Resolve(s.From)
	if err != nil {
		return Fail(err.Error())
	}
	parent := rFrom.Node(rFrom.SharedDepth(s.To))
	content := mapFragment(oldSlice.Content, func(node, parent *model.Node) *model.Node {
		if !node.IsAtom() || !parent.Type.AllowsMarkType(s.Mark.Type) {
			return node
		}
		return node.Mark(s.Mark.AddToSet(node.Marks))
	}, parent)
	return FromReplace(doc, s.From, s.To, model.NewSlice(content, oldSlice.OpenStart, oldSlice.OpenEnd))
}

// GetMap implements Step. Marks never change positions.
func (s *AddMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *AddMarkStep) Invert(*model.Node) Step {
	return NewRemoveMarkStep(s.From, s.To, s.Mark)
}

// Map implements Step.
func (s *AddMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return NewAddMarkStep(from.Pos, to.Pos, s.Mark)
}

// Merge implements Step. Touching or overlapping additions of the same mark merge.
func (s *AddMarkStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*AddMarkStep)
	if ok && o.Mark.Eq(s.Mark) && s.From <= o.To && s.To >= o.From {
		return NewAddMarkStep(min(s.From, o.From), max(s.To, o.To), s.Mark), true
	}
	return nil, false
}

func (s *AddMarkStep) String() string {
	return fmt.Sprintf("addMark(%d, %d, %s)", s.From, s.To, s.Mark)
}

// RemoveMarkStep removes Mark from the inline content in [From, To).
type RemoveMarkStep struct {
	From int
	To   int
	Mark *model.Mark
}

// NewRemoveMarkStep creates a remove-mark step.
func NewRemoveMarkStep(from, to int, mark *model.Mark) *RemoveMarkStep {
	return &RemoveMarkStep{From: from, To: to, Mark: mark}
}

func (s *RemoveMarkStep) isStep() {}

// Apply implements Step.
func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	if s.From > s.To {
		return Fail(fmt.Sprintf("%v: from %d > to %d", ErrRangeInvalid, s.From, s.To))
	}
	oldSlice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return Fail(err.Error())
	}
	content := mapFragment(oldSlice.Content, func(node, _ *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	}, doc)
	return FromReplace(doc, s.From, s.To, model.NewSlice(content, oldSlice.OpenStart, oldSlice.OpenEnd))
}

// GetMap implements Step.
func (s *RemoveMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert implements Step.
func (s *RemoveMarkStep) Invert(*model.Node) Step {
	return NewAddMarkStep(s.From, s.To, s.Mark)
}

// Map implements Step.
func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if (from.Deleted() && to.Deleted()) || from.Pos >= to.Pos {
		return nil
	}
	return NewRemoveMarkStep(from.Pos, to.Pos, s.Mark)
}

// Merge implements Step.
func (s *RemoveMarkStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*RemoveMarkStep)
	if ok && o.Mark.Eq(s.Mark) && s.From <= o.To && s.To >= o.From {
		return NewRemoveMarkStep(min(s.From, o.From), max(s.To, o.To), s.Mark), true
	}
	return nil, false
}

func (s *RemoveMarkStep) String() string {
	return fmt.Sprintf("removeMark(%d, %d, %s)", s.From, s.To, s.Mark)
}
