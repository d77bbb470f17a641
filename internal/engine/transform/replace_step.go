package transform

import (
	"fmt"

	"github.com/dshills/prosecore/internal/engine/model"
)

// ReplaceStep replaces [From, To) with Slice. A structure step only changes
// node boundaries and fails if it would overwrite content.
type ReplaceStep struct {
	From      int
	To        int
	Slice     *model.Slice
	Structure bool
}

// NewReplaceStep creates a replace step. A nil slice means deletion.
func NewReplaceStep(from, to int, slice *model.Slice, structure bool) *ReplaceStep {
	if slice == nil {
		slice = model.EmptySlice
	}
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: structure}
}

func (s *ReplaceStep) isStep() {}

// Apply implements Step.
func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.From > s.To {
		return Fail(fmt.Sprintf("%v: from %d > to %d", ErrRangeInvalid, s.From, s.To))
	}
	if s.Structure {
		between, err := contentBetween(doc, s.From, s.To)
		if err != nil {
			return Fail(err.Error())
		}
		if between {
			return Fail("structure replace would overwrite content")
		}
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

// GetMap implements Step.
func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert implements Step.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	slice, err := doc.Slice(s.From, s.To, false)
	if err != nil {
		return nil
	}
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), slice, false)
}

// Map implements Step.
func (s *ReplaceStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.DeletedAcross() && to.DeletedAcross() {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice, s.Structure)
}

// Merge implements Step. Adjacent unstructured replaces merge when the
// second starts where the first's insertion ends, or ends where the first
// starts.
func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	o, ok := other.(*ReplaceStep)
	if !ok || o.Structure || s.Structure {
		return nil, false
	}
	switch {
	case s.From+s.Slice.Size() == o.From && s.Slice.OpenEnd == 0 && o.Slice.OpenStart == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(s.Slice.Content.Append(o.Slice.Content), s.Slice.OpenStart, o.Slice.OpenEnd)
		}
		return NewReplaceStep(s.From, s.To+(o.To-o.From), slice, s.Structure), true
	case o.To == s.From && s.Slice.OpenStart == 0 && o.Slice.OpenEnd == 0:
		slice := model.EmptySlice
		if s.Slice.Size()+o.Slice.Size() != 0 {
			slice = model.NewSlice(o.Slice.Content.Append(s.Slice.Content), o.Slice.OpenStart, s.Slice.OpenEnd)
		}
		return NewReplaceStep(o.From, s.To, slice, s.Structure), true
	}
	return nil, false
}

func (s *ReplaceStep) String() string {
	return fmt.Sprintf("replace(%d, %d, %s)", s.From, s.To, s.Slice)
}

// contentBetween reports whether there is content other than node
// boundaries between from and to.
func contentBetween(doc *model.Node, from, to int) (bool, error) {
	rFrom, err := doc.Resolve(from)
	if err != nil {
		return false, err
	}
	dist := to - from
	depth := rFrom.Depth
	for dist > 0 && depth > 0 && rFrom.IndexAfter(depth) == rFrom.Node(depth).ChildCount() {
		depth--
		dist--
	}
	if dist > 0 {
		next := rFrom.Node(depth).MaybeChild(rFrom.IndexAfter(depth))
		for dist > 0 {
			if next == nil || next.IsLeaf() {
				return true, nil
			}
			next = next.FirstChild()
			dist--
		}
	}
	return false, nil
}
