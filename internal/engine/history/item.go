package history

import (
	ft "github.com/leisure-tools/lazyfingertree"

	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Item is a single entry in a history branch.
type Item struct {
	// Map is the step map of the change this item records.
	Map *transform.StepMap
	// Step inverts the change. It is nil for changes that are not undoable
	// from this history, which are kept only for mapping.
	Step transform.Step
	// Selection is set on the first item of an event.
	Selection selection.Bookmark
	// MirrorOffset is the distance back to the item this one mirrors, or 0.
	MirrorOffset int
}

// merge joins other, which directly follows it, into one item. It returns
// nil when the steps do not merge or other starts an event.
func (it *Item) merge(other *Item) *Item {
	if it.Step == nil || other.Step == nil || other.Selection != nil {
		return nil
	}
	step, ok := other.Step.Merge(it.Step)
	if !ok {
		return nil
	}
	return &Item{Map: step.GetMap().Invert(), Step: step, Selection: it.Selection}
}

// itemMeasure summarises a run of items.
type itemMeasure struct {
	Count  int
	Events int
	Empty  int
}

type itemMeasurer bool

type itemTree = ft.FingerTree[itemMeasurer, *Item, itemMeasure]

func (m itemMeasurer) Identity() itemMeasure {
	return itemMeasure{}
}

func (m itemMeasurer) Measure(it *Item) itemMeasure {
	ms := itemMeasure{Count: 1}
	if it.Selection != nil {
		ms.Events = 1
	}
	if it.Step == nil {
		ms.Empty = 1
	}
	return ms
}

func (m itemMeasurer) Sum(a, b itemMeasure) itemMeasure {
	return itemMeasure{
		Count:  a.Count + b.Count,
		Events: a.Events + b.Events,
		Empty:  a.Empty + b.Empty,
	}
}

func newItemTree(items ...*Item) itemTree {
	return ft.FromArray[itemMeasurer, *Item, itemMeasure](itemMeasurer(true), items)
}

// splitAt splits t before item i.
func splitAt(t itemTree, i int) (itemTree, itemTree) {
	if t.IsEmpty() {
		return t, t
	}
	return t.Split(func(m itemMeasure) bool { return m.Count > i })
}

// sliceItems returns items [from, to) of t.
func sliceItems(t itemTree, from, to int) itemTree {
	_, right := splitAt(t, from)
	left, _ := splitAt(right, to-from)
	return left
}
