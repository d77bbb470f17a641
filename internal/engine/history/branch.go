package history

import (
	"slices"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

const (
	// depthOverflow is how far past the configured depth a branch may grow
	// before old events are cut off in one go.
	depthOverflow = 20

	// maxEmptyItems bounds the number of map-only items kept after a rebase
	// before the branch is compressed.
	maxEmptyItems = 500
)

// Branch is an immutable sequence of history items, the done or the undone
// side of a history.
type Branch struct {
	items itemTree
}

// EmptyBranch is the branch without items.
var EmptyBranch = &Branch{items: newItemTree()}

// Len returns the number of items.
func (b *Branch) Len() int { return b.items.Measure().Count }

// EventCount returns the number of events.
func (b *Branch) EventCount() int { return b.items.Measure().Events }

// EmptyItemCount returns the number of map-only items.
func (b *Branch) EmptyItemCount() int { return b.items.Measure().Empty }

// Items returns the items in order.
func (b *Branch) Items() []*Item { return b.items.ToSlice() }

// PopResult is the outcome of popping an event off a branch.
type PopResult struct {
	// Remaining is the branch without the event.
	Remaining *Branch
	// Transform applies the event's inverted steps to the document.
	Transform *transform.Transform
	// Selection is the selection recorded when the event started, mapped
	// to the transform's result.
	Selection selection.Bookmark
	// Skipped counts steps that no longer applied and were dropped.
	Skipped int
}

// PopEvent builds a transform reverting the last event, applied to doc. It
// returns nil when the branch has no events.
//
// Map-only items after the event are taken into account by mapping the
// event's steps over them. With preserveItems, every step is remapped and
// re-recorded so the branch keeps one item per original change.
func (b *Branch) PopEvent(doc *model.Node, preserveItems bool) *PopResult {
	events := b.EventCount()
	if events == 0 {
		return nil
	}
	head, tail := b.items.Split(func(m itemMeasure) bool { return m.Events >= events })
	end := head.Measure().Count

	var remap *transform.Mapping
	mapFrom := 0
	if preserveItems {
		remap = b.remapping(end, b.Len())
		mapFrom = remap.Len()
	}

	tr := transform.New(doc)
	result := &PopResult{Transform: tr}
	var addBefore, addAfter []*Item
	items := tail.ToSlice()
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.Step == nil {
			if remap == nil {
				remap = b.remapping(end, end+i+1)
				mapFrom = remap.Len()
			}
			mapFrom--
			addBefore = append(addBefore, item)
			continue
		}

		if remap != nil {
			addBefore = append(addBefore, &Item{Map: item.Map})
			var applied *transform.StepMap
			if step := item.Step.Map(remap.SliceFrom(mapFrom)); step != nil && tr.MaybeStep(step).Failed == "" {
				maps := tr.Mapping.Maps()
				applied = maps[len(maps)-1]
				addAfter = append(addAfter, &Item{Map: applied, MirrorOffset: len(addAfter) + len(addBefore)})
			} else {
				result.Skipped++
			}
			mapFrom--
			if applied != nil {
				remap.AppendMap(applied, mapFrom)
			}
		} else if tr.MaybeStep(item.Step).Failed != "" {
			result.Skipped++
		}

		if item.Selection != nil {
			result.Selection = item.Selection
			if remap != nil {
				result.Selection = item.Selection.Map(remap.SliceFrom(mapFrom))
			}
			slices.Reverse(addBefore)
			rest := newItemTree(append(addBefore, addAfter...)...)
			result.Remaining = &Branch{items: head.Concat(rest)}
			break
		}
	}
	return result
}

// AddTransform records the steps of tr, starting a new event when sel is
// non-nil. Without preserveItems, steps merge into the previous item where
// possible. Events beyond depth are dropped once the overflow allowance is
// exceeded.
func (b *Branch) AddTransform(tr *transform.Transform, sel selection.Bookmark, depth int, preserveItems bool) *Branch {
	var newItems []*Item
	eventCount := b.EventCount()
	oldItems := b.items
	var lastItem *Item
	if !preserveItems && !oldItems.IsEmpty() {
		lastItem = oldItems.PeekLast()
	}

	maps := tr.Mapping.Maps()
	for i, step := range tr.Steps {
		item := &Item{Map: maps[i], Step: step.Invert(tr.Docs[i]), Selection: sel}
		if lastItem != nil {
			if merged := lastItem.merge(item); merged != nil {
				item = merged
				if i > 0 {
					newItems = newItems[:len(newItems)-1]
				} else {
					oldItems = oldItems.RemoveLast()
				}
			}
		}
		newItems = append(newItems, item)
		if sel != nil {
			eventCount++
			sel = nil
		}
		if !preserveItems {
			lastItem = item
		}
	}

	if overflow := eventCount - depth; overflow > depthOverflow {
		oldItems = cutOffEvents(oldItems, overflow)
	}
	return &Branch{items: oldItems.Concat(newItemTree(newItems...))}
}

// cutOffEvents drops the first n events.
func cutOffEvents(items itemTree, n int) itemTree {
	_, rest := items.Split(func(m itemMeasure) bool { return m.Events > n })
	return rest
}

// remapping builds a mapping over the maps of items [from, to), restoring
// the mirror relations between them.
func (b *Branch) remapping(from, to int) *transform.Mapping {
	maps := &transform.Mapping{}
	for i, item := range sliceItems(b.items, from, to).ToSlice() {
		mirror := -1
		if item.MirrorOffset > 0 && i-item.MirrorOffset >= 0 {
			mirror = maps.Len() - item.MirrorOffset
		}
		maps.AppendMap(item.Map, mirror)
	}
	return maps
}

// AddMaps records changes that are not part of this history.
func (b *Branch) AddMaps(maps []*transform.StepMap) *Branch {
	if b.EventCount() == 0 {
		return b
	}
	items := make([]*Item, len(maps))
	for i, m := range maps {
		items[i] = &Item{Map: m}
	}
	return &Branch{items: b.items.Concat(newItemTree(items...))}
}

// Rebased replaces the last rebasedCount items, which recorded unconfirmed
// local steps, with their rebased versions in tr. tr starts with the
// inverses of those steps, continues with the steps they were rebased over,
// and ends with the re-applied steps, each mirroring its inverse.
func (b *Branch) Rebased(tr *transform.Transform, rebasedCount int) *Branch {
	if b.EventCount() == 0 {
		return b
	}
	start := max(0, b.Len()-rebasedCount)
	head, tail := splitAt(b.items, start)

	mapping := tr.Mapping
	maps := mapping.Maps()
	newUntil := len(tr.Steps)
	var rebasedItems []*Item
	iRebased := rebasedCount
	for _, item := range tail.ToSlice() {
		iRebased--
		pos := mapping.GetMirror(iRebased)
		if pos < 0 {
			continue
		}
		newUntil = min(newUntil, pos)
		if item.Step == nil {
			rebasedItems = append(rebasedItems, &Item{Map: maps[pos]})
			continue
		}
		step := tr.Steps[pos].Invert(tr.Docs[pos])
		var sel selection.Bookmark
		if item.Selection != nil {
			sel = item.Selection.Map(mapping.Slice(iRebased+1, pos))
		}
		rebasedItems = append(rebasedItems, &Item{Map: maps[pos], Step: step, Selection: sel})
	}

	var newMaps []*Item
	for i := rebasedCount; i < newUntil; i++ {
		newMaps = append(newMaps, &Item{Map: maps[i]})
	}
	items := head.Concat(newItemTree(newMaps...)).Concat(newItemTree(rebasedItems...))
	branch := &Branch{items: items}
	if branch.EmptyItemCount() > maxEmptyItems {
		branch = branch.Compress(b.Len() - len(rebasedItems))
	}
	return branch
}

// Compress folds the map-only items among the first upto items into the
// steps before them, mapping those steps forward and merging where possible.
func (b *Branch) Compress(upto int) *Branch {
	remap := b.remapping(0, upto)
	mapFrom := remap.Len()
	var items []*Item
	all := b.items.ToSlice()
	for i := len(all) - 1; i >= 0; i-- {
		item := all[i]
		if i >= upto {
			items = append(items, item)
			continue
		}
		if item.Step == nil {
			mapFrom--
			continue
		}
		step := item.Step.Map(remap.SliceFrom(mapFrom))
		mapFrom--
		if step == nil {
			continue
		}
		m := step.GetMap()
		remap.AppendMap(m, mapFrom)
		var sel selection.Bookmark
		if item.Selection != nil {
			sel = item.Selection.Map(remap.SliceFrom(mapFrom))
		}
		newItem := &Item{Map: m.Invert(), Step: step, Selection: sel}
		if n := len(items); n > 0 {
			if merged := items[n-1].merge(newItem); merged != nil {
				items[n-1] = merged
				continue
			}
		}
		items = append(items, newItem)
	}
	slices.Reverse(items)
	return &Branch{items: newItemTree(items...)}
}
