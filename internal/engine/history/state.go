package history

import (
	"time"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/selection"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Config controls event grouping and retention.
type Config struct {
	// Depth is the number of events kept.
	Depth int
	// NewGroupDelay is the pause after which a change starts a new event.
	NewGroupDelay time.Duration
	// PreserveItems keeps one item per change instead of merging. It is
	// required when steps are rebased by collaboration.
	PreserveItems bool
}

// DefaultConfig returns the default history configuration.
func DefaultConfig() Config {
	return Config{Depth: 100, NewGroupDelay: 500 * time.Millisecond}
}

// Meta describes how a transform relates to the history.
type Meta struct {
	// AddToHistory records the transform's steps as undoable.
	AddToHistory bool
	// CloseHistory ends the current event before the transform is recorded.
	CloseHistory bool
	// Rebased is the number of unconfirmed steps the transform rebased.
	Rebased int
	// Time is when the transform was made.
	Time time.Time
	// SelectionBefore is the selection the transform started from.
	SelectionBefore selection.Bookmark
}

// State is an immutable undo/redo history.
type State struct {
	Done   *Branch
	Undone *Branch

	// prevRanges are the ranges touched by the last recorded change, in
	// the current document, as from/to pairs. nil once the event is closed.
	prevRanges []int
	prevTime   time.Time
}

// NewState returns an empty history.
func NewState() *State {
	return &State{Done: EmptyBranch, Undone: EmptyBranch}
}

// UndoDepth returns the number of undoable events.
func (h *State) UndoDepth() int { return h.Done.EventCount() }

// RedoDepth returns the number of redoable events.
func (h *State) RedoDepth() int { return h.Undone.EventCount() }

// Close ends the current event so the next change starts a new one.
func (h *State) Close() *State {
	return &State{Done: h.Done, Undone: h.Undone}
}

// Compress folds all map-only items into the steps of both branches.
func (h *State) Compress() *State {
	return &State{
		Done:       h.Done.Compress(h.Done.Len()),
		Undone:     h.Undone.Compress(h.Undone.Len()),
		prevRanges: h.prevRanges,
		prevTime:   h.prevTime,
	}
}

// Apply records a transform that was applied to the document.
func (h *State) Apply(tr *transform.Transform, meta Meta, cfg Config) *State {
	if meta.CloseHistory {
		h = h.Close()
	}
	if len(tr.Steps) == 0 {
		return h
	}
	maps := tr.Mapping.Maps()
	switch {
	case meta.AddToHistory:
		newGroup := h.prevTime.IsZero() ||
			h.prevTime.Before(meta.Time.Add(-cfg.NewGroupDelay)) ||
			!isAdjacentTo(tr, h.prevRanges)
		var sel selection.Bookmark
		if newGroup {
			sel = meta.SelectionBefore
		}
		return &State{
			Done:       h.Done.AddTransform(tr, sel, cfg.Depth, cfg.PreserveItems),
			Undone:     EmptyBranch,
			prevRanges: rangesFor(maps[len(maps)-1]),
			prevTime:   meta.Time,
		}
	case meta.Rebased > 0:
		return &State{
			Done:       h.Done.Rebased(tr, meta.Rebased),
			Undone:     h.Undone.Rebased(tr, meta.Rebased),
			prevRanges: mapRanges(h.prevRanges, tr.Mapping),
			prevTime:   h.prevTime,
		}
	default:
		return &State{
			Done:       h.Done.AddMaps(maps),
			Undone:     h.Undone.AddMaps(maps),
			prevRanges: mapRanges(h.prevRanges, tr.Mapping),
			prevTime:   h.prevTime,
		}
	}
}

// Result is an undo or redo: the transform to apply, the selection to
// restore afterwards and the history to install with it.
type Result struct {
	Transform *transform.Transform
	Selection selection.Bookmark
	History   *State
	// Skipped counts steps that no longer applied and were dropped.
	Skipped int
}

// Undo reverts the last done event in doc. current is the selection before
// the undo, recorded so that redo can restore it.
func (h *State) Undo(doc *model.Node, current selection.Bookmark, cfg Config) (*Result, error) {
	res := h.pop(doc, current, cfg, false)
	if res == nil {
		return nil, ErrNothingToUndo
	}
	return res, nil
}

// Redo reapplies the last undone event in doc.
func (h *State) Redo(doc *model.Node, current selection.Bookmark, cfg Config) (*Result, error) {
	res := h.pop(doc, current, cfg, true)
	if res == nil {
		return nil, ErrNothingToRedo
	}
	return res, nil
}

func (h *State) pop(doc *model.Node, current selection.Bookmark, cfg Config, redo bool) *Result {
	from, to := h.Done, h.Undone
	if redo {
		from, to = to, from
	}
	pop := from.PopEvent(doc, cfg.PreserveItems)
	if pop == nil {
		return nil
	}
	added := to.AddTransform(pop.Transform, current, cfg.Depth, cfg.PreserveItems)
	next := &State{Done: pop.Remaining, Undone: added}
	if redo {
		next = &State{Done: added, Undone: pop.Remaining}
	}
	return &Result{Transform: pop.Transform, Selection: pop.Selection, History: next, Skipped: pop.Skipped}
}

// isAdjacentTo reports whether the first change in tr touches prevRanges.
func isAdjacentTo(tr *transform.Transform, prevRanges []int) bool {
	if prevRanges == nil {
		return false
	}
	if !tr.DocChanged() {
		return true
	}
	adjacent := false
	tr.Mapping.Maps()[0].ForEach(func(start, end, _, _ int) {
		for i := 0; i < len(prevRanges); i += 2 {
			if start <= prevRanges[i+1] && end >= prevRanges[i] {
				adjacent = true
			}
		}
	})
	return adjacent
}

func rangesFor(m *transform.StepMap) []int {
	result := []int{}
	m.ForEach(func(_, _, from, to int) {
		result = append(result, from, to)
	})
	return result
}

func mapRanges(ranges []int, mapping transform.Mappable) []int {
	if ranges == nil {
		return nil
	}
	result := []int{}
	for i := 0; i < len(ranges); i += 2 {
		from, to := mapping.Map(ranges[i], 1), mapping.Map(ranges[i+1], -1)
		if from <= to {
			result = append(result, from, to)
		}
	}
	return result
}
