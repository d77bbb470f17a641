package selection

import "github.com/dshills/prosecore/internal/engine/model"

// FindFrom finds a valid selection starting at pos and searching in
// direction dir (negative for backwards). With textOnly set, node
// selections are skipped. It returns nil when none exists.
func FindFrom(pos *model.ResolvedPos, dir int, textOnly bool) Selection {
	if pos.Parent().InlineContent() {
		return NewTextSelection(pos, nil)
	}
	doc := pos.Doc()
	if found := findIn(doc, pos.Parent(), pos.Pos, pos.Index(pos.Depth), dir, textOnly); found != nil {
		return found
	}
	for d := pos.Depth - 1; d >= 0; d-- {
		var found Selection
		if dir < 0 {
			found = findIn(doc, pos.Node(d), pos.Before(d+1), pos.Index(d), dir, textOnly)
		} else {
			found = findIn(doc, pos.Node(d), pos.After(d+1), pos.Index(d)+1, dir, textOnly)
		}
		if found != nil {
			return found
		}
	}
	return nil
}

// Near finds the valid selection closest to pos, looking in direction bias
// first. It falls back to selecting the whole document.
func Near(pos *model.ResolvedPos, bias int) Selection {
	if bias == 0 {
		bias = 1
	}
	if found := FindFrom(pos, bias, false); found != nil {
		return found
	}
	if found := FindFrom(pos, -bias, false); found != nil {
		return found
	}
	return NewAllSelection(pos.Doc())
}

// AtStart returns the first valid selection in doc.
func AtStart(doc *model.Node) Selection {
	if found := findIn(doc, doc, 0, 0, 1, false); found != nil {
		return found
	}
	return NewAllSelection(doc)
}

// AtEnd returns the last valid selection in doc.
func AtEnd(doc *model.Node) Selection {
	if found := findIn(doc, doc, doc.Content().Size(), doc.ChildCount(), -1, false); found != nil {
		return found
	}
	return NewAllSelection(doc)
}

// findIn scans node's children from index in direction dir. pos is the
// position at that child boundary.
func findIn(doc, node *model.Node, pos, index, dir int, textOnly bool) Selection {
	if node.InlineContent() {
		return NewTextSelection(doc.MustResolve(pos), nil)
	}
	i := index
	if dir < 0 {
		i--
	}
	for ; i >= 0 && i < node.ChildCount(); i += dir {
		child := node.Child(i)
		if !child.IsAtom() {
			start := 0
			if dir < 0 {
				start = child.ChildCount()
			}
			if found := findIn(doc, child, pos+dir, start, dir, textOnly); found != nil {
				return found
			}
		} else if !textOnly && Selectable(child) {
			at := pos
			if dir < 0 {
				at -= child.NodeSize()
			}
			if sel, err := NewNodeSelection(doc.MustResolve(at)); err == nil {
				return sel
			}
		}
		pos += child.NodeSize() * dir
	}
	return nil
}
