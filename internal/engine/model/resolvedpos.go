package model

import (
	"fmt"
	"strings"
)

type pathEntry struct {
	node   *Node
	index  int
	offset int
}

// ResolvedPos is a position with context: the ancestor nodes at every
// depth, the child index within each, and the offset of that child.
// Resolved positions belong to one document and must not outlive it.
type ResolvedPos struct {
	Pos          int
	Depth        int
	ParentOffset int
	path         []pathEntry
}

// Resolve resolves pos against the node's content.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	size := n.content.Size()
	if pos < 0 || pos > size {
		return nil, outOfRange(pos, size)
	}
	var path []pathEntry
	start, parentOffset := 0, pos
	for node := n; ; {
		res, _ := node.content.findIndex(parentOffset, 0)
		rem := parentOffset - res.offset
		path = append(path, pathEntry{node: node, index: res.index, offset: start + res.offset})
		if rem == 0 {
			break
		}
		node = node.Child(res.index)
		if node.IsText() {
			break
		}
		parentOffset = rem - 1
		start += res.offset + 1
	}
	return &ResolvedPos{Pos: pos, Depth: len(path) - 1, ParentOffset: parentOffset, path: path}, nil
}

// MustResolve is Resolve for positions known to be valid. It panics otherwise.
func (n *Node) MustResolve(pos int) *ResolvedPos {
	r, err := n.Resolve(pos)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *ResolvedPos) resolveDepth(d int) int {
	if d < 0 {
		return r.Depth + d
	}
	return d
}

// Parent is the innermost node containing the position.
func (r *ResolvedPos) Parent() *Node { return r.path[r.Depth].node }

// Doc is the root node the position was resolved in.
func (r *ResolvedPos) Doc() *Node { return r.path[0].node }

// Node returns the ancestor at depth d. Negative depths count up from Depth.
func (r *ResolvedPos) Node(d int) *Node { return r.path[r.resolveDepth(d)].node }

// Index returns the child index in the ancestor at depth d.
func (r *ResolvedPos) Index(d int) int { return r.path[r.resolveDepth(d)].index }

// IndexAfter returns the index pointing after this position in the ancestor at depth d.
func (r *ResolvedPos) IndexAfter(d int) int {
	d = r.resolveDepth(d)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.Index(d)
	}
	return r.Index(d) + 1
}

// Start is the position at the start of the ancestor at depth d.
func (r *ResolvedPos) Start(d int) int {
	d = r.resolveDepth(d)
	if d == 0 {
		return 0
	}
	return r.path[d-1].offset + 1
}

// End is the position at the end of the ancestor at depth d.
func (r *ResolvedPos) End(d int) int {
	d = r.resolveDepth(d)
	return r.Start(d) + r.Node(d).content.Size()
}

// Before is the position directly before the ancestor at depth d.
// It panics for depth 0, which has no position before it.
func (r *ResolvedPos) Before(d int) int {
	d = r.resolveDepth(d)
	if d == 0 {
		panic("model: there is no position before the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].offset
}

// After is the position directly after the ancestor at depth d.
// It panics for depth 0.
func (r *ResolvedPos) After(d int) int {
	d = r.resolveDepth(d)
	if d == 0 {
		panic("model: there is no position after the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos
	}
	return r.path[d-1].offset + r.path[d].node.NodeSize()
}

// TextOffset is the offset into a text node when the position points into one.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.path[len(r.path)-1].offset
}

// NodeAfter returns the node directly after the position, cut when the
// position points into a text node.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if index == parent.ChildCount() {
		return nil
	}
	child := parent.Child(index)
	if off := r.TextOffset(); off > 0 {
		return child.Cut(off, child.TextLen())
	}
	return child
}

// NodeBefore returns the node directly before the position.
func (r *ResolvedPos) NodeBefore() *Node {
	index := r.Index(r.Depth)
	if off := r.TextOffset(); off > 0 {
		return r.Parent().Child(index).Cut(0, off)
	}
	if index == 0 {
		return nil
	}
	return r.Parent().Child(index - 1)
}

// PosAtIndex returns the position of child index in the ancestor at depth d.
func (r *ResolvedPos) PosAtIndex(index, d int) int {
	d = r.resolveDepth(d)
	node := r.path[d].node
	pos := r.Start(d)
	for i := 0; i < index; i++ {
		pos += node.Child(i).NodeSize()
	}
	return pos
}

// Marks returns the marks that apply to content inserted at this position.
// Non-inclusive marks at the end of their range are excluded.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if parent.content.Size() == 0 {
		return nil
	}
	if r.TextOffset() > 0 {
		return parent.Child(index).Marks
	}
	main, other := parent.MaybeChild(index-1), parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}
	marks := main.Marks
	for i := 0; i < len(marks); i++ {
		if !marks[i].Type.Inclusive() && (other == nil || !marks[i].IsInSet(other.Marks)) {
			marks = marks[i].RemoveFromSet(marks)
			i--
		}
	}
	return marks
}

// MarksAcross returns the marks that should be kept after deleting up to end,
// or nil when the position is not in inline content.
func (r *ResolvedPos) MarksAcross(end *ResolvedPos) []*Mark {
	after := r.Parent().MaybeChild(r.Index(r.Depth))
	if after == nil || !after.IsInline() {
		return nil
	}
	marks := after.Marks
	next := end.Parent().MaybeChild(end.Index(end.Depth))
	for i := 0; i < len(marks); i++ {
		if !marks[i].Type.Inclusive() && (next == nil || !marks[i].IsInSet(next.Marks)) {
			marks = marks[i].RemoveFromSet(marks)
			i--
		}
	}
	return marks
}

// SharedDepth returns the depth up to which this position and pos share ancestors.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for d := r.Depth; d > 0; d-- {
		if r.Start(d) <= pos && r.End(d) >= pos {
			return d
		}
	}
	return 0
}

// SameParent reports whether both positions share the same parent node.
func (r *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return r.Pos-r.ParentOffset == other.Pos-other.ParentOffset
}

// BlockRange returns the range of sibling block nodes spanning this position
// and other, optionally requiring pred to accept the parent. It returns nil
// when no such range exists.
func (r *ResolvedPos) BlockRange(other *ResolvedPos, pred func(*Node) bool) *NodeRange {
	if other == nil {
		other = r
	}
	if other.Pos < r.Pos {
		return other.BlockRange(r, pred)
	}
	d := r.Depth
	if r.Parent().InlineContent() || r.Pos == other.Pos {
		d--
	}
	for ; d >= 0; d-- {
		if other.Pos <= r.End(d) && (pred == nil || pred(r.Node(d))) {
			return &NodeRange{From: r, To: other, Depth: d}
		}
	}
	return nil
}

// Min returns the resolved position with the smaller Pos.
func (r *ResolvedPos) Min(other *ResolvedPos) *ResolvedPos {
	if other.Pos < r.Pos {
		return other
	}
	return r
}

// Max returns the resolved position with the larger Pos.
func (r *ResolvedPos) Max(other *ResolvedPos) *ResolvedPos {
	if other.Pos > r.Pos {
		return other
	}
	return r
}

func (r *ResolvedPos) String() string {
	var b strings.Builder
	for d := 1; d <= r.Depth; d++ {
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		fmt.Fprintf(&b, "%s_%d", r.Node(d).Type.Name, r.Index(d-1))
	}
	return fmt.Sprintf("%s:%d", b.String(), r.ParentOffset)
}

// NodeRange is a flat range of sibling nodes within a parent.
type NodeRange struct {
	From  *ResolvedPos
	To    *ResolvedPos
	Depth int
}

// Start is the position at the start of the range.
func (nr *NodeRange) Start() int { return nr.From.Before(nr.Depth + 1) }

// End is the position at the end of the range.
func (nr *NodeRange) End() int { return nr.To.After(nr.Depth + 1) }

// Parent is the node the range points into.
func (nr *NodeRange) Parent() *Node { return nr.From.Node(nr.Depth) }

// StartIndex is the index of the first node in the range.
func (nr *NodeRange) StartIndex() int { return nr.From.Index(nr.Depth) }

// EndIndex is the index after the last node in the range.
func (nr *NodeRange) EndIndex() int { return nr.To.IndexAfter(nr.Depth) }
