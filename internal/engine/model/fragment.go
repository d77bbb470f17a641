package model

import (
	"fmt"
	"strings"
)

// Fragment is an immutable sequence of child nodes. Adjacent text nodes with
// the same marks are always joined.
type Fragment struct {
	content []*Node
	size    int
}

// EmptyFragment is the fragment with no children.
var EmptyFragment = &Fragment{}

func newFragment(content []*Node, size int) *Fragment {
	if len(content) == 0 {
		return EmptyFragment
	}
	return &Fragment{content: content, size: size}
}

// FragmentFromArray builds a fragment from nodes, joining adjacent text nodes
// that share a mark set.
func FragmentFromArray(nodes []*Node) *Fragment {
	if len(nodes) == 0 {
		return EmptyFragment
	}
	var joined []*Node
	size := 0
	for i, n := range nodes {
		size += n.NodeSize()
		if i > 0 && n.IsText() && nodes[i-1].SameMarkup(n) {
			if joined == nil {
				joined = append([]*Node{}, nodes[:i]...)
			}
			last := joined[len(joined)-1]
			joined[len(joined)-1] = last.withText(last.text + n.text)
		} else if joined != nil {
			joined = append(joined, n)
		}
	}
	if joined == nil {
		joined = append([]*Node{}, nodes...)
	}
	return newFragment(joined, size)
}

// FragmentFrom wraps a single node in a fragment. A nil node gives the empty fragment.
func FragmentFrom(node *Node) *Fragment {
	if node == nil {
		return EmptyFragment
	}
	return &Fragment{content: []*Node{node}, size: node.NodeSize()}
}

// Size is the total size of the fragment's children.
func (f *Fragment) Size() int { return f.size }

// ChildCount is the number of children.
func (f *Fragment) ChildCount() int { return len(f.content) }

// Child returns the child at index i. It panics when i is out of range.
func (f *Fragment) Child(i int) *Node { return f.content[i] }

// MaybeChild returns the child at index i, or nil.
func (f *Fragment) MaybeChild(i int) *Node {
	if i < 0 || i >= len(f.content) {
		return nil
	}
	return f.content[i]
}

// FirstChild returns the first child, or nil.
func (f *Fragment) FirstChild() *Node { return f.MaybeChild(0) }

// LastChild returns the last child, or nil.
func (f *Fragment) LastChild() *Node { return f.MaybeChild(len(f.content) - 1) }

// Children returns a copy of the child list.
func (f *Fragment) Children() []*Node { return append([]*Node(nil), f.content...) }

// ForEach calls fn for every child with its offset and index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	pos := 0
	for i, child := range f.content {
		fn(child, pos, i)
		pos += child.NodeSize()
	}
}

// NodesBetween calls fn for each node touching the range [from, to), descending
// into children while fn returns true. nodeStart is the absolute start of f.
func (f *Fragment) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool, nodeStart int, parent *Node) {
	pos := 0
	for i := 0; pos < to && i < len(f.content); i++ {
		child := f.content[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.content.Size() > 0 {
			start := pos + 1
			child.NodesBetween(max(0, from-start), min(child.content.Size(), to-start), fn, nodeStart+start)
		}
		pos = end
	}
}

// Descendants calls fn for every descendant node.
func (f *Fragment) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	f.NodesBetween(0, f.size, fn, 0, nil)
}

// TextBetween returns the text in [from, to), placing blockSeparator between
// textblocks and leafText for non-text leaf nodes.
func (f *Fragment) TextBetween(from, to int, blockSeparator, leafText string) string {
	var b strings.Builder
	first := true
	f.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		var text string
		switch {
		case node.IsText():
			runes := []rune(node.text)
			text = string(runes[max(from, pos)-pos : min(len(runes), to-pos)])
		case node.IsLeaf():
			text = leafText
		}
		if node.IsBlock() && ((node.IsLeaf() && text != "") || node.IsTextblock()) && blockSeparator != "" {
			if first {
				first = false
			} else {
				b.WriteString(blockSeparator)
			}
		}
		b.WriteString(text)
		return true
	}, 0, nil)
	return b.String()
}

// Append concatenates two fragments, joining text at the seam.
func (f *Fragment) Append(other *Fragment) *Fragment {
	if other.size == 0 {
		return f
	}
	if f.size == 0 {
		return other
	}
	last, first := f.LastChild(), other.FirstChild()
	content := append([]*Node{}, f.content...)
	i := 0
	if last.IsText() && last.SameMarkup(first) {
		content[len(content)-1] = last.withText(last.text + first.text)
		i = 1
	}
	content = append(content, other.content[i:]...)
	return newFragment(content, f.size+other.size)
}

// Cut returns the part of the fragment between from and to.
func (f *Fragment) Cut(from, to int) *Fragment {
	if from == 0 && to == f.size {
		return f
	}
	var result []*Node
	size := 0
	if to > from {
		pos := 0
		for i := 0; pos < to && i < len(f.content); i++ {
			child := f.content[i]
			end := pos + child.NodeSize()
			if end > from {
				if pos < from || end > to {
					if child.IsText() {
						child = child.Cut(max(0, from-pos), min(child.TextLen(), to-pos))
					} else {
						child = child.Cut(max(0, from-pos-1), min(child.content.Size(), to-pos-1))
					}
				}
				result = append(result, child)
				size += child.NodeSize()
			}
			pos = end
		}
	}
	return newFragment(result, size)
}

func (f *Fragment) cutByIndex(from, to int) *Fragment {
	if from == to {
		return EmptyFragment
	}
	if from == 0 && to == len(f.content) {
		return f
	}
	return FragmentFromArray(f.content[from:to])
}

// ReplaceChild returns a fragment with the child at index replaced.
func (f *Fragment) ReplaceChild(index int, node *Node) *Fragment {
	current := f.content[index]
	if current == node {
		return f
	}
	cp := append([]*Node{}, f.content...)
	cp[index] = node
	return newFragment(cp, f.size+node.NodeSize()-current.NodeSize())
}

// AddToStart prepends a node.
func (f *Fragment) AddToStart(node *Node) *Fragment {
	return newFragment(append([]*Node{node}, f.content...), f.size+node.NodeSize())
}

// AddToEnd appends a node.
func (f *Fragment) AddToEnd(node *Node) *Fragment {
	return newFragment(append(append([]*Node{}, f.content...), node), f.size+node.NodeSize())
}

// Eq reports structural equality.
func (f *Fragment) Eq(other *Fragment) bool {
	if len(f.content) != len(other.content) {
		return false
	}
	for i := range f.content {
		if !f.content[i].Eq(other.content[i]) {
			return false
		}
	}
	return true
}

// FindDiffStart returns the first position at which the fragments differ,
// or -1 when they are equal.
func (f *Fragment) FindDiffStart(other *Fragment, pos int) int {
	for i := 0; ; i++ {
		if i == len(f.content) || i == len(other.content) {
			if len(f.content) == len(other.content) {
				return -1
			}
			return pos
		}
		a, b := f.content[i], other.content[i]
		if a == b {
			pos += a.NodeSize()
			continue
		}
		if !a.SameMarkup(b) {
			return pos
		}
		if a.IsText() && a.text != b.text {
			ra, rb := []rune(a.text), []rune(b.text)
			for j := 0; j < len(ra) && j < len(rb) && ra[j] == rb[j]; j++ {
				pos++
			}
			return pos
		}
		if a.content.size > 0 || b.content.size > 0 {
			if inner := a.content.FindDiffStart(b.content, pos+1); inner != -1 {
				return inner
			}
		}
		pos += a.NodeSize()
	}
}

type findResult struct {
	index, offset int
}

// findIndex locates the child containing pos. With round set, positions
// past the midpoint of a child snap to its end.
func (f *Fragment) findIndex(pos int, round int) (findResult, error) {
	if pos == 0 {
		return findResult{0, pos}, nil
	}
	if pos == f.size {
		return findResult{len(f.content), pos}, nil
	}
	if pos > f.size || pos < 0 {
		return findResult{}, outOfRange(pos, f.size)
	}
	cur := 0
	for i := 0; ; i++ {
		end := cur + f.content[i].NodeSize()
		if end >= pos {
			if end == pos || round > 0 {
				return findResult{i + 1, end}, nil
			}
			return findResult{i, cur}, nil
		}
		cur = end
	}
}

// String renders the fragment as "<child, child>".
func (f *Fragment) String() string {
	return "<" + f.toStringInner() + ">"
}

func (f *Fragment) toStringInner() string {
	parts := make([]string, len(f.content))
	for i, c := range f.content {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// GoString helps test failure output.
func (f *Fragment) GoString() string { return fmt.Sprintf("Fragment%s", f.String()) }
