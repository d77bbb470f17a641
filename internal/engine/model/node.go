package model

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Node is an immutable document node. Text nodes carry text and no content;
// all other nodes carry a fragment of children.
type Node struct {
	Type  *NodeType
	Attrs Attrs
	Marks []*Mark

	content *Fragment
	text    string
	textLen int
}

func newNode(t *NodeType, attrs Attrs, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	return &Node{Type: t, Attrs: attrs, Marks: marks, content: content}
}

func newTextNode(t *NodeType, text string, marks []*Mark) *Node {
	return &Node{Type: t, Attrs: Attrs{}, Marks: marks, content: EmptyFragment, text: text, textLen: utf8.RuneCountInString(text)}
}

// Content returns the node's children.
func (n *Node) Content() *Fragment { return n.content }

// Text returns the text of a text node, or "" for other nodes.
func (n *Node) Text() string { return n.text }

// TextLen returns the number of runes in a text node.
func (n *Node) TextLen() int { return n.textLen }

// NodeSize is the size of the node in positions: the rune count for text,
// 1 for leaves, and content size plus 2 for other nodes.
func (n *Node) NodeSize() int {
	switch {
	case n.Type.IsText():
		return n.textLen
	case n.Type.IsLeaf():
		return 1
	}
	return 2 + n.content.Size()
}

// ChildCount is the number of children.
func (n *Node) ChildCount() int { return n.content.ChildCount() }

// Child returns the child at index i.
func (n *Node) Child(i int) *Node { return n.content.Child(i) }

// MaybeChild returns the child at index i, or nil.
func (n *Node) MaybeChild(i int) *Node { return n.content.MaybeChild(i) }

// FirstChild returns the first child, or nil.
func (n *Node) FirstChild() *Node { return n.content.FirstChild() }

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node { return n.content.LastChild() }

func (n *Node) IsText() bool        { return n.Type.IsText() }
func (n *Node) IsBlock() bool       { return n.Type.IsBlock() }
func (n *Node) IsInline() bool      { return n.Type.IsInline() }
func (n *Node) IsTextblock() bool   { return n.Type.IsTextblock() }
func (n *Node) IsLeaf() bool        { return n.Type.IsLeaf() }
func (n *Node) IsAtom() bool        { return n.Type.IsAtom() }
func (n *Node) InlineContent() bool { return n.Type.InlineContent() }

// Eq reports structural equality.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if !n.SameMarkup(other) {
		return false
	}
	if n.IsText() {
		return n.text == other.text
	}
	return n.content.Eq(other.content)
}

// SameMarkup reports whether two nodes have the same type, attributes and marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// HasMarkup reports whether the node has the given type, attributes and marks.
func (n *Node) HasMarkup(t *NodeType, attrs Attrs, marks []*Mark) bool {
	if attrs == nil {
		attrs = t.defaultAttrs
	}
	return n.Type == t && attrsEqual(n.Attrs, attrs) && SameMarkSet(n.Marks, marks)
}

// Copy returns a node with the same markup and the given content.
func (n *Node) Copy(content *Fragment) *Node {
	if content == n.content {
		return n
	}
	if n.IsText() {
		return n
	}
	return newNode(n.Type, n.Attrs, content, n.Marks)
}

// Mark returns the node with the given mark set.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(marks, n.Marks) {
		return n
	}
	if n.IsText() {
		return newTextNode(n.Type, n.text, marks)
	}
	return newNode(n.Type, n.Attrs, n.content, marks)
}

func (n *Node) withText(text string) *Node {
	if text == n.text {
		return n
	}
	return newTextNode(n.Type, text, n.Marks)
}

// Cut returns a copy holding only the content between from and to.
func (n *Node) Cut(from, to int) *Node {
	if n.IsText() {
		if from == 0 && to == n.textLen {
			return n
		}
		return n.withText(runeSlice(n.text, from, to))
	}
	if from == 0 && to == n.content.Size() {
		return n
	}
	return n.Copy(n.content.Cut(from, to))
}

func runeSlice(s string, from, to int) string {
	if from == 0 && to >= utf8.RuneCountInString(s) {
		return s
	}
	r := []rune(s)
	return string(r[from:to])
}

// Slice cuts the document between from and to into a slice. With
// includeParents, the slice is opened up to the shared depth of both ends.
func (n *Node) Slice(from, to int, includeParents bool) (*Slice, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d > to %d", ErrPositionOutOfRange, from, to)
	}
	if from == to {
		if _, err := n.Resolve(from); err != nil {
			return nil, err
		}
		return EmptySlice, nil
	}
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := 0
	if !includeParents {
		depth = rFrom.SharedDepth(to)
	}
	start := rFrom.Start(depth)
	node := rFrom.Node(depth)
	content := node.content.Cut(rFrom.Pos-start, rTo.Pos-start)
	return NewSlice(content, rFrom.Depth-depth, rTo.Depth-depth), nil
}

// Replace replaces the range [from, to) of the node's content with the slice.
func (n *Node) Replace(from, to int, slice *Slice) (*Node, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d > to %d", ErrPositionOutOfRange, from, to)
	}
	rFrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rTo, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	return replace(rFrom, rTo, slice)
}

// NodeAt returns the node starting directly after pos, or nil.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		res, err := node.content.findIndex(pos, 0)
		if err != nil {
			return nil
		}
		node = node.MaybeChild(res.index)
		if node == nil {
			return nil
		}
		if res.offset == pos || node.IsText() {
			return node
		}
		pos -= res.offset + 1
	}
}

// ChildAfter returns the direct child after the offset, its index and start offset.
func (n *Node) ChildAfter(pos int) (*Node, int, int) {
	res, err := n.content.findIndex(pos, 0)
	if err != nil {
		return nil, 0, 0
	}
	return n.content.MaybeChild(res.index), res.index, res.offset
}

// ChildBefore returns the direct child before the offset, its index and start offset.
func (n *Node) ChildBefore(pos int) (*Node, int, int) {
	if pos == 0 {
		return nil, 0, 0
	}
	res, err := n.content.findIndex(pos, 0)
	if err != nil {
		return nil, 0, 0
	}
	if res.offset < pos {
		return n.content.Child(res.index), res.index, res.offset
	}
	node := n.content.Child(res.index - 1)
	return node, res.index - 1, res.offset - node.NodeSize()
}

// NodesBetween calls fn for each descendant touching [from, to).
func (n *Node) NodesBetween(from, to int, fn func(node *Node, pos int, parent *Node, index int) bool, startPos int) {
	n.content.NodesBetween(from, to, fn, startPos, n)
}

// Descendants calls fn for every descendant.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.NodesBetween(0, n.content.Size(), fn, 0)
}

// TextContent concatenates all text in the node.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.text
	}
	return n.TextBetween(0, n.content.Size(), "", "")
}

// TextBetween returns the text between two positions.
func (n *Node) TextBetween(from, to int, blockSeparator, leafText string) string {
	return n.content.TextBetween(from, to, blockSeparator, leafText)
}

// RangeHasMark reports whether any inline node in [from, to) has a mark of the given type.
func (n *Node) RangeHasMark(from, to int, mt *MarkType) bool {
	found := false
	if to > from {
		n.NodesBetween(from, to, func(node *Node, _ int, _ *Node, _ int) bool {
			if mt.IsInSet(node.Marks) != nil {
				found = true
			}
			return !found
		}, 0)
	}
	return found
}

// ContentMatchAt returns the content match state after the child at index.
func (n *Node) ContentMatchAt(index int) (*ContentMatch, error) {
	match := n.Type.contentMatch.MatchFragment(n.content, 0, index)
	if match == nil {
		return nil, fmt.Errorf("%w: called ContentMatchAt on a node with invalid content", ErrInvalidContent)
	}
	return match, nil
}

// CanReplace reports whether replacing children [from, to) with replacement
// children [start, end) would leave valid content.
func (n *Node) CanReplace(from, to int, replacement *Fragment, start, end int) bool {
	one, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	one = one.MatchFragment(replacement, start, end)
	if one == nil {
		return false
	}
	two := one.MatchFragment(n.content, to, n.content.ChildCount())
	if two == nil || !two.ValidEnd {
		return false
	}
	for i := start; i < end; i++ {
		if !n.Type.AllowsMarks(replacement.Child(i).Marks) {
			return false
		}
	}
	return true
}

// CanReplaceWith reports whether children [from, to) can be replaced by a node of type t.
func (n *Node) CanReplaceWith(from, to int, t *NodeType, marks []*Mark) bool {
	if marks != nil && !n.Type.AllowsMarks(marks) {
		return false
	}
	start, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	start = start.MatchType(t)
	if start == nil {
		return false
	}
	end := start.MatchFragment(n.content, to, n.content.ChildCount())
	return end != nil && end.ValidEnd
}

// CanAppend reports whether the other node's content can be appended to this node.
func (n *Node) CanAppend(other *Node) bool {
	if other.content.Size() > 0 {
		return n.CanReplace(n.ChildCount(), n.ChildCount(), other.content, 0, other.content.ChildCount())
	}
	return n.Type.CompatibleContent(other.Type)
}

// Check verifies that the node and its descendants satisfy the schema.
func (n *Node) Check() error {
	if !n.Type.ValidContent(n.content) {
		return fmt.Errorf("%w for node %s: %s", ErrInvalidContent, n.Type.Name, truncate(n.content.String(), 50))
	}
	var set []*Mark
	for _, m := range n.Marks {
		set = m.AddToSet(set)
	}
	if !SameMarkSet(set, n.Marks) {
		return fmt.Errorf("%w: invalid collection of marks for node %s", ErrInvalidContent, n.Type.Name)
	}
	for _, child := range n.content.content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// String renders the node for debugging, e.g. doc(paragraph("hi")).
func (n *Node) String() string {
	var name string
	if n.IsText() {
		name = strconv.Quote(n.text)
	} else {
		name = n.Type.Name
		if n.content.Size() > 0 {
			name += "(" + n.content.toStringInner() + ")"
		}
	}
	return wrapMarks(n.Marks, name)
}

func wrapMarks(marks []*Mark, s string) string {
	for i := len(marks) - 1; i >= 0; i-- {
		s = marks[i].Type.Name + "(" + s + ")"
	}
	return s
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
