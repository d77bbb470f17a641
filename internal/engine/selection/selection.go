package selection

import (
	"fmt"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Selection is a selection in a specific document. Selections are immutable
// values; Map produces a selection in a later document.
//
// The set of kinds is closed: TextSelection, NodeSelection and AllSelection.
type Selection interface {
	// Anchor is the side of the selection that stays put when it is extended.
	Anchor() int
	// Head is the side that moves.
	Head() int
	// From is the lower bound of the selection.
	From() int
	// To is the upper bound of the selection.
	To() int
	// Empty reports whether the selection covers no content.
	Empty() bool

	// Map maps the selection through mapping into doc, the document the
	// mapping produced.
	Map(doc *model.Node, mapping transform.Mappable) Selection
	// Eq reports whether two selections are of the same kind and cover the
	// same range.
	Eq(other Selection) bool
	// Bookmark returns a document-independent handle for the selection.
	Bookmark() Bookmark
	// ToJSON encodes the selection.
	ToJSON() ([]byte, error)

	fmt.Stringer
	isSelection()
}

// TextSelection is a selection between two positions in inline content. A
// collapsed text selection is a cursor.
type TextSelection struct {
	anchor *model.ResolvedPos
	head   *model.ResolvedPos
}

// NewTextSelection creates a text selection from resolved anchor and head
// positions. A nil head collapses the selection at anchor.
func NewTextSelection(anchor, head *model.ResolvedPos) *TextSelection {
	if head == nil {
		head = anchor
	}
	return &TextSelection{anchor: anchor, head: head}
}

// CreateText resolves anchor and head in doc and creates a text selection.
func CreateText(doc *model.Node, anchor, head int) (*TextSelection, error) {
	rAnchor, err := doc.Resolve(anchor)
	if err != nil {
		return nil, err
	}
	rHead, err := doc.Resolve(head)
	if err != nil {
		return nil, err
	}
	return NewTextSelection(rAnchor, rHead), nil
}

func (s *TextSelection) isSelection() {}

// Anchor implements Selection.
func (s *TextSelection) Anchor() int { return s.anchor.Pos }

// Head implements Selection.
func (s *TextSelection) Head() int { return s.head.Pos }

// From implements Selection.
func (s *TextSelection) From() int { return min(s.anchor.Pos, s.head.Pos) }

// To implements Selection.
func (s *TextSelection) To() int { return max(s.anchor.Pos, s.head.Pos) }

// Empty implements Selection.
func (s *TextSelection) Empty() bool { return s.anchor.Pos == s.head.Pos }

// ResolvedHead returns the resolved head position.
func (s *TextSelection) ResolvedHead() *model.ResolvedPos { return s.head }

// ResolvedAnchor returns the resolved anchor position.
func (s *TextSelection) ResolvedAnchor() *model.ResolvedPos { return s.anchor }

// Cursor returns the resolved head when the selection is collapsed, nil otherwise.
func (s *TextSelection) Cursor() *model.ResolvedPos {
	if s.Empty() {
		return s.head
	}
	return nil
}

// Map implements Selection. When the head no longer lands in inline content
// the nearest valid selection is used instead.
func (s *TextSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	head := resolveClamped(doc, mapping.Map(s.head.Pos, 1))
	if !head.Parent().InlineContent() {
		return Near(head, 1)
	}
	anchor := resolveClamped(doc, mapping.Map(s.anchor.Pos, 1))
	if !anchor.Parent().InlineContent() {
		anchor = head
	}
	return NewTextSelection(anchor, head)
}

// Eq implements Selection.
func (s *TextSelection) Eq(other Selection) bool {
	o, ok := other.(*TextSelection)
	return ok && o.anchor.Pos == s.anchor.Pos && o.head.Pos == s.head.Pos
}

// Bookmark implements Selection.
func (s *TextSelection) Bookmark() Bookmark {
	return TextBookmark{Anchor: s.anchor.Pos, Head: s.head.Pos}
}

func (s *TextSelection) String() string {
	return fmt.Sprintf("text(%d, %d)", s.anchor.Pos, s.head.Pos)
}

// NodeSelection selects a single node, the one directly after From.
type NodeSelection struct {
	from *model.ResolvedPos
	node *model.Node
}

// NewNodeSelection selects the node after pos. It fails when there is none or
// the node is text.
func NewNodeSelection(pos *model.ResolvedPos) (*NodeSelection, error) {
	node := pos.NodeAfter()
	if node == nil || !Selectable(node) {
		return nil, fmt.Errorf("%w: no selectable node after %d", ErrInvalidSelection, pos.Pos)
	}
	return &NodeSelection{from: pos, node: node}, nil
}

// CreateNode resolves pos in doc and selects the node after it.
func CreateNode(doc *model.Node, pos int) (*NodeSelection, error) {
	rPos, err := doc.Resolve(pos)
	if err != nil {
		return nil, err
	}
	return NewNodeSelection(rPos)
}

// Selectable reports whether node can be the target of a node selection.
func Selectable(node *model.Node) bool { return !node.IsText() }

func (s *NodeSelection) isSelection() {}

// Anchor implements Selection.
func (s *NodeSelection) Anchor() int { return s.from.Pos }

// Head implements Selection.
func (s *NodeSelection) Head() int { return s.To() }

// From implements Selection.
func (s *NodeSelection) From() int { return s.from.Pos }

// To implements Selection.
func (s *NodeSelection) To() int { return s.from.Pos + s.node.NodeSize() }

// Empty implements Selection.
func (s *NodeSelection) Empty() bool { return false }

// Node returns the selected node.
func (s *NodeSelection) Node() *model.Node { return s.node }

// Map implements Selection. A deleted node turns into the nearest valid selection.
func (s *NodeSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	r := mapping.MapResult(s.from.Pos, 1)
	pos := resolveClamped(doc, r.Pos)
	if r.Deleted() {
		return Near(pos, 1)
	}
	sel, err := NewNodeSelection(pos)
	if err != nil {
		return Near(pos, 1)
	}
	return sel
}

// Eq implements Selection.
func (s *NodeSelection) Eq(other Selection) bool {
	o, ok := other.(*NodeSelection)
	return ok && o.from.Pos == s.from.Pos
}

// Bookmark implements Selection.
func (s *NodeSelection) Bookmark() Bookmark { return NodeBookmark{Pos: s.from.Pos} }

func (s *NodeSelection) String() string {
	return fmt.Sprintf("node(%d, %s)", s.from.Pos, s.node.Type.Name)
}

// AllSelection covers the whole document.
type AllSelection struct {
	doc *model.Node
}

// NewAllSelection selects all of doc.
func NewAllSelection(doc *model.Node) *AllSelection { return &AllSelection{doc: doc} }

func (s *AllSelection) isSelection() {}

// Anchor implements Selection.
func (s *AllSelection) Anchor() int { return 0 }

// Head implements Selection.
func (s *AllSelection) Head() int { return s.doc.Content().Size() }

// From implements Selection.
func (s *AllSelection) From() int { return 0 }

// To implements Selection.
func (s *AllSelection) To() int { return s.doc.Content().Size() }

// Empty implements Selection.
func (s *AllSelection) Empty() bool { return s.doc.Content().Size() == 0 }

// Map implements Selection.
func (s *AllSelection) Map(doc *model.Node, _ transform.Mappable) Selection {
	return NewAllSelection(doc)
}

// Eq implements Selection.
func (s *AllSelection) Eq(other Selection) bool {
	_, ok := other.(*AllSelection)
	return ok
}

// Bookmark implements Selection.
func (s *AllSelection) Bookmark() Bookmark { return AllBookmark{} }

func (s *AllSelection) String() string { return "all" }

// resolveClamped resolves pos after clamping it into doc's content range.
func resolveClamped(doc *model.Node, pos int) *model.ResolvedPos {
	return doc.MustResolve(max(0, min(pos, doc.Content().Size())))
}
