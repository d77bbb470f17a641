package selection

import (
	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/transform"
)

// Bookmark is a lightweight, document-free record of a selection. It can be
// mapped through changes without a document at hand and resolved back into
// a Selection later. History stores bookmarks.
type Bookmark interface {
	// Map maps the bookmark through a mapping.
	Map(mapping transform.Mappable) Bookmark
	// Resolve turns the bookmark into a selection in doc.
	Resolve(doc *model.Node) Selection
}

// TextBookmark records a text selection.
type TextBookmark struct {
	Anchor int
	Head   int
}

// Map implements Bookmark.
func (b TextBookmark) Map(mapping transform.Mappable) Bookmark {
	return TextBookmark{Anchor: mapping.Map(b.Anchor, 1), Head: mapping.Map(b.Head, 1)}
}

// Resolve implements Bookmark.
func (b TextBookmark) Resolve(doc *model.Node) Selection {
	head := resolveClamped(doc, b.Head)
	if !head.Parent().InlineContent() {
		return Near(head, 1)
	}
	anchor := resolveClamped(doc, b.Anchor)
	if !anchor.Parent().InlineContent() {
		anchor = head
	}
	return NewTextSelection(anchor, head)
}

// NodeBookmark records a node selection.
type NodeBookmark struct {
	Pos int
}

// Map implements Bookmark. A deleted node degrades to a text bookmark.
func (b NodeBookmark) Map(mapping transform.Mappable) Bookmark {
	r := mapping.MapResult(b.Pos, 1)
	if r.Deleted() {
		return TextBookmark{Anchor: r.Pos, Head: r.Pos}
	}
	return NodeBookmark{Pos: r.Pos}
}

// Resolve implements Bookmark.
func (b NodeBookmark) Resolve(doc *model.Node) Selection {
	pos := resolveClamped(doc, b.Pos)
	if sel, err := NewNodeSelection(pos); err == nil {
		return sel
	}
	return Near(pos, 1)
}

// AllBookmark records a whole-document selection.
type AllBookmark struct{}

// Map implements Bookmark.
func (b AllBookmark) Map(transform.Mappable) Bookmark { return b }

// Resolve implements Bookmark.
func (AllBookmark) Resolve(doc *model.Node) Selection { return NewAllSelection(doc) }
