package model

import (
	"fmt"
)

// Slice is a piece of a document: a fragment plus the depth to which its
// start and end are open, meaning the nodes at those edges are cut off.
type Slice struct {
	Content   *Fragment
	OpenStart int
	OpenEnd   int
}

// EmptySlice is the slice with no content.
var EmptySlice = &Slice{Content: EmptyFragment}

// NewSlice creates a slice.
func NewSlice(content *Fragment, openStart, openEnd int) *Slice {
	if content == nil {
		content = EmptyFragment
	}
	return &Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// Size is the number of positions the slice occupies when inserted.
func (s *Slice) Size() int {
	return s.Content.Size() - s.OpenStart - s.OpenEnd
}

// Eq reports structural equality.
func (s *Slice) Eq(other *Slice) bool {
	return s.Content.Eq(other.Content) && s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd
}

// InsertAt inserts a fragment at pos within the slice. It returns nil when
// the content would not be valid there.
func (s *Slice) InsertAt(pos int, frag *Fragment) *Slice {
	content := insertInto(s.Content, pos+s.OpenStart, frag, nil)
	if content == nil {
		return nil
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd)
}

// RemoveBetween removes the flat range [from, to) from the slice.
func (s *Slice) RemoveBetween(from, to int) (*Slice, error) {
	content, err := removeRange(s.Content, from+s.OpenStart, to+s.OpenStart)
	if err != nil {
		return nil, err
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd), nil
}

func (s *Slice) String() string {
	return fmt.Sprintf("%s(%d,%d)", s.Content.String(), s.OpenStart, s.OpenEnd)
}

// MaxOpen creates a slice from a fragment with the maximum possible open depth on both sides.
func MaxOpen(frag *Fragment) *Slice {
	openStart, openEnd := maxOpenDepths(frag)
	return NewSlice(frag, openStart, openEnd)
}

// checkOpen reports an error when the open depths are negative or deeper
// than the slice's edge nodes.
func (s *Slice) checkOpen() error {
	maxStart, maxEnd := maxOpenDepths(s.Content)
	if s.OpenStart < 0 || s.OpenEnd < 0 || s.OpenStart > maxStart || s.OpenEnd > maxEnd {
		return fmt.Errorf("open depths (%d,%d) exceed slice content (%d,%d)", s.OpenStart, s.OpenEnd, maxStart, maxEnd)
	}
	return nil
}

func maxOpenDepths(frag *Fragment) (openStart, openEnd int) {
	for n := frag.FirstChild(); n != nil && !n.IsLeaf(); n = n.FirstChild() {
		openStart++
	}
	for n := frag.LastChild(); n != nil && !n.IsLeaf(); n = n.LastChild() {
		openEnd++
	}
	return openStart, openEnd
}

func removeRange(content *Fragment, from, to int) (*Fragment, error) {
	start, err := content.findIndex(from, 0)
	if err != nil {
		return nil, err
	}
	end, err := content.findIndex(to, 0)
	if err != nil {
		return nil, err
	}
	child := content.MaybeChild(start.index)
	if start.offset == from || child.IsText() {
		if end.offset != to && !content.Child(end.index).IsText() {
			return nil, fmt.Errorf("%w: removing non-flat range", ErrPositionOutOfRange)
		}
		return content.Cut(0, from).Append(content.Cut(to, content.Size())), nil
	}
	if start.index != end.index {
		return nil, fmt.Errorf("%w: removing non-flat range", ErrPositionOutOfRange)
	}
	inner, err := removeRange(child.content, from-start.offset-1, to-start.offset-1)
	if err != nil {
		return nil, err
	}
	return content.ReplaceChild(start.index, child.Copy(inner)), nil
}

func insertInto(content *Fragment, dist int, insert *Fragment, parent *Node) *Fragment {
	res, err := content.findIndex(dist, 0)
	if err != nil {
		return nil
	}
	child := content.MaybeChild(res.index)
	if res.offset == dist || child.IsText() {
		if parent != nil && !parent.CanReplace(res.index, res.index, insert, 0, insert.ChildCount()) {
			return nil
		}
		return content.Cut(0, dist).Append(insert).Append(content.Cut(dist, content.Size()))
	}
	inner := insertInto(child.content, dist-res.offset-1, insert, child)
	if inner == nil {
		return nil
	}
	return content.ReplaceChild(res.index, child.Copy(inner))
}
