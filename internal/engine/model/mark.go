package model

import (
	"sort"
	"strings"
)

// Mark is a piece of information attached to inline content, such as
// emphasis or a link. Marks are immutable values.
type Mark struct {
	Type  *MarkType
	Attrs Attrs
}

// Eq reports whether two marks have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	return m == other || (m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs))
}

// AddToSet returns a set with this mark added. Marks excluded by this one
// are dropped; if the set holds a mark that excludes this one, the set is
// returned unchanged.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	var cp []*Mark
	placed := false
	for i, other := range set {
		if m.Eq(other) {
			return set
		}
		if m.Type.Excludes(other.Type) {
			if cp == nil {
				cp = append([]*Mark{}, set[:i]...)
			}
			continue
		}
		if other.Type.Excludes(m.Type) {
			return set
		}
		if !placed && other.Type.rank > m.Type.rank {
			if cp == nil {
				cp = append([]*Mark{}, set[:i]...)
			}
			cp = append(cp, m)
			placed = true
		}
		if cp != nil {
			cp = append(cp, other)
		}
	}
	if cp == nil {
		cp = append([]*Mark{}, set...)
	}
	if !placed {
		cp = append(cp, m)
	}
	return cp
}

// RemoveFromSet returns the set without this mark.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			out := make([]*Mark, 0, len(set)-1)
			out = append(out, set[:i]...)
			return append(out, set[i+1:]...)
		}
	}
	return set
}

// IsInSet reports whether this mark is in the set.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, other := range set {
		if m.Eq(other) {
			return true
		}
	}
	return false
}

func (m *Mark) String() string {
	if len(m.Attrs) == 0 {
		return m.Type.Name
	}
	keys := make([]string, 0, len(m.Attrs))
	for k := range m.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(m.Type.Name)
	b.WriteByte('(')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(m.Attrs[k]))
	}
	b.WriteByte(')')
	return b.String()
}

// SameMarkSet reports whether two sets hold the same marks.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// MarkSetFrom builds a sorted mark set from an arbitrary slice of marks.
func MarkSetFrom(marks []*Mark) []*Mark {
	switch len(marks) {
	case 0:
		return nil
	case 1:
		return marks
	}
	cp := append([]*Mark{}, marks...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Type.rank < cp[j].Type.rank })
	return cp
}
