package transform

import (
	"fmt"
	"strings"
)

// Recover values identify a position inside a replaced range so that a
// mirrored map can restore it exactly: the range index in the low 16 bits,
// the offset into the range above them.
const (
	recoverLower16 = 0xffff
	recoverFactor  = 1 << 16
	noRecover      = -1
)

func makeRecover(index, offset int) int { return index + offset*recoverFactor }
func recoverIndex(v int) int            { return v & recoverLower16 }
func recoverOffset(v int) int           { return (v - (v & recoverLower16)) / recoverFactor }

// Deletion flags reported by MapResult.
const (
	delBefore = 1 << iota
	delAfter
	delAcross
	delSide
)

// MapResult describes a mapped position.
type MapResult struct {
	// Pos is the mapped position.
	Pos int

	delInfo int
	recover int
}

// Deleted reports whether the content on the side the position is associated
// with was deleted.
func (r MapResult) Deleted() bool { return r.delInfo&delSide > 0 }

// DeletedBefore reports whether the token before the position was deleted.
func (r MapResult) DeletedBefore() bool { return r.delInfo&(delBefore|delAcross) > 0 }

// DeletedAfter reports whether the token after the position was deleted.
func (r MapResult) DeletedAfter() bool { return r.delInfo&(delAfter|delAcross) > 0 }

// DeletedAcross reports whether the position lay strictly inside a deleted range.
func (r MapResult) DeletedAcross() bool { return r.delInfo&delAcross > 0 }

// Mappable is anything that maps positions: a StepMap or a Mapping.
type Mappable interface {
	// Map maps a position. assoc < 0 keeps a position at the edge of an
	// insertion before it; assoc > 0 moves it after.
	Map(pos, assoc int) int
	// MapResult maps a position and reports deletion information.
	MapResult(pos, assoc int) MapResult
}

// StepMap records the ranges replaced by a single step as
// (start, oldSize, newSize) triples, sorted by start.
type StepMap struct {
	ranges   []int
	inverted bool
}

// EmptyStepMap maps every position to itself.
var EmptyStepMap = &StepMap{}

// NewStepMap creates a map from flat (start, oldSize, newSize) triples.
func NewStepMap(ranges []int) *StepMap {
	if len(ranges) == 0 {
		return EmptyStepMap
	}
	return &StepMap{ranges: ranges}
}

// OffsetStepMap returns a map that shifts every position by n.
func OffsetStepMap(n int) *StepMap {
	switch {
	case n == 0:
		return EmptyStepMap
	case n < 0:
		return NewStepMap([]int{0, -n, 0})
	}
	return NewStepMap([]int{0, 0, n})
}

// Ranges returns a copy of the raw range triples.
func (m *StepMap) Ranges() []int { return append([]int(nil), m.ranges...) }

// Inverted reports whether the map maps from the new document to the old.
func (m *StepMap) Inverted() bool { return m.inverted }

func (m *StepMap) indices() (oldIndex, newIndex int) {
	if m.inverted {
		return 2, 1
	}
	return 1, 2
}

func (m *StepMap) recoverPos(value int) int {
	diff := 0
	index := recoverIndex(value)
	if !m.inverted {
		for i := 0; i < index; i++ {
			diff += m.ranges[i*3+2] - m.ranges[i*3+1]
		}
	}
	return m.ranges[index*3] + diff + recoverOffset(value)
}

// Map maps a position through this map.
func (m *StepMap) Map(pos, assoc int) int {
	return m.mapPos(pos, assoc, true).Pos
}

// MapResult maps a position and reports whether it was deleted.
func (m *StepMap) MapResult(pos, assoc int) MapResult {
	return m.mapPos(pos, assoc, false)
}

func (m *StepMap) mapPos(pos, assoc int, simple bool) MapResult {
	diff := 0
	oldIndex, newIndex := m.indices()
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			side := assoc
			if oldSize > 0 {
				switch pos {
				case start:
					side = -1
				case end:
					side = 1
				}
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			if simple {
				return MapResult{Pos: result, recover: noRecover}
			}
			recover := makeRecover(i/3, pos-start)
			edge := end
			if assoc < 0 {
				edge = start
			}
			if pos == edge {
				recover = noRecover
			}
			del := delAcross
			if pos == start {
				del = delAfter
			} else if pos == end {
				del = delBefore
			}
			if pos != edge {
				del |= delSide
			}
			return MapResult{Pos: result, delInfo: del, recover: recover}
		}
		diff += newSize - oldSize
	}
	return MapResult{Pos: pos + diff, recover: noRecover}
}

// Touches reports whether the range identified by recover touches pos.
func (m *StepMap) Touches(pos, recover int) bool {
	diff := 0
	index := recoverIndex(recover)
	oldIndex, newIndex := m.indices()
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize := m.ranges[i+oldIndex]
		if pos <= start+oldSize && i == index*3 {
			return true
		}
		diff += m.ranges[i+newIndex] - oldSize
	}
	return false
}

// ForEach calls fn with the old and new extent of every changed range.
func (m *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := m.indices()
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		oldStart, newStart := start, start
		if m.inverted {
			oldStart -= diff
		} else {
			newStart += diff
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Invert returns the map from the new document back to the old.
func (m *StepMap) Invert() *StepMap {
	if len(m.ranges) == 0 {
		return m
	}
	return &StepMap{ranges: m.ranges, inverted: !m.inverted}
}

func (m *StepMap) String() string {
	parts := make([]string, len(m.ranges))
	for i, r := range m.ranges {
		parts[i] = fmt.Sprint(r)
	}
	prefix := ""
	if m.inverted {
		prefix = "-"
	}
	return prefix + "(" + strings.Join(parts, ", ") + ")"
}
