package transform

// Mapping is a pipeline of step maps. Positions are mapped through the maps
// in [From, To). A map may be registered as the mirror image of another
// (typically a step and its inverse); positions deleted by the first are then
// restored exactly when the mapping reaches the second.
type Mapping struct {
	maps   []*StepMap
	mirror []int
	from   int
	to     int
}

// NewMapping creates a mapping over the given maps.
func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{maps: maps, to: len(maps)}
}

// Maps returns the step maps in the mapping's window.
func (m *Mapping) Maps() []*StepMap {
	return append([]*StepMap(nil), m.maps[m.from:m.to]...)
}

// Len returns the number of maps in the underlying list.
func (m *Mapping) Len() int { return len(m.maps) }

// From returns the index of the first map applied.
func (m *Mapping) From() int { return m.from }

// To returns the index after the last map applied.
func (m *Mapping) To() int { return m.to }

// Slice returns a mapping applying only maps [from, to). The result shares
// maps with m, but appending to either does not affect the other.
func (m *Mapping) Slice(from, to int) *Mapping {
	return &Mapping{
		maps:   m.maps[:to:to],
		mirror: append([]int(nil), m.mirror...),
		from:   from,
		to:     to,
	}
}

// SliceFrom is Slice(from, m.Len()).
func (m *Mapping) SliceFrom(from int) *Mapping { return m.Slice(from, len(m.maps)) }

// Copy returns an independent copy.
func (m *Mapping) Copy() *Mapping {
	return &Mapping{
		maps:   append([]*StepMap(nil), m.maps...),
		mirror: append([]int(nil), m.mirror...),
		from:   m.from,
		to:     m.to,
	}
}

// AppendMap adds a map to the end of the mapping. mirror is the index of the
// map this one mirrors, or -1.
func (m *Mapping) AppendMap(sm *StepMap, mirror int) {
	m.maps = append(m.maps, sm)
	m.to = len(m.maps)
	if mirror >= 0 {
		m.SetMirror(len(m.maps)-1, mirror)
	}
}

// AppendMapping appends the maps in other's window, preserving mirrors
// between them.
func (m *Mapping) AppendMapping(other *Mapping) {
	offset := len(m.maps) - other.from
	for i := other.from; i < other.to; i++ {
		mirr := other.GetMirror(i)
		if mirr >= other.from && mirr < i {
			m.AppendMap(other.maps[i], offset+mirr)
		} else {
			m.AppendMap(other.maps[i], -1)
		}
	}
}

// AppendMappingInverted appends the inverse of the maps in other's window.
func (m *Mapping) AppendMappingInverted(other *Mapping) {
	// Map i of other lands at end-i once inverted.
	end := len(m.maps) + other.to - 1
	for i := other.to - 1; i >= other.from; i-- {
		mirr := other.GetMirror(i)
		if mirr > i && mirr < other.to {
			m.AppendMap(other.maps[i].Invert(), end-mirr)
		} else {
			m.AppendMap(other.maps[i].Invert(), -1)
		}
	}
}

// GetMirror returns the index of the map mirroring map n, or -1.
func (m *Mapping) GetMirror(n int) int {
	for i := 0; i < len(m.mirror); i++ {
		if m.mirror[i] == n {
			if i%2 == 1 {
				return m.mirror[i-1]
			}
			return m.mirror[i+1]
		}
	}
	return -1
}

// SetMirror records maps n and mirror as mirror images of each other.
func (m *Mapping) SetMirror(n, mirror int) {
	m.mirror = append(m.mirror, n, mirror)
}

// Invert returns a mapping from the mapping's end document back to its start.
func (m *Mapping) Invert() *Mapping {
	inverse := &Mapping{}
	inverse.AppendMappingInverted(m)
	return inverse
}

// Map maps a position through the mapping.
func (m *Mapping) Map(pos, assoc int) int {
	if len(m.mirror) > 0 {
		return m.mapPos(pos, assoc, true).Pos
	}
	for i := m.from; i < m.to; i++ {
		pos = m.maps[i].Map(pos, assoc)
	}
	return pos
}

// MapResult maps a position and accumulates deletion information.
func (m *Mapping) MapResult(pos, assoc int) MapResult {
	return m.mapPos(pos, assoc, false)
}

func (m *Mapping) mapPos(pos, assoc int, simple bool) MapResult {
	delInfo := 0
	for i := m.from; i < m.to; i++ {
		sm := m.maps[i]
		result := sm.MapResult(pos, assoc)
		if result.recover != noRecover {
			corr := m.GetMirror(i)
			if corr >= 0 && corr > i && corr < m.to {
				i = corr
				pos = m.maps[corr].recoverPos(result.recover)
				continue
			}
		}
		delInfo |= result.delInfo
		pos = result.Pos
	}
	if simple {
		return MapResult{Pos: pos, recover: noRecover}
	}
	return MapResult{Pos: pos, delInfo: delInfo, recover: noRecover}
}
