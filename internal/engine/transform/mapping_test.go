package transform

import (
	"math/rand"
	"testing"
)

type mapCase struct {
	from, to int
	assoc    int
	lossy    bool
}

func mkMapping(mirrors map[int]int, ranges ...[]int) *Mapping {
	m := &Mapping{}
	for _, r := range ranges {
		m.AppendMap(NewStepMap(r), -1)
	}
	for from, to := range mirrors {
		m.SetMirror(from, to)
	}
	return m
}

func testMapping(t *testing.T, mapping *Mapping, cases ...mapCase) {
	t.Helper()
	inverted := mapping.Invert()
	for _, c := range cases {
		if got := mapping.Map(c.from, c.assoc); got != c.to {
			t.Errorf("Map(%d, %d) = %d, want %d", c.from, c.assoc, got, c.to)
		}
		if c.lossy {
			continue
		}
		if got := inverted.Map(c.to, c.assoc); got != c.from {
			t.Errorf("inverted Map(%d, %d) = %d, want %d", c.to, c.assoc, got, c.from)
		}
	}
}

func TestMappingSingleInsertion(t *testing.T) {
	testMapping(t, mkMapping(nil, []int{2, 0, 4}),
		mapCase{0, 0, 1, false}, mapCase{2, 6, 1, false}, mapCase{2, 2, -1, false}, mapCase{3, 7, 1, false})
}

func TestMappingSingleDeletion(t *testing.T) {
	testMapping(t, mkMapping(nil, []int{2, 4, 0}),
		mapCase{0, 0, 1, false}, mapCase{2, 2, -1, false}, mapCase{3, 2, 1, true},
		mapCase{6, 2, 1, false}, mapCase{6, 2, -1, true}, mapCase{7, 3, 1, false})
}

func TestMappingSingleReplace(t *testing.T) {
	testMapping(t, mkMapping(nil, []int{2, 4, 4}),
		mapCase{0, 0, 1, false}, mapCase{2, 2, 1, false}, mapCase{4, 6, 1, true},
		mapCase{4, 2, -1, true}, mapCase{6, 6, -1, false}, mapCase{8, 8, 1, false})
}

func TestMappingMirroredDeleteInsert(t *testing.T) {
	testMapping(t, mkMapping(map[int]int{0: 1}, []int{2, 4, 0}, []int{2, 0, 4}),
		mapCase{0, 0, 1, false}, mapCase{2, 2, 1, false}, mapCase{4, 4, 1, false},
		mapCase{6, 6, 1, false}, mapCase{7, 7, 1, false})
}

func TestMappingMirroredInsertDelete(t *testing.T) {
	testMapping(t, mkMapping(map[int]int{0: 1}, []int{2, 0, 4}, []int{2, 4, 0}),
		mapCase{0, 0, 1, false}, mapCase{2, 2, 1, false}, mapCase{3, 3, 1, false})
}

func TestMappingDeleteInsertWithInsertBetween(t *testing.T) {
	testMapping(t, mkMapping(map[int]int{0: 2}, []int{2, 4, 0}, []int{1, 0, 1}, []int{3, 0, 4}),
		mapCase{0, 0, 1, false}, mapCase{1, 2, 1, false}, mapCase{4, 5, 1, false},
		mapCase{6, 7, 1, false}, mapCase{7, 8, 1, false})
}

func TestMapResultDeleted(t *testing.T) {
	sm := NewStepMap([]int{2, 4, 0})
	tests := []struct {
		name                           string
		pos, assoc                     int
		deleted, before, after, across bool
	}{
		{"before range", 1, 1, false, false, false, false},
		{"start, assoc right", 2, 1, true, false, true, false},
		{"start, assoc left", 2, -1, false, false, true, false},
		{"inside", 4, 1, true, true, true, true},
		{"end, assoc left", 6, -1, true, true, false, false},
		{"end, assoc right", 6, 1, false, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sm.MapResult(tt.pos, tt.assoc)
			if r.Deleted() != tt.deleted || r.DeletedBefore() != tt.before ||
				r.DeletedAfter() != tt.after || r.DeletedAcross() != tt.across {
				t.Errorf("MapResult(%d, %d) = deleted %v before %v after %v across %v",
					tt.pos, tt.assoc, r.Deleted(), r.DeletedBefore(), r.DeletedAfter(), r.DeletedAcross())
			}
		})
	}
}

func TestOffsetStepMap(t *testing.T) {
	if got := OffsetStepMap(3).Map(5, 1); got != 8 {
		t.Errorf("OffsetStepMap(3).Map(5) = %d, want 8", got)
	}
	if got := OffsetStepMap(-3).Map(5, 1); got != 2 {
		t.Errorf("OffsetStepMap(-3).Map(5) = %d, want 2", got)
	}
	if OffsetStepMap(0) != EmptyStepMap {
		t.Error("OffsetStepMap(0) should be EmptyStepMap")
	}
}

func TestStepMapForEach(t *testing.T) {
	sm := NewStepMap([]int{2, 1, 3, 10, 2, 0})
	var got [][4]int
	sm.ForEach(func(oldStart, oldEnd, newStart, newEnd int) {
		got = append(got, [4]int{oldStart, oldEnd, newStart, newEnd})
	})
	want := [][4]int{{2, 3, 2, 5}, {10, 12, 12, 12}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ForEach() = %v, want %v", got, want)
	}
}

func TestMappingSliceDoesNotAlias(t *testing.T) {
	m := mkMapping(nil, []int{0, 0, 2}, []int{4, 0, 2}, []int{8, 0, 2})
	head := m.Slice(0, 1)
	head.AppendMap(NewStepMap([]int{0, 5, 0}), -1)
	if got := m.Map(10, 1); got != 16 {
		t.Errorf("appending to a slice changed the parent: Map(10) = %d, want 16", got)
	}
	if got := m.Slice(1, 3).Map(4, 1); got != 6 {
		t.Errorf("Slice(1, 3).Map(4) = %d, want 6", got)
	}
}

func TestMappingSliceInvert(t *testing.T) {
	m := mkMapping(nil, []int{0, 0, 5}, []int{2, 0, 1})
	window := m.Slice(1, 2)
	if got := window.Map(10, 1); got != 11 {
		t.Fatalf("Slice(1, 2).Map(10) = %d, want 11", got)
	}
	if got := window.Invert().Map(11, 1); got != 10 {
		t.Errorf("Slice(1, 2).Invert().Map(11) = %d, want 10", got)
	}
	if got := m.SliceFrom(1).Invert().Len(); got != 1 {
		t.Errorf("inverted window has %d maps, want 1", got)
	}
}

func TestMappingAppendWindowKeepsMirrors(t *testing.T) {
	m := mkMapping(map[int]int{1: 2}, []int{0, 0, 5}, []int{2, 4, 0}, []int{2, 0, 4})
	window := m.SliceFrom(1)

	appended := &Mapping{}
	appended.AppendMapping(window)
	if appended.Len() != 2 {
		t.Fatalf("appended %d maps, want 2", appended.Len())
	}
	if got := appended.Map(4, 1); got != 4 {
		t.Errorf("appended window Map(4) = %d, want 4", got)
	}
	if got := window.Invert().Map(4, 1); got != 4 {
		t.Errorf("inverted window Map(4) = %d, want 4", got)
	}
}

func randomMaps(r *rand.Rand, n int) []*StepMap {
	maps := make([]*StepMap, n)
	size := 20
	for i := range maps {
		start := r.Intn(size + 1)
		oldSize := r.Intn(size - start + 1)
		newSize := r.Intn(5)
		maps[i] = NewStepMap([]int{start, oldSize, newSize})
		size += newSize - oldSize
	}
	return maps
}

func FuzzMappingAssociativity(f *testing.F) {
	f.Add(int64(1), 5, 2, 7)
	f.Add(int64(42), 8, 4, 0)
	f.Add(int64(7), 3, 0, 19)
	f.Fuzz(func(t *testing.T, seed int64, n, k, pos int) {
		if n <= 0 || n > 20 {
			return
		}
		r := rand.New(rand.NewSource(seed))
		maps := randomMaps(r, n)
		k = ((k % (n + 1)) + n + 1) % (n + 1)
		pos = ((pos % 21) + 21) % 21

		full := NewMapping(maps...)
		head := NewMapping(maps[:k]...)
		tail := NewMapping(maps[k:]...)
		composed := &Mapping{}
		composed.AppendMapping(head)
		composed.AppendMapping(tail)

		for _, assoc := range []int{-1, 1} {
			want := full.Map(pos, assoc)
			if got := tail.Map(head.Map(pos, assoc), assoc); got != want {
				t.Fatalf("tail(head(%d)) = %d, full = %d", pos, got, want)
			}
			if got := composed.Map(pos, assoc); got != want {
				t.Fatalf("composed(%d) = %d, full = %d", pos, got, want)
			}
			if got := full.Slice(k, n).Map(full.Slice(0, k).Map(pos, assoc), assoc); got != want {
				t.Fatalf("sliced(%d) = %d, full = %d", pos, got, want)
			}
		}
	})
}
