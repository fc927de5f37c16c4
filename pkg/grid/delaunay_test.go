package grid

import (
	"testing"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
)

// twoTetGrid builds five points forming two tetrahedra that share the face
// {1,2,3}.
func twoTetGrid() (*Grid, []Cell) {
	g := &Grid{
		Points: []Point{
			{ID: 0, Pos: core.NewVec3(0, 0, 0)},
			{ID: 1, Pos: core.NewVec3(1, 0, 0)},
			{ID: 2, Pos: core.NewVec3(0, 1, 0)},
			{ID: 3, Pos: core.NewVec3(0, 0, 1)},
			{ID: 4, Pos: core.NewVec3(1, 1, 1)},
		},
		NumActive: 5,
	}
	cells := []Cell{
		{Verts: [CellVerts]int{0, 1, 2, 3}},
		{Verts: [CellVerts]int{1, 2, 3, 4}},
	}
	return g, cells
}

func TestFaceVertsOrder(t *testing.T) {
	c := Cell{Verts: [CellVerts]int{10, 11, 12, 13}}
	tests := []struct {
		fi   int
		want [CellVerts - 1]int
	}{
		{0, [3]int{11, 12, 13}},
		{1, [3]int{10, 12, 13}},
		{2, [3]int{10, 11, 13}},
		{3, [3]int{10, 11, 12}},
	}
	for _, tt := range tests {
		if got := c.FaceVerts(tt.fi); got != tt.want {
			t.Errorf("FaceVerts(%d) = %v, want %v", tt.fi, got, tt.want)
		}
	}
}

func TestNewCellArenaAdjacency(t *testing.T) {
	g, cells := twoTetGrid()
	arena := NewCellArena(g, cells)

	if len(arena.Cells) != 2 {
		t.Fatalf("arena has %d cells, want 2", len(arena.Cells))
	}
	for ci := range arena.Cells {
		if arena.Cells[ci].ID != ci {
			t.Errorf("cell %d has ID %d", ci, arena.Cells[ci].ID)
		}
	}

	// The shared face {1,2,3} is opposite vertex 0 in the first cell and
	// opposite vertex 4 in the second. All other faces lie on the hull.
	c0, c1 := &arena.Cells[0], &arena.Cells[1]
	if c0.Neigh[0] != 1 {
		t.Errorf("cell 0 face 0 neighbor = %d, want 1", c0.Neigh[0])
	}
	if c1.Neigh[3] != 0 {
		t.Errorf("cell 1 face 3 neighbor = %d, want 0", c1.Neigh[3])
	}
	for fi := 1; fi < CellVerts; fi++ {
		if c0.Neigh[fi] != -1 {
			t.Errorf("cell 0 face %d neighbor = %d, want -1 (hull)", fi, c0.Neigh[fi])
		}
	}
	for fi := 0; fi < CellVerts-1; fi++ {
		if c1.Neigh[fi] != -1 {
			t.Errorf("cell 1 face %d neighbor = %d, want -1 (hull)", fi, c1.Neigh[fi])
		}
	}
}

func TestNewCellArenaCentres(t *testing.T) {
	g, cells := twoTetGrid()
	arena := NewCellArena(g, cells)

	want := core.NewVec3(0.25, 0.25, 0.25)
	got := arena.Cells[0].Centre
	if got.Subtract(want).Length() > 1e-12 {
		t.Errorf("cell 0 centre = %v, want %v", got, want)
	}
	want = core.NewVec3(0.5, 0.5, 0.5)
	got = arena.Cells[1].Centre
	if got.Subtract(want).Length() > 1e-12 {
		t.Errorf("cell 1 centre = %v, want %v", got, want)
	}
}

func TestAdjacencySymmetric(t *testing.T) {
	g, cells := twoTetGrid()
	arena := NewCellArena(g, cells)

	for ci := range arena.Cells {
		c := &arena.Cells[ci]
		for fi := 0; fi < CellVerts; fi++ {
			ni := c.Neigh[fi]
			if ni == -1 {
				continue
			}
			back := false
			for nfi := 0; nfi < CellVerts; nfi++ {
				if arena.Cells[ni].Neigh[nfi] == ci {
					back = true
				}
			}
			if !back {
				t.Errorf("cell %d lists neighbor %d, but not vice versa", ci, ni)
			}
		}
	}
}
