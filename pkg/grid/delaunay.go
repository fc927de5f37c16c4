package grid

import (
	"sort"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
)

// CellVerts is the number of vertices of a Delaunay simplex in 3D space
// (and also its number of faces).
const CellVerts = 4

// Cell is one Delaunay simplex. Verts are grid point indices. Neigh[i] is the
// index of the cell sharing the face opposite Verts[i], or -1 on the model
// boundary. Adjacency is index-based into the owning arena, so cells can be
// shared read-only across workers.
type Cell struct {
	ID     int
	Verts  [CellVerts]int
	Neigh  [CellVerts]int
	Centre core.Vec3
}

// FaceVerts returns the grid point indices of the face opposite vertex fi,
// preserving vertex order. The order matters: barycentric coordinates of ray
// intercepts are stored in this order.
func (c *Cell) FaceVerts(fi int) [CellVerts - 1]int {
	var vs [CellVerts - 1]int
	vvi := 0
	for vi := 0; vi < CellVerts; vi++ {
		if vi != fi {
			vs[vvi] = c.Verts[vi]
			vvi++
		}
	}
	return vs
}

// CellArena owns the Delaunay decomposition used by the interpolated
// traversal variant. It is built once per render and read-only afterwards.
type CellArena struct {
	Cells []Cell
}

// NewCellArena finishes a raw simplex list for traversal: assigns ids,
// computes cell centres from the grid, and links face adjacency. The vertex
// sets must form a valid simplicial decomposition.
func NewCellArena(g *Grid, cells []Cell) *CellArena {
	arena := &CellArena{Cells: cells}
	for i := range arena.Cells {
		c := &arena.Cells[i]
		c.ID = i
		sum := core.Vec3{}
		for _, vi := range c.Verts {
			sum = sum.Add(g.Points[vi].Pos)
		}
		c.Centre = sum.Multiply(1.0 / CellVerts)
	}
	arena.linkAdjacency()
	return arena
}

// faceKey is a sorted vertex triple identifying a shared face
type faceKey [CellVerts - 1]int

func makeFaceKey(vs [CellVerts - 1]int) faceKey {
	s := vs[:]
	sort.Ints(s)
	var k faceKey
	copy(k[:], s)
	return k
}

// linkAdjacency fills Neigh by matching faces shared between two cells.
// Unmatched faces lie on the convex hull and stay -1.
func (a *CellArena) linkAdjacency() {
	type faceRef struct {
		cell, face int
	}
	faces := make(map[faceKey]faceRef, len(a.Cells)*2)
	for ci := range a.Cells {
		c := &a.Cells[ci]
		for fi := 0; fi < CellVerts; fi++ {
			c.Neigh[fi] = -1
			key := makeFaceKey(c.FaceVerts(fi))
			if other, ok := faces[key]; ok {
				c.Neigh[fi] = other.cell
				a.Cells[other.cell].Neigh[other.face] = ci
			} else {
				faces[key] = faceRef{cell: ci, face: fi}
			}
		}
	}
}
