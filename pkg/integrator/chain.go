package integrator

import (
	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// Intercept describes one crossing of a ray and a simplex face: which face of
// the cell was crossed, the barycentric coordinates of the crossing point on
// that face, and the displacement along the ray. The barycentric order
// follows Cell.FaceVerts.
type Intercept struct {
	FaceI int
	Bary  [3]float64
	Dist  float64
}

// faceHit is the raw intersection of a ray with one face plane
type faceHit struct {
	t       float64
	bary    [3]float64
	inside  bool // crossing point lies on the face, within tolerance
	forward bool // ray leaves the cell through this face
}

// intersectFace intersects the ray (x,dir) with face fi of the cell. The face
// normal is oriented away from the opposite vertex, so forward means the ray
// exits the cell here. epsBary is the barycentric tolerance for accepting
// crossings on or very near an edge.
func intersectFace(g *grid.Grid, c *grid.Cell, fi int, x, dir core.Vec3, epsBary float64) (faceHit, bool) {
	vs := c.FaceVerts(fi)
	v0 := g.Points[vs[0]].Pos
	e1 := g.Points[vs[1]].Pos.Subtract(v0)
	e2 := g.Points[vs[2]].Pos.Subtract(v0)
	n := e1.Cross(e2)

	// Orient the normal outward
	opp := g.Points[c.Verts[fi]].Pos
	if n.Dot(v0.Subtract(opp)) < 0 {
		n = n.Negate()
	}

	den := dir.Dot(n)
	if den == 0 {
		return faceHit{}, false
	}
	t := v0.Subtract(x).Dot(n) / den
	p := x.Add(dir.Multiply(t))

	// Barycentric coordinates of p in the face triangle
	w := p.Subtract(v0)
	d00 := e1.Dot(e1)
	d01 := e1.Dot(e2)
	d11 := e2.Dot(e2)
	d20 := w.Dot(e1)
	d21 := w.Dot(e2)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return faceHit{}, false
	}
	b1 := (d11*d20 - d01*d21) / denom
	b2 := (d00*d21 - d01*d20) / denom
	b0 := 1.0 - b1 - b2

	hit := faceHit{
		t:       t,
		bary:    [3]float64{b0, b1, b2},
		inside:  b0 >= -epsBary && b1 >= -epsBary && b2 >= -epsBary,
		forward: den > 0,
	}
	return hit, true
}

// followRayThroughCells walks the ray (x,dir) through the Delaunay
// decomposition: it finds the first cell entered through the convex hull,
// then repeatedly identifies the face the ray exits through and advances to
// the simplex sharing that face, until the ray leaves the hull. It returns
// the entry intercept of the first cell, the chain of cell ids, and the exit
// intercept of every cell in the chain. ok is false when no valid chain
// exists within the tolerance; such rays are skipped by the caller.
func followRayThroughCells(g *grid.Grid, arena *grid.CellArena, x, dir core.Vec3, epsilon float64) (entry Intercept, chain []int, exits []Intercept, ok bool) {
	epsLen := epsilon * g.Radius

	// Find the hull face the ray enters through: among boundary faces with an
	// inward crossing inside the face triangle, the nearest one.
	startCell := -1
	bestT := 0.0
	for ci := range arena.Cells {
		c := &arena.Cells[ci]
		for fi := 0; fi < grid.CellVerts; fi++ {
			if c.Neigh[fi] != -1 {
				continue
			}
			hit, valid := intersectFace(g, c, fi, x, dir, epsilon)
			if !valid || !hit.inside || hit.forward || hit.t < -epsLen {
				continue
			}
			if startCell == -1 || hit.t < bestT {
				startCell = ci
				bestT = hit.t
				entry = Intercept{FaceI: fi, Bary: hit.bary, Dist: hit.t}
			}
		}
	}
	if startCell == -1 {
		return Intercept{}, nil, nil, false
	}

	cur := startCell
	entryFace := entry.FaceI
	entryT := entry.Dist
	maxLen := len(arena.Cells)
	for len(chain) <= maxLen {
		c := &arena.Cells[cur]

		// Find the face the ray exits through: forward crossing inside a face
		// triangle, not behind the entry point, nearest along the ray.
		exitFace := -1
		var exitHit faceHit
		for fi := 0; fi < grid.CellVerts; fi++ {
			if fi == entryFace {
				continue
			}
			hit, valid := intersectFace(g, c, fi, x, dir, epsilon)
			if !valid || !hit.inside || !hit.forward || hit.t < entryT-epsLen {
				continue
			}
			if exitFace == -1 || hit.t < exitHit.t {
				exitFace = fi
				exitHit = hit
			}
		}
		if exitFace == -1 {
			return Intercept{}, nil, nil, false
		}

		chain = append(chain, cur)
		exits = append(exits, Intercept{FaceI: exitFace, Bary: exitHit.bary, Dist: exitHit.t})

		next := c.Neigh[exitFace]
		if next == -1 {
			return entry, chain, exits, true
		}

		// The entry face of the next cell is the one it shares with this cell
		entryFace = -1
		for fi := 0; fi < grid.CellVerts; fi++ {
			if arena.Cells[next].Neigh[fi] == cur {
				entryFace = fi
				break
			}
		}
		if entryFace == -1 {
			return Intercept{}, nil, nil, false
		}
		entryT = exitHit.t
		cur = next
	}

	// Cycle guard tripped
	return Intercept{}, nil, nil, false
}
