// Package model provides analytic test models for the ray tracer: point
// clouds on a cubic lattice inside a sphere, with exact Voronoi neighbor
// topology and a matching Delaunay tetrahedralization. Real models come from
// an external mesh builder; these exist for tests and the demo binary.
package model

import (
	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// SphereConfig describes a uniform spherical model
type SphereConfig struct {
	Radius       float64 // model sphere radius [m]
	N            int     // lattice points across the diameter
	Density      float64 // H2 number density [1/m^3]
	Temperature  float64 // gas temperature [K]
	Abundance    float64 // molecular abundance relative to H2
	DopplerB     float64 // Doppler b parameter [m/s]
	SinkFraction float64 // radius fraction beyond which points are sinks
	DustKnu      float64 // continuum opacity per line, 0 for pure line models
	DustSource   float64 // continuum source term per line
}

// DefaultSphereConfig returns sensible default values
func DefaultSphereConfig() SphereConfig {
	return SphereConfig{
		Radius:       2.0e15,
		N:            15,
		Density:      1.5e10,
		Temperature:  20.0,
		Abundance:    1.0e-9,
		DopplerB:     200.0,
		SinkFraction: 0.8,
	}
}

// kuhnTets is the standard six-tetrahedra decomposition of a cube around the
// main diagonal. Corner codes are ix + 2*iy + 4*iz. Faces on shared cube
// boundaries split along consistent diagonals, so neighboring cubes tile
// without gaps.
var kuhnTets = [6][4]int{
	{0, 1, 3, 7},
	{0, 3, 2, 7},
	{0, 2, 6, 7},
	{0, 6, 4, 7},
	{0, 4, 5, 7},
	{0, 5, 1, 7},
}

// latticeOffsets are the six face neighbors of a cubic lattice site, which
// are exactly its Voronoi neighbors
var latticeOffsets = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// NewUniformSphere builds a uniform-density spherical model of the given
// species on a cubic lattice: all lattice sites inside the sphere are grid
// points, the outer shell beyond SinkFraction of the radius is marked sink,
// and level populations are LTE at the configured temperature. Returns the
// grid and its Delaunay cell list.
func NewUniformSphere(cfg SphereConfig, s *grid.Species) (*grid.Grid, []grid.Cell) {
	h := 2.0 * cfg.Radius / float64(cfg.N-1)

	type site struct {
		ijk  [3]int
		pos  core.Vec3
		sink bool
	}
	var active, sinks []site
	for i := 0; i < cfg.N; i++ {
		for j := 0; j < cfg.N; j++ {
			for k := 0; k < cfg.N; k++ {
				pos := core.NewVec3(
					-cfg.Radius+float64(i)*h,
					-cfg.Radius+float64(j)*h,
					-cfg.Radius+float64(k)*h,
				)
				r := pos.Length()
				if r > cfg.Radius {
					continue
				}
				st := site{ijk: [3]int{i, j, k}, pos: pos, sink: r >= cfg.SinkFraction*cfg.Radius}
				if st.sink {
					sinks = append(sinks, st)
				} else {
					active = append(active, st)
				}
			}
		}
	}

	// Non-sink points first, so ids below NumActive are the active ones
	sites := append(active, sinks...)
	index := make(map[[3]int]int, len(sites))
	for id, st := range sites {
		index[st.ijk] = id
	}

	pops := ltePops(s.Freq[0], cfg.Temperature)
	g := &grid.Grid{
		Points:    make([]grid.Point, len(sites)),
		NumActive: len(active),
		Radius:    cfg.Radius,
		MinScale:  h,
	}
	for id, st := range sites {
		p := grid.Point{
			ID:   id,
			Pos:  st.pos,
			Sink: st.sink,
		}
		ms := grid.MolState{
			Binv: 1.0 / cfg.DopplerB,
			Pops: make([]float64, s.NLev),
			Dust: make([]float64, s.NLine),
			Knu:  make([]float64, s.NLine),
		}
		if st.sink {
			p.Dens = 1.0e-30
		} else {
			p.Dens = cfg.Density
			p.Temp = cfg.Temperature
			ms.NMol = cfg.Abundance * cfg.Density
			ms.Pops[0] = pops[0]
			ms.Pops[1] = pops[1]
			for li := 0; li < s.NLine; li++ {
				ms.Dust[li] = cfg.DustSource
				ms.Knu[li] = cfg.DustKnu
			}
		}
		p.Mol = []grid.MolState{ms}

		for _, off := range latticeOffsets {
			nijk := [3]int{st.ijk[0] + off[0], st.ijk[1] + off[1], st.ijk[2] + off[2]}
			if nid, ok := index[nijk]; ok {
				p.Neigh = append(p.Neigh, grid.Neighbor{
					ID:  nid,
					Dir: sites[nid].pos.Subtract(st.pos),
				})
			}
		}
		g.Points[id] = p
	}

	// Tetrahedralize every lattice cube whose eight corners are all present
	var cells []grid.Cell
	for i := 0; i < cfg.N-1; i++ {
		for j := 0; j < cfg.N-1; j++ {
			for k := 0; k < cfg.N-1; k++ {
				var corners [8]int
				ok := true
				for ci := 0; ci < 8 && ok; ci++ {
					ijk := [3]int{i + ci&1, j + (ci>>1)&1, k + (ci>>2)&1}
					corners[ci], ok = lookup(index, ijk)
				}
				if !ok {
					continue
				}
				for _, tet := range kuhnTets {
					cells = append(cells, grid.Cell{
						Verts: [grid.CellVerts]int{
							corners[tet[0]], corners[tet[1]],
							corners[tet[2]], corners[tet[3]],
						},
					})
				}
			}
		}
	}

	return g, cells
}

func lookup(index map[[3]int]int, ijk [3]int) (int, bool) {
	id, ok := index[ijk]
	return id, ok
}

// Static returns a zero velocity field
func Static() core.VelocityField {
	return core.VelocityFunc(func(core.Vec3) core.Vec3 {
		return core.Vec3{}
	})
}

// SolidBodyRotation returns a velocity field rotating rigidly about the z
// axis with angular velocity omega [rad/s]
func SolidBodyRotation(omega float64) core.VelocityField {
	return core.VelocityFunc(func(p core.Vec3) core.Vec3 {
		return core.NewVec3(-omega*p.Y, omega*p.X, 0)
	})
}

// RadialInfall returns a velocity field collapsing toward the origin at the
// given speed [m/s]
func RadialInfall(speed float64) core.VelocityField {
	return core.VelocityFunc(func(p core.Vec3) core.Vec3 {
		return p.Normalize().Multiply(-speed)
	})
}
