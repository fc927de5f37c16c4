package grid

import (
	"github.com/skygrid/go-spectral-raytracer/pkg/core"
)

// MolState holds the per-species physical state of a grid point, produced by
// the external statistical-equilibrium solver. The core only reads it.
type MolState struct {
	Binv float64   // inverse Doppler linewidth [s/m]
	NMol float64   // species number density [1/m^3]
	Pops []float64 // fractional level populations, one per energy level
	Dust []float64 // dust source term per line
	Knu  []float64 // dust/gas continuum opacity per line
}

// Neighbor is one Voronoi adjacency relation of a grid point. Dir is the
// (non-normalized) vector from the point to the neighbor; half of it reaches
// the shared face, which is what the face-distance test needs.
type Neighbor struct {
	ID  int
	Dir core.Vec3
}

// Point is a single node of the unstructured model mesh.
type Point struct {
	ID    int
	Pos   core.Vec3
	Sink  bool // boundary marker, excluded from active radiative contribution
	Dens  float64
	Temp  float64
	Vel   core.Vec3 // bulk velocity at the point
	B     core.Vec3 // magnetic field, used only in polarized mode
	Mol   []MolState
	Neigh []Neighbor
}

// Grid is the finished point cloud the core consumes. Points are ordered with
// all non-sink points first; NumActive is the count of those. Radius is the
// model sphere radius and MinScale the smallest model length scale, which
// sets the traversal cutoff.
type Grid struct {
	Points    []Point
	NumActive int
	Radius    float64
	MinScale  float64
}

// Nearest returns the index of the grid point closest to pos. Linear scan;
// called once per ray to locate the starting cell.
func (g *Grid) Nearest(pos core.Vec3) int {
	best := 0
	bestDist2 := pos.Subtract(g.Points[0].Pos).LengthSquared()
	for i := 1; i < len(g.Points); i++ {
		d2 := pos.Subtract(g.Points[i].Pos).LengthSquared()
		if d2 < bestDist2 {
			best = i
			bestDist2 = d2
		}
	}
	return best
}
