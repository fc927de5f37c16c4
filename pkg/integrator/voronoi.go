package integrator

import (
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// nextFaceCrossing returns the distance from x along dir to the nearest
// Voronoi face of the cell around point posn, and the id of the grid cell
// abutting that face. maxDS is the fallback step, chosen by the caller to be
// as large as the spherical model boundary allows; if no neighbor face yields
// a crossing beyond the cutoff, the ray is treated as staying in the current
// cell and advances by maxDS.
//
// Each face is the perpendicular bisector plane between the point and one
// neighbor, so the crossing distance is the standard point/plane intersection
// ds = (p0-l0).n / l.n with p0 the half-way point and n the neighbor
// direction. The cutoff stops the ray from re-crossing the face it just
// arrived through due to rounding.
func nextFaceCrossing(g *grid.Grid, posn int, x, dir core.Vec3, cutoff, maxDS float64) (float64, int) {
	ds := maxDS
	next := -1
	gp := &g.Points[posn]
	for i := range gp.Neigh {
		n := gp.Neigh[i].Dir
		half := gp.Pos.Add(n.Multiply(0.5))
		numerator := half.Subtract(x).Dot(n)
		denominator := dir.Dot(n)
		if denominator == 0 {
			continue
		}
		newdist := numerator / denominator
		if newdist < ds && newdist > cutoff {
			ds = newdist
			next = gp.Neigh[i].ID
		}
	}
	if next == -1 {
		next = posn
	}
	return ds, next
}

// VoronoiIntegrator steps rays from Voronoi face to Voronoi face, evaluating
// physical quantities directly at the grid point of each cell and sampling
// the velocity field at sub-points of each crossing. Not safe for concurrent
// use; each worker creates its own.
type VoronoiIntegrator struct {
	common
	cutoff   float64
	projVels []float64

	// per-segment sampler state
	posn int
	dir  core.Vec3
}

// NewVoronoiIntegrator creates a Voronoi face-stepping ray integrator
func NewVoronoiIntegrator(cfg Config) *VoronoiIntegrator {
	return &VoronoiIntegrator{
		common:   newCommon(cfg),
		cutoff:   cfg.Grid.MinScale * 1.0e-7,
		projVels: make([]float64, nStepsThruCell),
	}
}

// lineAmp implements segmentSampler: averaged over the sampled sub-point
// velocities when a velocity field is available, single Gaussian evaluation
// at the cell's point velocity otherwise.
func (vi *VoronoiIntegrator) lineAmp(molI int, deltav float64) float64 {
	gp := &vi.cfg.Grid.Points[vi.posn]
	binv := gp.Mol[molI].Binv
	if vi.cfg.VelField != nil {
		return LineAmpSample(vi.projVels, binv, deltav)
	}
	return Gaussline(deltav-vi.dir.Dot(gp.Vel), binv)
}

// TraceRay marches the ray from the near to the far intersection with the
// spherical model boundary, one Voronoi cell at a time.
func (vi *VoronoiIntegrator) TraceRay(ray *RayState) bool {
	ray.Reset()

	x, dir, zp, ok := vi.enterModel(ray)
	if !ok {
		return false
	}
	vi.dir = dir

	// Locate the starting cell
	posn := vi.cfg.Grid.Nearest(x)

	col := 0.0
	for col < 2.0*math.Abs(zp) {
		// Fallback step as large as the spherical boundary allows
		maxDS := -2.0*zp - col
		ds, nposn := nextFaceCrossing(vi.cfg.Grid, posn, x, dir, vi.cutoff, maxDS)

		if vi.cfg.Polarized {
			vi.sweepStokes(ray, ds, vi.cfg.Grid.Points[posn].B, &vi.cfg.Aux.Mol[posn][0])
		} else {
			if vi.cfg.VelField != nil {
				for i := 0; i < nStepsThruCell; i++ {
					d := float64(i) * ds / nStepsThruCell
					vel := vi.cfg.VelField.VelocityAt(x.Add(dir.Multiply(d)))
					vi.projVels[i] = dir.Dot(vel)
				}
			}
			vi.posn = posn
			vi.sweepChannels(ray, ds, vi.cfg.Aux.Mol[posn], vi)
		}

		// Move the working point to the edge of the next cell
		x = x.Add(dir.Multiply(ds))
		col += ds
		posn = nposn
	}

	vi.addCMB(ray)
	return true
}
