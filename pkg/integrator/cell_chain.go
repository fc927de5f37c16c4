package integrator

import (
	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// CellChainIntegrator traces rays along a precomputed chain of Delaunay
// simplices, linearly interpolating the physical quantities between their
// values at the entry and exit faces of each cell, with each cell path
// subdivided into a fixed number of sub-segments for numerical smoothness.
// Not safe for concurrent use; each worker creates its own.
type CellChainIntegrator struct {
	common

	// entry/exit/segment-midpoint interpolation scratch, reused per ray
	gips [3]*interpPoint

	// per-segment sampler state
	projVelRay float64
}

// NewCellChainIntegrator creates a Delaunay chain-tracing ray integrator.
// The Config must carry a CellArena.
func NewCellChainIntegrator(cfg Config) *CellChainIntegrator {
	ci := &CellChainIntegrator{common: newCommon(cfg)}
	for i := range ci.gips {
		ci.gips[i] = newInterpPoint(cfg.Species)
	}
	return ci
}

// lineAmp implements segmentSampler: a single evaluation at the interpolated
// segment velocity, consistent with the interpolated representation of the
// other quantities.
func (ci *CellChainIntegrator) lineAmp(molI int, deltav float64) float64 {
	return LineAmpInterp(ci.projVelRay, ci.gips[2].Mol[molI].Binv, deltav)
}

// rayDisplacements projects the positions of the three face vertices onto the
// ray direction, for interpolating path displacement across the face.
func rayDisplacements(g *grid.Grid, dir core.Vec3, gis [3]int) [3]float64 {
	var xc [3]float64
	for vi, gi := range gis {
		xc[vi] = dir.Dot(g.Points[gi].Pos)
	}
	return xc
}

// TraceRay follows the precomputed cell chain for the ray, interpolating
// entry and exit quantities of each cell and integrating over sub-segments.
// Rays whose chain cannot be established contribute zero.
func (ci *CellChainIntegrator) TraceRay(ray *RayState) bool {
	ray.Reset()

	x, dir, _, ok := ci.enterModel(ray)
	if !ok {
		return false
	}

	entry, chain, exits, ok := followRayThroughCells(ci.cfg.Grid, ci.cfg.Arena, x, dir, chainEpsilon)
	if !ok {
		return false
	}

	g := ci.cfg.Grid
	entryI, exitI := 0, 1

	// Interpolate all quantities of interest at the entry face of the first
	// cell; subsequent cells reuse the previous exit as their entry.
	first := &ci.cfg.Arena.Cells[chain[0]]
	gis := first.FaceVerts(entry.FaceI)
	ci.gips[entryI].baryInterp(entry, g, ci.cfg.Aux, rayDisplacements(g, dir, gis), gis)

	for k, cellID := range chain {
		c := &ci.cfg.Arena.Cells[cellID]
		gisExit := c.FaceVerts(exits[k].FaceI)
		ci.gips[exitI].baryInterp(exits[k], g, ci.cfg.Aux, rayDisplacements(g, dir, gisExit), gisExit)

		ds := (ci.gips[exitI].XCmpntRay - ci.gips[entryI].XCmpntRay) / numSegments

		for si := 0; si < numSegments; si++ {
			frac := (float64(si) + 0.5) / numSegments
			interpSegment(ci.gips[2], ci.gips[entryI], ci.gips[exitI], frac)
			mid := ci.gips[2]

			if ci.cfg.Polarized {
				ci.sweepStokes(ray, ds, mid.B, &mid.Mol[0])
			} else {
				// Velocity varies too much across a cell, and nonlinearly,
				// for linear interpolation to be satisfactory; sample the
				// field at the segment midpoint when one is available.
				if ci.cfg.VelField != nil {
					ci.projVelRay = dir.Dot(ci.cfg.VelField.VelocityAt(mid.X))
				} else {
					ci.projVelRay = dir.Dot(mid.Vel)
				}
				ci.sweepChannels(ray, ds, mid.Mol, ci)
			}
		}

		entryI, exitI = exitI, entryI
	}

	ci.addCMB(ray)
	return true
}
