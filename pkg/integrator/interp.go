package integrator

import (
	"gonum.org/v1/gonum/floats"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// interpPoint holds the physical quantities of interest evaluated at one
// point along a ray inside a Delaunay cell: position, displacement component
// along the ray, magnetic field, and the per-species radiative quantities.
// Each worker owns its own set of these as scratch; the buffers are allocated
// once and reused for every segment of every ray.
type interpPoint struct {
	X         core.Vec3
	XCmpntRay float64
	B         core.Vec3
	Vel       core.Vec3
	Mol       []grid.AuxMol
}

func newInterpPoint(species []*grid.Species) *interpPoint {
	ip := &interpPoint{Mol: make([]grid.AuxMol, len(species))}
	for mi, s := range species {
		ip.Mol[mi] = grid.NewAuxMol(s)
	}
	return ip
}

// baryInterp fills ip with the barycentric combination of the vertex
// quantities of one face: gis are the grid point indices of the face vertices
// and xCmpnts their displacement components along the ray, both in
// Cell.FaceVerts order to match the intercept's barycentric coordinates.
func (ip *interpPoint) baryInterp(icpt Intercept, g *grid.Grid, aux *grid.AuxData, xCmpnts [3]float64, gis [3]int) {
	ip.X = core.Vec3{}
	ip.XCmpntRay = 0
	ip.B = core.Vec3{}
	ip.Vel = core.Vec3{}
	for mi := range ip.Mol {
		ip.Mol[mi].Binv = 0
		zero(ip.Mol[mi].SpecNumDens)
		zero(ip.Mol[mi].Dust)
		zero(ip.Mol[mi].Knu)
	}

	for vi := 0; vi < 3; vi++ {
		b := icpt.Bary[vi]
		gp := &g.Points[gis[vi]]
		ip.X = ip.X.Add(gp.Pos.Multiply(b))
		ip.XCmpntRay += b * xCmpnts[vi]
		ip.B = ip.B.Add(gp.B.Multiply(b))
		ip.Vel = ip.Vel.Add(gp.Vel.Multiply(b))
		for mi := range ip.Mol {
			am := &aux.Mol[gis[vi]][mi]
			ip.Mol[mi].Binv += b * am.Binv
			floats.AddScaled(ip.Mol[mi].SpecNumDens, b, am.SpecNumDens)
			floats.AddScaled(ip.Mol[mi].Dust, b, am.Dust)
			floats.AddScaled(ip.Mol[mi].Knu, b, am.Knu)
		}
	}
}

// interpSegment fills dst with the linear interpolation between the entry and
// exit points of a cell at fraction frac of the path between them.
func interpSegment(dst, entry, exit *interpPoint, frac float64) {
	dst.X = entry.X.Add(exit.X.Subtract(entry.X).Multiply(frac))
	dst.XCmpntRay = entry.XCmpntRay + frac*(exit.XCmpntRay-entry.XCmpntRay)
	dst.B = entry.B.Add(exit.B.Subtract(entry.B).Multiply(frac))
	dst.Vel = entry.Vel.Add(exit.Vel.Subtract(entry.Vel).Multiply(frac))
	for mi := range dst.Mol {
		d, a, b := &dst.Mol[mi], &entry.Mol[mi], &exit.Mol[mi]
		d.Binv = a.Binv + frac*(b.Binv-a.Binv)
		lerpTo(d.SpecNumDens, a.SpecNumDens, b.SpecNumDens, frac)
		lerpTo(d.Dust, a.Dust, b.Dust, frac)
		lerpTo(d.Knu, a.Knu, b.Knu, frac)
	}
}

// lerpTo computes dst = a + frac*(b-a) elementwise
func lerpTo(dst, a, b []float64, frac float64) {
	floats.SubTo(dst, b, a)
	floats.Scale(frac, dst)
	floats.Add(dst, a)
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
