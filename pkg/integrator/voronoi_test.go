package integrator

import (
	"math"
	"testing"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
	"github.com/skygrid/go-spectral-raytracer/pkg/model"
)

// lineGrid builds a two-point grid with one Voronoi face at x=0.5
func lineGrid() *grid.Grid {
	return &grid.Grid{
		Points: []grid.Point{
			{ID: 0, Pos: core.NewVec3(0, 0, 0), Neigh: []grid.Neighbor{
				{ID: 1, Dir: core.NewVec3(1, 0, 0)},
			}},
			{ID: 1, Pos: core.NewVec3(1, 0, 0), Neigh: []grid.Neighbor{
				{ID: 0, Dir: core.NewVec3(-1, 0, 0)},
			}},
		},
		NumActive: 2,
		Radius:    1,
		MinScale:  1,
	}
}

func TestNextFaceCrossing(t *testing.T) {
	g := lineGrid()
	cutoff := g.MinScale * 1e-7

	// Ray toward the face: crosses the bisector plane x=0.5 after 0.7
	ds, next := nextFaceCrossing(g, 0, core.NewVec3(-0.2, 0, 0), core.NewVec3(1, 0, 0), cutoff, 10)
	if math.Abs(ds-0.7) > 1e-12 {
		t.Errorf("ds = %v, want 0.7", ds)
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}

func TestNextFaceCrossingFallback(t *testing.T) {
	g := lineGrid()
	cutoff := g.MinScale * 1e-7

	// Ray away from the only face: no crossing, so the full fallback step is
	// taken and the ray stays in the current cell.
	ds, next := nextFaceCrossing(g, 0, core.NewVec3(-0.2, 0, 0), core.NewVec3(-1, 0, 0), cutoff, 3.5)
	if ds != 3.5 {
		t.Errorf("ds = %v, want the fallback 3.5", ds)
	}
	if next != 0 {
		t.Errorf("next = %d, want the current cell 0", next)
	}

	// Ray parallel to the face plane
	ds, next = nextFaceCrossing(g, 0, core.NewVec3(-0.2, 0, 0), core.NewVec3(0, 1, 0), cutoff, 2.0)
	if ds != 2.0 || next != 0 {
		t.Errorf("parallel ray: ds=%v next=%d, want 2.0, 0", ds, next)
	}
}

func TestNextFaceCrossingCutoff(t *testing.T) {
	g := lineGrid()
	cutoff := g.MinScale * 1e-7

	// Starting exactly on the face: the zero-distance crossing is below the
	// cutoff and must not be taken again.
	ds, next := nextFaceCrossing(g, 0, core.NewVec3(0.5, 0, 0), core.NewVec3(1, 0, 0), cutoff, 4.0)
	if ds != 4.0 || next != 0 {
		t.Errorf("on-face start: ds=%v next=%d, want 4.0, 0", ds, next)
	}
}

func TestNextFaceCrossingPicksNearest(t *testing.T) {
	g := &grid.Grid{
		Points: []grid.Point{
			{ID: 0, Pos: core.NewVec3(0, 0, 0), Neigh: []grid.Neighbor{
				{ID: 1, Dir: core.NewVec3(1, 0, 0)},
				{ID: 2, Dir: core.NewVec3(3, 0, 0)},
			}},
			{ID: 1, Pos: core.NewVec3(1, 0, 0)},
			{ID: 2, Pos: core.NewVec3(3, 0, 0)},
		},
		NumActive: 3,
		Radius:    3,
		MinScale:  1,
	}
	ds, next := nextFaceCrossing(g, 0, core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), 1e-7, 10)
	if math.Abs(ds-0.5) > 1e-12 || next != 1 {
		t.Errorf("ds=%v next=%d, want 0.5, 1", ds, next)
	}
}

func TestVoronoiOutsideDisk(t *testing.T) {
	tm := newTestModel(t, 7, 1e-9, model.Static())
	vi := NewVoronoiIntegrator(tm.cfg)

	ray := NewRayState(tm.cfg.NChan)
	ray.X = 1.01 * tm.grid.Radius
	ray.Y = 0
	if vi.TraceRay(ray) {
		t.Error("ray outside the projected disk should be rejected")
	}
	if !allZero(ray.Intensity) || !allZero(ray.Tau) {
		t.Error("rejected ray left nonzero accumulators")
	}
}

func TestVoronoiOpticallyThinGivesCMB(t *testing.T) {
	// With no molecules and no dust the march accumulates nothing and every
	// channel ends up at exactly the local cosmic background.
	tm := newTestModel(t, 7, 0, model.Static())
	vi := NewVoronoiIntegrator(tm.cfg)

	ray := NewRayState(tm.cfg.NChan)
	ray.X = 0.1 * tm.grid.Radius
	ray.Y = 0.05 * tm.grid.Radius
	if !vi.TraceRay(ray) {
		t.Fatal("ray inside the disk was rejected")
	}
	cmb := tm.species.LocalCMB[0]
	for ichan := range ray.Intensity {
		if ray.Intensity[ichan] != cmb {
			t.Errorf("channel %d: intensity %v, want the bare CMB %v", ichan, ray.Intensity[ichan], cmb)
		}
		if ray.Tau[ichan] != 0 {
			t.Errorf("channel %d: tau %v, want 0", ichan, ray.Tau[ichan])
		}
	}
}

func TestVoronoiSaturatesToPlanck(t *testing.T) {
	// An optically thick isothermal sphere in LTE must emerge at the Planck
	// radiance of the gas temperature, independent of the exact opacity.
	tm := newTestModel(t, 15, 1e-5, model.Static())
	vi := NewVoronoiIntegrator(tm.cfg)

	h := 2.0 * tm.grid.Radius / float64(tm.sphere.N-1)
	ray := NewRayState(tm.cfg.NChan)
	ray.X = 0.3 * h
	ray.Y = 0.2 * h
	if !vi.TraceRay(ray) {
		t.Fatal("central ray was rejected")
	}

	cc := tm.centreChannel()
	if ray.Tau[cc] < 5 {
		t.Fatalf("central optical depth %v; the saturation test needs a thick model", ray.Tau[cc])
	}
	want := grid.Planck(tm.species.Freq[0], tm.sphere.Temperature)
	if math.Abs(ray.Intensity[cc]-want)/want > 0.02 {
		t.Errorf("saturated intensity %v, want Planck %v", ray.Intensity[cc], want)
	}
}

func TestVoronoiLineProfileShape(t *testing.T) {
	// Off-centre channels see less opacity than the line centre
	tm := newTestModel(t, 15, 1e-7, model.Static())
	vi := NewVoronoiIntegrator(tm.cfg)

	h := 2.0 * tm.grid.Radius / float64(tm.sphere.N-1)
	ray := NewRayState(tm.cfg.NChan)
	ray.X = 0.3 * h
	ray.Y = 0.2 * h
	if !vi.TraceRay(ray) {
		t.Fatal("central ray was rejected")
	}

	cc := tm.centreChannel()
	if ray.Tau[cc] <= 0 {
		t.Fatalf("central channel tau = %v, want > 0", ray.Tau[cc])
	}
	if ray.Tau[0] <= 0 {
		t.Errorf("edge channel tau = %v, want > 0", ray.Tau[0])
	}
	if ray.Tau[0] >= ray.Tau[cc] {
		t.Errorf("edge channel tau %v not below line-centre tau %v", ray.Tau[0], ray.Tau[cc])
	}
	// Symmetric channels of a static model agree
	last := tm.cfg.NChan - 1
	if math.Abs(ray.Tau[0]-ray.Tau[last])/ray.Tau[cc] > 1e-9 {
		t.Errorf("profile asymmetric for static gas: tau[0]=%v tau[%d]=%v", ray.Tau[0], last, ray.Tau[last])
	}
}

func TestVoronoiRotationShiftsLine(t *testing.T) {
	// A rotating model seen edge-on through an off-axis ray has its line
	// centre Doppler-shifted, making the channel profile asymmetric.
	omega := 3.0e-13
	tm := newTestModel(t, 15, 1e-7, model.SolidBodyRotation(omega))

	// View along +y so the rotation has a line-of-sight component at x!=0
	tm.cfg.RotMat = core.NewRotation(math.Pi/2, 0)
	vi := NewVoronoiIntegrator(tm.cfg)

	ray := NewRayState(tm.cfg.NChan)
	ray.X = 0.5 * tm.grid.Radius
	ray.Y = 0
	if !vi.TraceRay(ray) {
		t.Fatal("off-axis ray was rejected")
	}
	last := tm.cfg.NChan - 1
	asym := math.Abs(ray.Tau[0] - ray.Tau[last])
	if asym <= 1e-12*ray.Tau[tm.centreChannel()] {
		t.Errorf("rotating model produced a symmetric profile: tau[0]=%v tau[%d]=%v", ray.Tau[0], last, ray.Tau[last])
	}
}

func TestVoronoiReusedRayStateIsReset(t *testing.T) {
	tm := newTestModel(t, 7, 1e-7, model.Static())
	vi := NewVoronoiIntegrator(tm.cfg)

	ray := NewRayState(tm.cfg.NChan)
	ray.X, ray.Y = 0, 0.1*tm.grid.Radius
	if !vi.TraceRay(ray) {
		t.Fatal("first trace rejected")
	}
	first := make([]float64, len(ray.Intensity))
	copy(first, ray.Intensity)

	// Same ray again: identical result, not accumulated on top
	if !vi.TraceRay(ray) {
		t.Fatal("second trace rejected")
	}
	for ichan := range first {
		if ray.Intensity[ichan] != first[ichan] {
			t.Errorf("channel %d differs on re-trace: %v vs %v", ichan, ray.Intensity[ichan], first[ichan])
		}
	}
}
