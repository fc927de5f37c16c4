package integrator

import (
	"testing"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
	"github.com/skygrid/go-spectral-raytracer/pkg/model"
	"github.com/skygrid/go-spectral-raytracer/pkg/physics"
)

// testModel bundles a uniform-sphere model with a ready integrator Config
type testModel struct {
	sphere  model.SphereConfig
	species *grid.Species
	grid    *grid.Grid
	cfg     Config
}

// newTestModel builds a uniform sphere of n lattice points per side with the
// given molecular abundance, plus an integrator Config imaging the single
// transition face-on with 11 channels of 100 m/s.
func newTestModel(t *testing.T, n int, abundance float64, vf core.VelocityField) *testModel {
	t.Helper()

	sphere := model.DefaultSphereConfig()
	sphere.N = n
	sphere.Abundance = abundance
	species := model.TwoLevelSpecies("test", 115.2712018e9, 7.2e-8)
	g, cells := model.NewUniformSphere(sphere, species)
	species.ComputeCMB(core.TCMB)

	all := []*grid.Species{species}
	nchan := 11
	velRes := 100.0
	cfg := Config{
		Grid:      g,
		Arena:     grid.NewCellArena(g, cells),
		Aux:       grid.PrecomputeAux(g, all),
		Species:   all,
		Lines:     grid.LineList(all),
		VelField:  vf,
		Stokes:    physics.NewDustPolarization(),
		RotMat:    core.Identity(),
		NChan:     nchan,
		VelRes:    velRes,
		Freq:      species.Freq[0],
		RefFreq:   species.Freq[0],
		Trans:     0,
		Bandwidth: float64(nchan) * velRes / core.CLight * species.Freq[0],
		DoLine:    true,
	}
	return &testModel{sphere: sphere, species: species, grid: g, cfg: cfg}
}

func (tm *testModel) centreChannel() int {
	return (tm.cfg.NChan - 1) / 2
}

func allZero(s []float64) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestNewCommonSelectsActiveLines(t *testing.T) {
	tm := newTestModel(t, 7, 1e-9, model.Static())

	c := newCommon(tm.cfg)
	if len(c.active) != 1 {
		t.Fatalf("expected 1 active line, got %d", len(c.active))
	}
	if c.active[0].mol != 0 || c.active[0].line != 0 {
		t.Errorf("active line = %+v", c.active[0])
	}
	// Reference frequency equals the line frequency, so no shift
	if c.active[0].redShift != 0 {
		t.Errorf("redShift = %v, want 0", c.active[0].redShift)
	}

	// A line outside the bandwidth is ignored
	narrow := tm.cfg
	narrow.Freq = tm.species.Freq[0] * 1.01
	narrow.RefFreq = narrow.Freq
	c = newCommon(narrow)
	if len(c.active) != 0 {
		t.Errorf("line outside the bandwidth still active: %+v", c.active)
	}
}

func TestNewCommonRedShift(t *testing.T) {
	tm := newTestModel(t, 7, 1e-9, model.Static())

	// Image 1 MHz above the line: the line appears shifted by the equivalent
	// velocity (refFreq-f)/refFreq * c.
	cfg := tm.cfg
	cfg.Freq = tm.species.Freq[0] + 1e6
	cfg.RefFreq = cfg.Freq
	c := newCommon(cfg)
	if len(c.active) != 1 {
		t.Fatalf("expected 1 active line, got %d", len(c.active))
	}
	want := 1e6 / cfg.RefFreq * core.CLight
	if diff := c.active[0].redShift - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("redShift = %v, want %v", c.active[0].redShift, want)
	}
}

func TestEnterModel(t *testing.T) {
	tm := newTestModel(t, 7, 1e-9, model.Static())
	c := newCommon(tm.cfg)

	ray := NewRayState(tm.cfg.NChan)
	ray.X = 0.25 * tm.grid.Radius
	ray.Y = -0.1 * tm.grid.Radius
	x, dir, zp, ok := c.enterModel(ray)
	if !ok {
		t.Fatal("ray inside the disk was rejected")
	}
	if zp >= 0 {
		t.Errorf("near intersection depth must be negative, got %v", zp)
	}
	// Entry point lies on the model sphere
	if r := x.Length(); r/tm.grid.Radius < 0.999999 || r/tm.grid.Radius > 1.000001 {
		t.Errorf("entry point at radius %v, want %v", r, tm.grid.Radius)
	}
	// Face-on image: the direction is +z
	if dir.Subtract(core.NewVec3(0, 0, 1)).Length() > 1e-12 {
		t.Errorf("direction = %v, want +z", dir)
	}

	ray.X = 1.01 * tm.grid.Radius
	ray.Y = 0
	if _, _, _, ok := c.enterModel(ray); ok {
		t.Error("ray outside the disk was accepted")
	}
}
