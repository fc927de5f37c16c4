// Package integrator implements the single-ray radiative transfer
// integration: marching a line of sight through consecutive cells of the
// unstructured model while accumulating per-channel optical depth and
// intensity. Two traversal strategies exist behind one interface: Voronoi
// face stepping with direct sampling, and Delaunay chain tracing with
// barycentric interpolation.
package integrator

import (
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
	"github.com/skygrid/go-spectral-raytracer/pkg/physics"
)

const (
	// nStepsThruCell is the number of velocity sub-samples per cell crossing
	nStepsThruCell = 10
	// numSegments is the number of sub-segments per Delaunay cell in the
	// interpolated variant
	numSegments = 5
	// chainEpsilon is the traversal tolerance of the chain walk, relative to
	// the model radius
	chainEpsilon = 1.0e-6
)

// Config carries everything a ray integrator needs for one image render. All
// referenced data is read-only while rays are in flight.
type Config struct {
	Grid    *grid.Grid
	Arena   *grid.CellArena // required by the cell-chain integrator only
	Aux     *grid.AuxData
	Species []*grid.Species
	Lines   []grid.LineRef

	// VelField evaluates bulk velocity at arbitrary positions. When nil the
	// model is treated as pre-gridded: velocities are known only at the grid
	// points and the single-evaluation Gaussian profile is used.
	VelField core.VelocityField
	// Stokes supplies the polarized source function; only consulted when
	// Polarized is set.
	Stokes physics.StokesSourceFunc

	RotMat    core.Matrix3
	NChan     int
	VelRes    float64 // channel width [m/s]
	Freq      float64 // image frequency [Hz]
	RefFreq   float64 // reference frequency for line velocity shifts [Hz]
	Trans     int     // resolved reference transition index (never -1 here)
	Bandwidth float64 // [Hz]
	SourceVel float64 // bulk source velocity, >0 receding [m/s]
	DoLine    bool
	Polarized bool
	Theta     float64 // polarization viewing angle [rad]
}

// RayState is the transient state of one sampled ray: its pixel-plane offset
// and the per-channel accumulators. A RayState is reused across rays of one
// worker; Reset clears it for the next ray.
type RayState struct {
	X, Y      float64
	Intensity []float64
	Tau       []float64
}

// NewRayState allocates accumulators for nchan channels
func NewRayState(nchan int) *RayState {
	return &RayState{
		Intensity: make([]float64, nchan),
		Tau:       make([]float64, nchan),
	}
}

// Reset zeroes the accumulators
func (r *RayState) Reset() {
	zero(r.Intensity)
	zero(r.Tau)
}

// RayIntegrator traces one ray through the model, filling the per-channel
// intensity and optical depth of the RayState. The return value is false for
// rays that contributed nothing: outside the projected model disk, or dropped
// by a traversal failure. Implementations keep private scratch buffers and
// must not be shared across workers.
type RayIntegrator interface {
	TraceRay(ray *RayState) bool
}

// activeLine is a transition inside the image bandwidth, with its frequency
// offset already converted to a velocity shift
type activeLine struct {
	mol, line int
	redShift  float64
}

// common holds the state and control flow shared by both integrator variants:
// the channel/line sweep and the optical-depth recurrence. The variants plug
// in only how per-segment quantities are obtained.
type common struct {
	cfg       Config
	radiusSqu float64
	contMol   int
	contLine  int
	active    []activeLine
}

func newCommon(cfg Config) common {
	c := common{
		cfg:       cfg,
		radiusSqu: cfg.Grid.Radius * cfg.Grid.Radius,
		contMol:   0,
		contLine:  0,
	}
	if cfg.DoLine {
		c.contLine = cfg.Trans
	}

	// Collect the transitions overlapping the bandwidth once, converting the
	// line/image frequency mismatch to a velocity shift. A positive shift
	// acts like extra recession and is subtracted from deltav, as is the bulk
	// source velocity.
	if cfg.DoLine {
		refFreq := cfg.RefFreq
		if refFreq <= 0 {
			refFreq = cfg.Freq
		}
		for _, lr := range cfg.Lines {
			f := cfg.Species[lr.Mol].Freq[lr.Line]
			if f > cfg.Freq-cfg.Bandwidth*0.5 && f < cfg.Freq+cfg.Bandwidth*0.5 {
				c.active = append(c.active, activeLine{
					mol:      lr.Mol,
					line:     lr.Line,
					redShift: (refFreq - f) / refFreq * core.CLight,
				})
			}
		}
	}
	return c
}

// segmentSampler evaluates the line-shape amplitude for one species at the
// current path segment. Set up by the integrator before each sweep.
type segmentSampler interface {
	lineAmp(molI int, deltav float64) float64
}

// enterModel rejects rays outside the projected model disk and computes the
// model-frame entry point and (fixed) ray direction. zp is the observer-frame
// depth of the near boundary intersection, always negative.
func (c *common) enterModel(ray *RayState) (x, dir core.Vec3, zp float64, ok bool) {
	if ray.X*ray.X+ray.Y*ray.Y > c.radiusSqu {
		return core.Vec3{}, core.Vec3{}, 0, false
	}
	zp = -math.Sqrt(c.radiusSqu - ray.X*ray.X - ray.Y*ray.Y)
	x = c.cfg.RotMat.Apply(core.Vec3{X: ray.X, Y: ray.Y, Z: zp})
	// The direction points away from the observer
	dir = c.cfg.RotMat.Column(2)
	return x, dir, zp, true
}

// sweepChannels accumulates one path segment into every spectral channel:
// continuum once, then per channel the in-bandwidth lines weighted by the
// sampler's line-shape amplitude, then the radiative transfer recurrence.
func (c *common) sweepChannels(ray *RayState, ds float64, mols []grid.AuxMol, sampler segmentSampler) {
	contJnu := 0.0
	contAlpha := 0.0
	physics.ContinuumInc(&mols[c.contMol], c.contLine, &contJnu, &contAlpha)

	norminv := c.cfg.Species[0].NormInv
	for ichan := 0; ichan < c.cfg.NChan; ichan++ {
		jnu := contJnu
		alpha := contAlpha
		vThisChan := (float64(ichan) - float64(c.cfg.NChan-1)*0.5) * c.cfg.VelRes

		for _, al := range c.active {
			deltav := vThisChan - c.cfg.SourceVel - al.redShift
			vfac := sampler.lineAmp(al.mol, deltav)
			physics.LineInc(c.cfg.Species[al.mol], vfac, &mols[al.mol], al.line, &jnu, &alpha)
		}

		dtau := alpha * ds
		remnantSnu, _ := physics.SourceFnRemnant(dtau)
		remnantSnu *= jnu * norminv * ds
		ray.Intensity[ichan] += math.Exp(-ray.Tau[ichan]) * remnantSnu
		ray.Tau[ichan] += dtau
	}
}

// sweepStokes accumulates one path segment of the polarized mode, one Stokes
// parameter per channel. Mutually exclusive with sweepChannels.
func (c *common) sweepStokes(ray *RayState, ds float64, b core.Vec3, mol *grid.AuxMol) {
	snu, dtau := c.cfg.Stokes.StokesSource(ds, b, mol, c.contLine, c.cfg.Theta)
	for stokesID := 0; stokesID < c.cfg.NChan && stokesID < len(snu); stokesID++ {
		ray.Intensity[stokesID] += math.Exp(-ray.Tau[stokesID]) * (1.0 - math.Exp(-dtau)) * snu[stokesID]
		ray.Tau[stokesID] += dtau
	}
}

// addCMB adds the cosmic background, attenuated by the accumulated optical
// depth, to every channel after the march.
func (c *common) addCMB(ray *RayState) {
	cmb := c.cfg.Species[0].LocalCMB[c.cfg.Trans]
	for ichan := range ray.Intensity {
		ray.Intensity[ichan] += math.Exp(-ray.Tau[ichan]) * cmb
	}
}
