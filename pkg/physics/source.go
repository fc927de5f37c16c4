// Package physics supplies the local emission/absorption evaluators consumed
// by the ray integrators: line and continuum coefficient increments, the
// numerically stable source-function remnant, and a default polarized
// (Stokes) source function.
package physics

import (
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// hpip folds the constants of the line emission/absorption coefficients:
// h*c / (4*pi*sqrt(pi)). The sqrt(pi) belongs to the Gaussian line profile
// normalization.
var hpip = core.HPlanck * core.CLight / (4.0 * math.Pi * math.Sqrt(math.Pi))

// ContinuumInc adds the channel-independent dust emission and opacity of one
// species at the reference transition to jnu and alpha.
func ContinuumInc(mol *grid.AuxMol, lineI int, jnu, alpha *float64) {
	*jnu += mol.Dust[lineI] * mol.Knu[lineI]
	*alpha += mol.Knu[lineI]
}

// LineInc adds the emission and absorption of one transition, weighted by the
// line-shape amplitude vfac, to jnu and alpha. Stimulated emission enters
// alpha with a negative sign and can make it negative (masering).
func LineInc(s *grid.Species, vfac float64, mol *grid.AuxMol, lineI int, jnu, alpha *float64) {
	*jnu += vfac * hpip * mol.SpecNumDens[s.LAU[lineI]] * s.AEinst[lineI]
	*alpha += vfac * hpip * (mol.SpecNumDens[s.LAL[lineI]]*s.BEinstL[lineI] -
		mol.SpecNumDens[s.LAU[lineI]]*s.BEinstU[lineI])
}

// SourceFnRemnant returns (1-exp(-dtau))/dtau and exp(-dtau). For small
// |dtau| the ratio is replaced by its Taylor form to avoid catastrophic
// cancellation.
func SourceFnRemnant(dtau float64) (remnant, expDTau float64) {
	if math.Abs(dtau) < 1e-6 {
		expDTau = 1.0 - dtau
		remnant = 1.0 - 0.5*dtau
		return remnant, expDTau
	}
	expDTau = math.Exp(-dtau)
	remnant = (1.0 - expDTau) / dtau
	return remnant, expDTau
}

// StokesSourceFunc evaluates the polarized source function for one path
// segment: the Stokes (I,Q,U) source terms and the differential optical
// depth, from the local magnetic field and the viewing angle theta.
type StokesSourceFunc interface {
	StokesSource(ds float64, b core.Vec3, mol *grid.AuxMol, lineI int, theta float64) (snu [3]float64, dtau float64)
}

// DustPolarization is the default StokesSourceFunc: continuum dust emission
// partially linearly polarized perpendicular to the plane-of-sky magnetic
// field, with a fixed maximum polarization fraction.
type DustPolarization struct {
	MaxFrac float64 // maximum polarization fraction, 0.13 by default
}

// NewDustPolarization returns a DustPolarization with the default maximum
// polarization fraction.
func NewDustPolarization() *DustPolarization {
	return &DustPolarization{MaxFrac: 0.13}
}

// StokesSource implements StokesSourceFunc.
func (dp *DustPolarization) StokesSource(ds float64, b core.Vec3, mol *grid.AuxMol, lineI int, theta float64) ([3]float64, float64) {
	var snu [3]float64

	alpha := mol.Knu[lineI]
	dtau := alpha * ds
	if alpha <= 0 {
		return snu, dtau
	}
	source := mol.Dust[lineI]

	// Line of sight for viewing angle theta, and the plane-of-sky projection
	// of B. cos2gam measures how far B lies out of the plane of the sky.
	losX, losZ := math.Sin(theta), math.Cos(theta)
	bLos := b.X*losX + b.Z*losZ
	b2 := b.LengthSquared()
	cos2gam := 0.0
	if b2 > 0 {
		cos2gam = bLos * bLos / b2
	}

	// Polarization angle in the plane of the sky
	psX := b.X*losZ - b.Z*losX
	psY := b.Y
	phi := math.Atan2(psY, psX)

	p := dp.MaxFrac
	snu[0] = source * (1.0 - p*(cos2gam-2.0/3.0))
	snu[1] = p * source * math.Cos(2*phi) * (1.0 - cos2gam)
	snu[2] = p * source * math.Sin(2*phi) * (1.0 - cos2gam)
	return snu, dtau
}
