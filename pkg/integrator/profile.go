package integrator

import "math"

// profileCutoff is the largest normalized velocity offset |v|*binv for which
// the Gaussian line shape is evaluated. Beyond it exp(-x^2) underflows to
// values with no radiative significance, so the amplitude is forced to zero.
const profileCutoff = 2500.0

// LineAmpSample returns an approximate average of the line-shape function
// along a path, given the bulk-velocity projections precomputed at equally
// spaced sub-points of the path. The bulk velocity can vary significantly and
// nonlinearly with position, so a single evaluation at the segment start is
// not enough. deltav is the recession velocity of the channel of interest;
// line centre occurs where deltav equals the projected velocity.
func LineAmpSample(projVels []float64, binv, deltav float64) float64 {
	vfac := 0.0
	for _, pv := range projVels {
		val := math.Abs(deltav-pv) * binv
		if val <= profileCutoff {
			vfac += math.Exp(-val * val)
		}
	}
	return vfac / float64(len(projVels))
}

// LineAmpInterp is the single-point variant of LineAmpSample, used when the
// segment velocity is already an interpolated value and further sampling
// would be inconsistent with that representation.
func LineAmpInterp(projVelRay, binv, deltav float64) float64 {
	val := math.Abs(deltav-projVelRay) * binv
	if val > profileCutoff {
		return 0.0
	}
	return math.Exp(-val * val)
}

// Gaussline evaluates the Gaussian line shape at velocity offset v from line
// centre, for models whose velocity is known only at the grid points.
func Gaussline(v, binv float64) float64 {
	val := math.Abs(v) * binv
	if val > profileCutoff {
		return 0.0
	}
	return math.Exp(-val * val)
}
