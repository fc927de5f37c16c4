package grid

import (
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
)

// Species holds the radiative line data of one molecular species, produced by
// an external line-data loader and equilibrium solver. Read-only to the core.
type Species struct {
	Name  string
	NLev  int
	NLine int

	Freq   []float64 // rest frequency per transition [Hz]
	AEinst []float64 // Einstein A per transition
	BEinstU,
	BEinstL []float64 // Einstein B (upper, lower) per transition
	LAU, LAL []int // upper/lower level index per transition

	// Norm scales intensities; NormInv = 1/Norm is applied once per segment.
	Norm, NormInv float64

	// LocalCMB is the normalized cosmic-background radiance per transition,
	// added behind the accumulated optical depth after the ray march.
	LocalCMB []float64
}

// Planck returns the black-body radiance B_nu(T) in SI units. Zero for
// non-positive temperature or frequency.
func Planck(freq, temp float64) float64 {
	if temp <= 0 || freq <= 0 {
		return 0
	}
	x := core.HPlanck * freq / (core.KBoltz * temp)
	if x > 700 {
		// exp would overflow; the radiance is effectively zero
		return 0
	}
	return 2 * core.HPlanck * freq * freq * freq / (core.CLight * core.CLight) / (math.Exp(x) - 1)
}

// ComputeCMB fills LocalCMB with the Planck radiance at tcmb for every
// transition, in the species' normalized units.
func (s *Species) ComputeCMB(tcmb float64) {
	s.LocalCMB = make([]float64, s.NLine)
	for li := 0; li < s.NLine; li++ {
		s.LocalCMB[li] = Planck(s.Freq[li], tcmb) * s.NormInv
	}
}

// LineRef identifies one transition of one species in the flattened list of
// all lines of all species.
type LineRef struct {
	Mol, Line int
}

// LineList flattens the transitions of all species into a single list so the
// integrator can detect blended lines across species within one bandwidth.
func LineList(species []*Species) []LineRef {
	var lines []LineRef
	for mi, s := range species {
		for li := 0; li < s.NLine; li++ {
			lines = append(lines, LineRef{Mol: mi, Line: li})
		}
	}
	return lines
}
