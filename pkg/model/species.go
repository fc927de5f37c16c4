package model

import (
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// TwoLevelSpecies builds the line data of a simple two-level molecule with a
// single transition at the given rest frequency. The Einstein B coefficients
// follow from A via the standard relations, with statistical weights 1 and 3
// for the lower and upper level.
func TwoLevelSpecies(name string, freq, aEinst float64) *grid.Species {
	const gl, gu = 1.0, 3.0
	bu := aEinst * core.CLight * core.CLight / (2.0 * core.HPlanck * freq * freq * freq)
	s := &grid.Species{
		Name:    name,
		NLev:    2,
		NLine:   1,
		Freq:    []float64{freq},
		AEinst:  []float64{aEinst},
		BEinstU: []float64{bu},
		BEinstL: []float64{bu * gu / gl},
		LAU:     []int{1},
		LAL:     []int{0},
		Norm:    1.0,
		NormInv: 1.0,
	}
	return s
}

// ltePops returns the fractional level populations of a two-level system in
// LTE at temperature t, with the same statistical weights as TwoLevelSpecies.
func ltePops(freq, t float64) [2]float64 {
	if t <= 0 {
		return [2]float64{1, 0}
	}
	ratio := 3.0 * math.Exp(-core.HPlanck*freq/(core.KBoltz*t))
	return [2]float64{1.0 / (1.0 + ratio), ratio / (1.0 + ratio)}
}
