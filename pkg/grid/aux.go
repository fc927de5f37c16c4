package grid

// AuxMol is the per-point, per-species cache of precomputed radiative
// quantities: the population terms weighted by number density and inverse
// linewidth, plus copies of the continuum terms so that interpolated and
// direct evaluation share one layout.
type AuxMol struct {
	Binv        float64   // inverse Doppler linewidth, interpolated in the chain variant
	SpecNumDens []float64 // binv*nmol*pops per level
	Dust        []float64 // per line
	Knu         []float64 // per line
}

// NewAuxMol allocates an AuxMol sized for one species. Used both for the
// per-point cache and for the integrator's interpolation scratch.
func NewAuxMol(s *Species) AuxMol {
	return AuxMol{
		SpecNumDens: make([]float64, s.NLev),
		Dust:        make([]float64, s.NLine),
		Knu:         make([]float64, s.NLine),
	}
}

// AuxData is the derived per-render cache, indexed [point][species]. It is
// computed once before the parallel region and shared read-only by all
// workers.
type AuxData struct {
	Mol [][]AuxMol
}

// PrecomputeAux builds the auxiliary cache from the grid and species data so
// that no per-ray work recomputes the population products.
func PrecomputeAux(g *Grid, species []*Species) *AuxData {
	aux := &AuxData{Mol: make([][]AuxMol, len(g.Points))}
	for gi := range g.Points {
		gp := &g.Points[gi]
		aux.Mol[gi] = make([]AuxMol, len(species))
		for mi, s := range species {
			am := NewAuxMol(s)
			ms := &gp.Mol[mi]
			am.Binv = ms.Binv
			for ei := 0; ei < s.NLev; ei++ {
				am.SpecNumDens[ei] = ms.Binv * ms.NMol * ms.Pops[ei]
			}
			copy(am.Dust, ms.Dust)
			copy(am.Knu, ms.Knu)
			aux.Mol[gi][mi] = am
		}
	}
	return aux
}
