package core

// Physical constants in SI units
const (
	CLight  = 2.99792458e8   // speed of light [m/s]
	HPlanck = 6.62607015e-34 // Planck constant [J s]
	KBoltz  = 1.380649e-23   // Boltzmann constant [J/K]

	// TCMB is the present-day cosmic microwave background temperature [K]
	TCMB = 2.7255
)
