// Package renderer orchestrates the rendering of one spectral-cube image:
// it decides how many rays each pixel gets from the projected model point
// density, precomputes the per-point auxiliary quantities, dispatches rays
// across a pool of workers, and accumulates the per-pixel results.
package renderer

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
	"github.com/skygrid/go-spectral-raytracer/pkg/integrator"
	"github.com/skygrid/go-spectral-raytracer/pkg/physics"
)

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// Algorithm selects the cell traversal strategy for a render
type Algorithm int

const (
	// AlgoVoronoi steps rays across Voronoi faces with direct sampling
	AlgoVoronoi Algorithm = iota
	// AlgoCellChain traces rays through Delaunay simplices with barycentric
	// interpolation; requires a cell list
	AlgoCellChain
)

func (a Algorithm) String() string {
	switch a {
	case AlgoVoronoi:
		return "voronoi"
	case AlgoCellChain:
		return "cellchain"
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// Config contains rendering configuration
type Config struct {
	Algorithm  Algorithm
	AntiAlias  int               // minimum rays per pixel (antialiasing floor)
	NumWorkers int               // number of parallel workers (0 = CPU count)
	TileSize   int               // pixels per tile edge
	Seed       int64             // random seed; 0 uses a time-based seed
	Progress   core.ProgressFunc // optional, called with throttled progress
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgoVoronoi,
		AntiAlias:  1,
		NumWorkers: 0,
		TileSize:   16,
	}
}

// progressMinStep is the smallest progress increment reported to the callback
const progressMinStep = 0.002

// Renderer renders spectral-cube images of one model. The grid, species data
// and optional cell list are shared read-only across renders.
type Renderer struct {
	grid     *grid.Grid
	species  []*grid.Species
	velField core.VelocityField
	stokes   physics.StokesSourceFunc
	cells    []grid.Cell
	config   Config
	logger   core.Logger
}

// NewRenderer creates a renderer for the given model. velField may be nil for
// pre-gridded models whose velocities are known only at the grid points.
func NewRenderer(g *grid.Grid, species []*grid.Species, velField core.VelocityField, config Config, logger core.Logger) *Renderer {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &Renderer{
		grid:     g,
		species:  species,
		velField: velField,
		stokes:   physics.NewDustPolarization(),
		config:   config,
		logger:   logger,
	}
}

// SetCells supplies the Delaunay simplex list required by AlgoCellChain
func (r *Renderer) SetCells(cells []grid.Cell) {
	r.cells = cells
}

// SetStokesSource replaces the default polarized source function
func (r *Renderer) SetStokesSource(s physics.StokesSourceFunc) {
	r.stokes = s
}

// Render fills the image's pixel array by tracing at least AntiAlias rays per
// pixel, more where the projected model point density is higher. It is the
// only entry point of a render; configuration errors are returned before any
// worker starts, and the render then runs to completion.
func (r *Renderer) Render(img *Image) (RenderStats, error) {
	start := time.Now()

	if r.config.Algorithm != AlgoVoronoi && r.config.Algorithm != AlgoCellChain {
		return RenderStats{}, fmt.Errorf("unrecognized ray-trace algorithm %d", int(r.config.Algorithm))
	}

	s0 := r.species[0]
	if err := img.fixChannels(s0); err != nil {
		return RenderStats{}, err
	}

	// Resolve the reference transition. An explicitly selected transition
	// also becomes the reference frequency for line velocity shifts;
	// otherwise shifts are relative to the image frequency.
	tmptrans := img.Trans
	refFreq := img.Freq
	if tmptrans < 0 {
		tmptrans = img.nearestTransition(s0)
	} else {
		if tmptrans >= s0.NLine {
			return RenderStats{}, fmt.Errorf("transition index %d out of range for %d transitions", tmptrans, s0.NLine)
		}
		refFreq = s0.Freq[tmptrans]
	}

	var arena *grid.CellArena
	if r.config.Algorithm == AlgoCellChain {
		if r.cells == nil {
			return RenderStats{}, fmt.Errorf("cell-chain algorithm requires a Delaunay cell list")
		}
		arena = grid.NewCellArena(r.grid, r.cells)
	}

	// Precompute the per-point radiative quantities once, outside the
	// parallel region.
	aux := grid.PrecomputeAux(r.grid, r.species)
	if s0.LocalCMB == nil {
		s0.ComputeCMB(core.TCMB)
	}

	img.allocPixels()
	totalRays := r.assignRayCounts(img)

	seed := r.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	master := rand.New(rand.NewSource(seed))
	tiles := newTileGrid(img.Pxls, r.config.TileSize, master)

	icfg := integrator.Config{
		Grid:      r.grid,
		Arena:     arena,
		Aux:       aux,
		Species:   r.species,
		Lines:     grid.LineList(r.species),
		VelField:  r.velField,
		Stokes:    r.stokes,
		RotMat:    img.RotMat,
		NChan:     img.NChan,
		VelRes:    img.VelRes,
		Freq:      img.Freq,
		RefFreq:   refFreq,
		Trans:     tmptrans,
		Bandwidth: img.Bandwidth,
		SourceVel: img.SourceVel,
		DoLine:    img.DoLine,
		Polarized: img.Polarized,
		Theta:     img.Theta,
	}

	numWorkers := r.config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	factory := func() integrator.RayIntegrator {
		if r.config.Algorithm == AlgoCellChain {
			return integrator.NewCellChainIntegrator(icfg)
		}
		return integrator.NewVoronoiIntegrator(icfg)
	}

	r.logger.Printf("Rendering %dx%d image, %d channels, %d rays (%s, %d workers)\n",
		img.Pxls, img.Pxls, img.NChan, totalRays, r.config.Algorithm, numWorkers)

	pool := newWorkerPool(numWorkers, len(tiles), img, factory)
	pool.start()
	for _, tile := range tiles {
		pool.submit(tileTask{Tile: tile, TaskID: tile.ID})
	}

	// Drain results, reporting throttled progress from the atomic ray
	// counter. The progress state lives here, not in a global.
	skipped := 0
	lastProgress := 0.0
	for range tiles {
		res, ok := pool.result()
		if !ok {
			return RenderStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		skipped += res.Skipped

		if r.config.Progress != nil {
			progress := float64(pool.raysDone.Load()) / float64(totalRays)
			if progress-lastProgress > progressMinStep {
				lastProgress = progress
				r.config.Progress(progress)
			}
		}
	}
	pool.stop()

	img.Trans = tmptrans

	stats := collectStats(img)
	stats.SkippedRays = skipped
	stats.Elapsed = time.Since(start)

	r.logger.Printf("Render completed in %v (%.1f rays/pixel, %d skipped)\n",
		stats.Elapsed, stats.AverageRays, stats.SkippedRays)
	return stats, nil
}

// assignRayCounts sets each pixel's ray count to the number of non-sink model
// points projecting into it, floored at the antialiasing minimum, and returns
// the total ray count.
func (r *Renderer) assignRayCounts(img *Image) int {
	size := img.PixelSize()
	centre := float64(img.Pxls) / 2.0

	for gi := 0; gi < r.grid.NumActive; gi++ {
		// Rotate grid coordinates to the observer frame; the inverse of the
		// rotation applied to rays inside the integrator.
		px, py := img.RotMat.ProjectXY(r.grid.Points[gi].Pos)
		xi := int(math.Floor(px/size + centre))
		yi := int(math.Floor(py/size + centre))
		if xi >= 0 && xi < img.Pxls && yi >= 0 && yi < img.Pxls {
			img.PixelAt(xi, yi).NumRays++
		}
	}

	floor := max(1, r.config.AntiAlias)
	totalRays := 0
	for i := range img.Pixels {
		if img.Pixels[i].NumRays < floor {
			img.Pixels[i].NumRays = floor
		}
		totalRays += img.Pixels[i].NumRays
	}
	return totalRays
}
