package renderer

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"

	"github.com/skygrid/go-spectral-raytracer/pkg/integrator"
)

// tileTask is one tile of pixels submitted to the worker pool
type tileTask struct {
	Tile   *Tile
	TaskID int
}

// tileResult reports a completed tile
type tileResult struct {
	TaskID  int
	Skipped int
}

// workerPool manages parallel tile rendering. Each worker owns a private ray
// integrator (with its interpolation scratch) and a reusable RayState; the
// only shared mutable state is the pixel array, guarded by accumMu as a
// safety net even though tile partitioning already keeps pixel writes on a
// single worker, and the atomic completed-ray counter used for progress.
type workerPool struct {
	taskQueue   chan tileTask
	resultQueue chan tileResult
	workers     []*worker
	numWorkers  int
	wg          sync.WaitGroup

	raysDone atomic.Int64
}

// worker renders whole tiles: every ray of every pixel of the tile
type worker struct {
	id    int
	integ integrator.RayIntegrator
	ray   *integrator.RayState
	img   *Image
	pool  *workerPool

	accumMu *sync.Mutex
}

// newWorkerPool creates numWorkers workers, each with its own integrator
// built by the factory.
func newWorkerPool(numWorkers, maxTiles int, img *Image, factory func() integrator.RayIntegrator) *workerPool {
	wp := &workerPool{
		taskQueue:   make(chan tileTask, maxTiles),
		resultQueue: make(chan tileResult, maxTiles),
		numWorkers:  numWorkers,
	}

	accumMu := &sync.Mutex{}
	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &worker{
			id:      i,
			integ:   factory(),
			ray:     integrator.NewRayState(img.NChan),
			img:     img,
			pool:    wp,
			accumMu: accumMu,
		})
	}

	return wp
}

// start begins all workers
func (wp *workerPool) start() {
	for _, w := range wp.workers {
		wp.wg.Add(1)
		go w.run(&wp.wg)
	}
}

// stop shuts the pool down after all submitted tasks have been processed
func (wp *workerPool) stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// submit queues a tile task
func (wp *workerPool) submit(task tileTask) {
	wp.taskQueue <- task
}

// result retrieves a completed tile result
func (wp *workerPool) result() (tileResult, bool) {
	res, ok := <-wp.resultQueue
	return res, ok
}

// run is the main worker loop
func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.pool.taskQueue {
		skipped := w.renderTile(task.Tile)
		w.pool.resultQueue <- tileResult{TaskID: task.TaskID, Skipped: skipped}
	}
}

// renderTile traces every ray of every pixel in the tile, accumulating each
// ray's per-channel contribution into its pixel scaled by 1/numRays. Ray
// offsets within the pixel are drawn from the tile's private random stream.
func (w *worker) renderTile(tile *Tile) int {
	img := w.img
	size := img.PixelSize()
	centre := float64(img.Pxls) / 2.0
	skipped := 0

	for yi := tile.Bounds.Min.Y; yi < tile.Bounds.Max.Y; yi++ {
		for xi := tile.Bounds.Min.X; xi < tile.Bounds.Max.X; xi++ {
			pixel := img.PixelAt(xi, yi)
			oneOnNumRays := 1.0 / float64(pixel.NumRays)

			for ai := 0; ai < pixel.NumRays; ai++ {
				w.ray.X = -size * (tile.Random.Float64() + float64(xi) - centre)
				w.ray.Y = size * (tile.Random.Float64() + float64(yi) - centre)

				if !w.integ.TraceRay(w.ray) {
					skipped++
				}

				w.accumMu.Lock()
				floats.AddScaled(pixel.Intensity, oneOnNumRays, w.ray.Intensity)
				floats.AddScaled(pixel.Tau, oneOnNumRays, w.ray.Tau)
				w.accumMu.Unlock()
			}

			w.pool.raysDone.Add(int64(pixel.NumRays))
		}
	}

	return skipped
}
