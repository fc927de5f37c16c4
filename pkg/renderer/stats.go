package renderer

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// RenderStats contains statistics about one completed render
type RenderStats struct {
	TotalPixels int           // number of image pixels
	TotalRays   int           // rays traced over the whole image
	AverageRays float64       // mean rays per pixel
	MinRays     int           // fewest rays assigned to any pixel
	MaxRays     int           // most rays assigned to any pixel
	SkippedRays int           // rays dropped by traversal failure
	Elapsed     time.Duration // wall time of the render
}

// collectStats derives the per-pixel ray statistics from the finished image
func collectStats(img *Image) RenderStats {
	stats := RenderStats{
		TotalPixels: len(img.Pixels),
		MinRays:     int(^uint(0) >> 1),
	}
	counts := make([]float64, len(img.Pixels))
	for i := range img.Pixels {
		n := img.Pixels[i].NumRays
		counts[i] = float64(n)
		stats.TotalRays += n
		stats.MinRays = min(stats.MinRays, n)
		stats.MaxRays = max(stats.MaxRays, n)
	}
	stats.AverageRays = stat.Mean(counts, nil)
	return stats
}
