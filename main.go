package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
	"github.com/skygrid/go-spectral-raytracer/pkg/model"
	"github.com/skygrid/go-spectral-raytracer/pkg/renderer"
)

func main() {
	algoName := flag.String("algo", "voronoi", "Traversal algorithm: 'voronoi' or 'cellchain'")
	pxls := flag.Int("pxls", 64, "Image size in pixels per side")
	nchan := flag.Int("nchan", 21, "Number of spectral channels")
	workers := flag.Int("workers", 0, "Number of workers (0 = CPU count)")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Spectral-cube raytracer demo")
		fmt.Println("Renders a uniform spherical test model and writes a PNG preview")
		fmt.Println("of the velocity-integrated intensity map.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	config := renderer.DefaultConfig()
	config.NumWorkers = *workers
	config.Seed = *seed
	switch *algoName {
	case "voronoi":
		config.Algorithm = renderer.AlgoVoronoi
	case "cellchain":
		config.Algorithm = renderer.AlgoCellChain
	default:
		fmt.Printf("Unknown algorithm %q, using voronoi\n", *algoName)
		*algoName = "voronoi"
	}

	config.Progress = func(frac float64) {
		fmt.Printf("\r%5.1f%%", frac*100)
	}

	// A uniform sphere of a two-level molecule, slowly rotating so the line
	// shifts across the disk.
	species := model.TwoLevelSpecies("demo", 115.2712018e9, 7.2e-8)
	cfg := model.DefaultSphereConfig()
	g, cells := model.NewUniformSphere(cfg, species)
	velField := model.SolidBodyRotation(1.0e-12)

	r := renderer.NewRenderer(g, []*grid.Species{species}, velField, config, nil)
	if config.Algorithm == renderer.AlgoCellChain {
		r.SetCells(cells)
	}

	img := &renderer.Image{
		Pxls:     *pxls,
		Distance: 3.086e18, // 100 pc
		ImgRes:   2.0 * cfg.Radius / 3.086e18 / float64(*pxls) * 1.1,
		RotMat:   core.Identity(),
		NChan:    *nchan,
		VelRes:   100.0,
		Trans:    0,
		DoLine:   true,
	}

	start := time.Now()
	stats, err := r.Render(img)
	if err != nil {
		fmt.Printf("Render failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nRendered in %v (%d rays, %.1f per pixel)\n",
		time.Since(start), stats.TotalRays, stats.AverageRays)

	outputDir := filepath.Join("output", *algoName)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", time.Now().Format("20060102_150405")))
	if err := writeMomentMap(img, filename); err != nil {
		fmt.Printf("Error writing preview: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Preview written to %s\n", filename)
}

// writeMomentMap writes a grayscale PNG of the channel-summed intensity
func writeMomentMap(img *renderer.Image, filename string) error {
	maxVal := 0.0
	sums := make([]float64, len(img.Pixels))
	for i := range img.Pixels {
		s := 0.0
		for _, v := range img.Pixels[i].Intensity {
			s += v
		}
		sums[i] = s
		if s > maxVal {
			maxVal = s
		}
	}

	out := image.NewGray(image.Rect(0, 0, img.Pxls, img.Pxls))
	for yi := 0; yi < img.Pxls; yi++ {
		for xi := 0; xi < img.Pxls; xi++ {
			v := 0.0
			if maxVal > 0 {
				v = sums[yi*img.Pxls+xi] / maxVal
			}
			out.SetGray(xi, img.Pxls-1-yi, color.Gray{Y: uint8(255 * v)})
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}
