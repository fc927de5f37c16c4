package renderer

import (
	"fmt"
	"math"

	"github.com/skygrid/go-spectral-raytracer/pkg/core"
	"github.com/skygrid/go-spectral-raytracer/pkg/grid"
)

// Pixel holds the per-channel accumulated intensity and optical depth of one
// image pixel, plus the number of rays assigned to it. Owned by the renderer
// for the duration of one render.
type Pixel struct {
	Intensity []float64
	Tau       []float64
	NumRays   int
}

// Image describes one output cube and owns its pixel array. Created by the
// caller with the descriptor fields set; the renderer fixes derived channel
// parameters, fills the pixels, and hands the result back for an external
// writer.
type Image struct {
	Pxls     int     // image is Pxls x Pxls
	ImgRes   float64 // angular pixel size [rad]
	Distance float64 // distance to the source [m]
	RotMat   core.Matrix3

	NChan     int     // number of spectral channels (3 for polarized mode)
	VelRes    float64 // channel width [m/s]
	Freq      float64 // image frequency [Hz]; <=0 derives from Trans
	Trans     int     // transition index; -1 selects the one nearest Freq
	Bandwidth float64 // [Hz]
	SourceVel float64 // bulk source velocity, >0 receding [m/s]

	DoLine    bool
	Polarized bool
	Theta     float64 // polarization viewing angle [rad]

	Pixels []Pixel
}

// PixelSize returns the physical pixel size in the model plane
func (img *Image) PixelSize() float64 {
	return img.Distance * img.ImgRes
}

// PixelAt returns the pixel at image coordinates (xi, yi)
func (img *Image) PixelAt(xi, yi int) *Pixel {
	return &img.Pixels[yi*img.Pxls+xi]
}

// allocPixels creates the pixel array with zeroed per-channel accumulators
func (img *Image) allocPixels() {
	img.Pixels = make([]Pixel, img.Pxls*img.Pxls)
	for i := range img.Pixels {
		img.Pixels[i].Intensity = make([]float64, img.NChan)
		img.Pixels[i].Tau = make([]float64, img.NChan)
	}
}

// fixChannels completes the channel configuration: whichever of channel
// count, velocity resolution and bandwidth is unset is derived from the other
// two, and an unset image frequency is taken from the selected transition.
func (img *Image) fixChannels(s *grid.Species) error {
	if img.Freq <= 0 {
		if img.Trans < 0 || img.Trans >= s.NLine {
			return fmt.Errorf("image needs either a frequency or a valid transition index, got freq=%g trans=%d", img.Freq, img.Trans)
		}
		img.Freq = s.Freq[img.Trans]
	}

	switch {
	case img.NChan == 0 && img.Bandwidth > 0:
		img.NChan = int(img.Bandwidth / (img.VelRes / core.CLight * img.Freq))
	case img.VelRes <= 0 && img.Bandwidth > 0:
		img.VelRes = img.Bandwidth * core.CLight / img.Freq / float64(img.NChan)
	default:
		img.Bandwidth = float64(img.NChan) * img.VelRes / core.CLight * img.Freq
	}

	if img.NChan <= 0 {
		return fmt.Errorf("channel configuration resolves to %d channels", img.NChan)
	}
	return nil
}

// nearestTransition returns the transition of s whose rest frequency is
// closest to the image frequency, used when no transition was selected.
func (img *Image) nearestTransition(s *grid.Species) int {
	best := 0
	minDiff := math.Abs(img.Freq - s.Freq[0])
	for li := 1; li < s.NLine; li++ {
		diff := math.Abs(img.Freq - s.Freq[li])
		if diff < minDiff {
			minDiff = diff
			best = li
		}
	}
	return best
}
