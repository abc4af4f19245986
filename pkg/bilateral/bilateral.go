// Package bilateral implements an edge-preserving smoothing filter: each
// output pixel is a weighted average of its neighbors, with weights decaying
// over both spatial distance and luminance dissimilarity.
package bilateral

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Params holds the filter configuration for a full run.
type Params struct {
	SpatialSigma float64 `json:"spatial_sigma"`
	RangeSigma   float64 `json:"range_sigma"`
	Reps         int     `json:"reps"`
}

// Validate rejects parameter combinations the filter does not define.
// Sigmas of exactly 0 are valid and disable the corresponding decay term.
func (p Params) Validate() error {
	if p.SpatialSigma < 0 {
		return fmt.Errorf("spatial sigma must be >= 0, got %g", p.SpatialSigma)
	}
	if p.RangeSigma < 0 {
		return fmt.Errorf("range sigma must be >= 0, got %g", p.RangeSigma)
	}
	if p.Reps < 1 {
		return fmt.Errorf("repetitions must be >= 1, got %d", p.Reps)
	}
	return nil
}

// Intensity computes the perceptual luminance of an RGB triple in [0, 1].
func Intensity(r, g, b float64) float64 {
	return 0.2125*r + 0.7154*g + 0.0721*b
}

// SupportRadius returns the window radius for a spatial sigma: floor(3s).
// Beyond three standard deviations the Gaussian weight is negligible.
func SupportRadius(s float64) int {
	return int(3 * s)
}

// quantize converts a working-form channel in [0, 1] back to 8-bit storage,
// rounding to nearest and saturating against floating-point drift at the
// extremes.
func quantize(v float64) uint8 {
	n := math.Round(255 * v)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// FilterPixel computes the filtered color of a single pixel. The support
// window is a square of radius floor(3s) clamped to the image bounds; every
// neighbor contributes exp(-d1-d2) where d1 is the normalized squared spatial
// distance and d2 the normalized squared luminance difference against the
// center. A sigma of 0 disables its term. The center pixel always contributes
// weight 1, so the weight sum is never 0. Alpha is passed through unchanged.
func FilterPixel(img *image.RGBA, x, y int, s, b float64) color.RGBA {
	bounds := img.Bounds()
	support := SupportRadius(s)

	x1 := x - support
	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	x2 := x + support
	if x2 > bounds.Max.X-1 {
		x2 = bounds.Max.X - 1
	}
	y1 := y - support
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	y2 := y + support
	if y2 > bounds.Max.Y-1 {
		y2 = bounds.Max.Y - 1
	}

	center := img.RGBAAt(x, y)
	cr := float64(center.R) / 255
	cg := float64(center.G) / 255
	cb := float64(center.B) / 255

	var rSum, gSum, bSum, wSum float64

	for ys := y1; ys <= y2; ys++ {
		for xs := x1; xs <= x2; xs++ {
			px := img.RGBAAt(xs, ys)
			nr := float64(px.R) / 255
			ng := float64(px.G) / 255
			nb := float64(px.B) / 255

			// Spatial decay
			d1 := 0.0
			if s > 0 {
				dx := float64(xs - x)
				dy := float64(ys - y)
				d1 = (dx*dx + dy*dy) / (2 * s * s)
			}

			// Luminance decay
			d2 := 0.0
			if b > 0 {
				di := Intensity(cr-nr, cg-ng, cb-nb)
				d2 = di * di / (2 * b * b)
			}

			w := math.Exp(-d1 - d2)
			rSum += w * nr
			gSum += w * ng
			bSum += w * nb
			wSum += w
		}
	}

	return color.RGBA{
		R: quantize(rSum / wSum),
		G: quantize(gSum / wSum),
		B: quantize(bSum / wSum),
		A: center.A,
	}
}

// FilterTile applies one filtering pass to raw tile data. Tiles arrive with
// clamp-padded borders so interior pixels see their full support window; the
// caller trims the padding afterwards with ExtractCenter.
func FilterTile(data [][]color.RGBA, s, b float64) [][]color.RGBA {
	height := len(data)
	if height == 0 {
		return nil
	}
	width := len(data[0])

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, data[y][x])
		}
	}

	result := make([][]color.RGBA, height)
	for y := 0; y < height; y++ {
		result[y] = make([]color.RGBA, width)
		for x := 0; x < width; x++ {
			result[y][x] = FilterPixel(img, x, y, s, b)
		}
	}
	return result
}

// ExtractCenter removes the padding border from filtered tile data, returning
// the width x height region the tile actually owns. offsetX and offsetY give
// the owned region's position inside data; on image borders they are smaller
// than the nominal padding because the border is clamped.
func ExtractCenter(data [][]color.RGBA, offsetX, offsetY, width, height int) [][]color.RGBA {
	result := make([][]color.RGBA, height)
	for y := 0; y < height; y++ {
		result[y] = make([]color.RGBA, width)
		for x := 0; x < width; x++ {
			if y+offsetY < len(data) && x+offsetX < len(data[0]) {
				result[y][x] = data[y+offsetY][x+offsetX]
			}
		}
	}
	return result
}
