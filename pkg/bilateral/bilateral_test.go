package bilateral

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func randomImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestIntensity(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		want    float64
	}{
		{"black", 0, 0, 0, 0},
		{"white", 1, 1, 1, 1.0},
		{"pure red", 1, 0, 0, 0.2125},
		{"pure green", 0, 1, 0, 0.7154},
		{"pure blue", 0, 0, 1, 0.0721},
		{"negative difference", -0.5, -0.5, -0.5, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intensity(tt.r, tt.g, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Intensity(%v, %v, %v) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestSupportRadius(t *testing.T) {
	tests := []struct {
		sigma float64
		want  int
	}{
		{0, 0},
		{0.3, 0},
		{0.5, 1},
		{1.0, 3},
		{1.5, 4},
		{2.0, 6},
	}
	for _, tt := range tests {
		if got := SupportRadius(tt.sigma); got != tt.want {
			t.Errorf("SupportRadius(%v) = %d, want %d", tt.sigma, got, tt.want)
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{0, 0},
		{1, 255},
		{0.5, 128},      // 127.5 rounds up, not truncates
		{100.0 / 255, 100},
		{-0.0001, 0},    // saturate float drift below 0
		{1.0001, 255},   // saturate float drift above 1
	}
	for _, tt := range tests {
		if got := quantize(tt.in); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// With both sigmas at 0 only the center pixel receives weight, so the filter
// is the identity transform.
func TestFilterPixelZeroSigmasIsIdentity(t *testing.T) {
	img := randomImage(8, 6, 1)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			got := FilterPixel(img, x, y, 0, 0)
			want := img.RGBAAt(x, y)
			if got != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

// A constant-color image is a fixed point of the filter for any sigmas: all
// window weights multiply the same value, so the average is that value.
func TestFilterPixelUniformImageUnchanged(t *testing.T) {
	c := color.RGBA{R: 73, G: 140, B: 211, A: 255}
	img := uniformImage(9, 9, c)

	sigmas := []struct{ s, b float64 }{
		{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2.5, 0.1},
	}
	for _, p := range sigmas {
		got := FilterPixel(img, 4, 4, p.s, p.b)
		if got != c {
			t.Errorf("s=%v b=%v: got %v, want %v", p.s, p.b, got, c)
		}
	}
}

// A bright center pixel in a flat neighborhood must move toward the
// neighbors but stay strictly between the two original values: its
// self-weight is exp(0) = 1 while every neighbor weighs less.
func TestFilterPixelBrightCenterBlends(t *testing.T) {
	img := uniformImage(3, 3, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetRGBA(1, 1, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	got := FilterPixel(img, 1, 1, 1.0, 1.0)
	for i, ch := range []uint8{got.R, got.G, got.B} {
		if ch <= 100 || ch >= 200 {
			t.Errorf("channel %d = %d, want strictly between 100 and 200", i, ch)
		}
	}
}

// Every output channel stays inside the [min, max] of the window's inputs;
// a weighted average cannot overshoot.
func TestFilterPixelStaysWithinInputRange(t *testing.T) {
	img := randomImage(16, 16, 42)
	for _, p := range []struct{ s, b float64 }{{1.5, 0}, {1.5, 0.3}, {0.5, 2}} {
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				got := FilterPixel(img, x, y, p.s, p.b)
				lo, hi := windowRange(img, x, y, SupportRadius(p.s))
				for i, ch := range []uint8{got.R, got.G, got.B} {
					if int(ch) < lo[i]-1 || int(ch) > hi[i]+1 {
						t.Fatalf("s=%v b=%v pixel (%d,%d) channel %d = %d outside window range [%d,%d]",
							p.s, p.b, x, y, i, ch, lo[i], hi[i])
					}
				}
			}
		}
	}
}

func windowRange(img *image.RGBA, x, y, support int) (lo, hi [3]int) {
	bounds := img.Bounds()
	for i := range lo {
		lo[i] = 256
		hi[i] = -1
	}
	for ys := max(y-support, bounds.Min.Y); ys <= min(y+support, bounds.Max.Y-1); ys++ {
		for xs := max(x-support, bounds.Min.X); xs <= min(x+support, bounds.Max.X-1); xs++ {
			px := img.RGBAAt(xs, ys)
			for i, ch := range []uint8{px.R, px.G, px.B} {
				if int(ch) < lo[i] {
					lo[i] = int(ch)
				}
				if int(ch) > hi[i] {
					hi[i] = int(ch)
				}
			}
		}
	}
	return lo, hi
}

// A 1x1 image must not index out of bounds and returns its pixel unchanged
// for any sigmas.
func TestFilterPixelSinglePixelImage(t *testing.T) {
	c := color.RGBA{R: 12, G: 200, B: 77, A: 255}
	img := uniformImage(1, 1, c)

	for _, p := range []struct{ s, b float64 }{{0, 0}, {5, 5}, {100, 0}} {
		if got := FilterPixel(img, 0, 0, p.s, p.b); got != c {
			t.Errorf("s=%v b=%v: got %v, want %v", p.s, p.b, got, c)
		}
	}
}

// With range sigma 0 the filter degrades to a plain spatial Gaussian: an
// isolated bright pixel is smoothed down harder than with a range term
// defending the edge.
func TestFilterPixelRangeTermPreservesEdges(t *testing.T) {
	img := uniformImage(9, 9, color.RGBA{R: 20, G: 20, B: 20, A: 255})
	img.SetRGBA(4, 4, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	blurred := FilterPixel(img, 4, 4, 2.0, 0)
	preserved := FilterPixel(img, 4, 4, 2.0, 0.05)

	if blurred.R >= 250 {
		t.Fatalf("pure spatial blur left center at %d, expected smoothing", blurred.R)
	}
	if preserved.R <= blurred.R {
		t.Errorf("range term should defend the bright center: preserved=%d blurred=%d",
			preserved.R, blurred.R)
	}
}

func TestFilterPixelPreservesAlpha(t *testing.T) {
	img := randomImage(5, 5, 7)
	img.SetRGBA(2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 128})

	got := FilterPixel(img, 2, 2, 1.0, 0.5)
	if got.A != 128 {
		t.Errorf("alpha = %d, want 128", got.A)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{SpatialSigma: 1, RangeSigma: 1, Reps: 1}, false},
		{"zero sigmas valid", Params{Reps: 1}, false},
		{"negative spatial sigma", Params{SpatialSigma: -1, Reps: 1}, true},
		{"negative range sigma", Params{RangeSigma: -0.5, Reps: 1}, true},
		{"zero reps", Params{Reps: 0}, true},
		{"negative reps", Params{Reps: -3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractCenter(t *testing.T) {
	// 6x6 padded data, owned region 2x2 at offset (2, 2)
	data := make([][]color.RGBA, 6)
	for y := range data {
		data[y] = make([]color.RGBA, 6)
		for x := range data[y] {
			data[y][x] = color.RGBA{R: uint8(10*y + x), A: 255}
		}
	}

	center := ExtractCenter(data, 2, 2, 2, 2)
	if len(center) != 2 || len(center[0]) != 2 {
		t.Fatalf("center dimensions = %dx%d, want 2x2", len(center[0]), len(center))
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			want := data[y+2][x+2]
			if center[y][x] != want {
				t.Errorf("center[%d][%d] = %v, want %v", y, x, center[y][x], want)
			}
		}
	}
}
