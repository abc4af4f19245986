package bilateral

import (
	"fmt"
	"image"
	"runtime"
	"sync"
)

// SnapshotFunc persists the output of a non-final repetition. rep is the
// zero-based repetition index. Persistence is the caller's concern; the
// engine only guarantees the call happens between passes.
type SnapshotFunc func(rep int, img *image.RGBA) error

// Filter runs the bilateral filter over src, repeated p.Reps times, and
// returns the result as a new image. src is never modified. The output of
// repetition i becomes the input of repetition i+1 through a deep pixel copy,
// so within any single repetition every output pixel is computed purely from
// that repetition's starting image.
//
// workers controls how many goroutines share a pass: each takes a disjoint
// strip of output rows and reads only the shared repetition input, so no
// locking is needed; a WaitGroup barrier separates repetitions. workers <= 0
// means runtime.NumCPU(), workers == 1 runs the pass inline.
func Filter(src *image.RGBA, p Params, workers int, snapshot SnapshotFunc) (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	bounds := src.Bounds()
	input := image.NewRGBA(bounds)
	copy(input.Pix, src.Pix)
	output := image.NewRGBA(bounds)

	for rep := 0; rep < p.Reps; rep++ {
		filterPass(input, output, p.SpatialSigma, p.RangeSigma, workers)

		if rep < p.Reps-1 {
			if snapshot != nil {
				if err := snapshot(rep, output); err != nil {
					return nil, fmt.Errorf("snapshot for repetition %d: %w", rep, err)
				}
			}
			// Full copy, not a buffer swap: the next pass must read a
			// stable input while it overwrites output.
			copy(input.Pix, output.Pix)
		}
	}

	return output, nil
}

// filterPass fills output from input in raster order, one full application
// of the filter.
func filterPass(input, output *image.RGBA, s, b float64, workers int) {
	bounds := input.Bounds()
	height := bounds.Dy()

	if workers == 1 || height < workers {
		filterRows(input, output, s, b, bounds.Min.Y, bounds.Max.Y)
		return
	}

	rowsPerWorker := height / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if i == workers-1 {
			endY = bounds.Max.Y
		}
		wg.Add(1)
		go func(y1, y2 int) {
			defer wg.Done()
			filterRows(input, output, s, b, y1, y2)
		}(startY, endY)
	}
	wg.Wait()
}

func filterRows(input, output *image.RGBA, s, b float64, startY, endY int) {
	bounds := input.Bounds()
	for y := startY; y < endY; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			output.SetRGBA(x, y, FilterPixel(input, x, y, s, b))
		}
	}
}
