// Package stats collects and writes timing reports for filter runs.
package stats

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// RunReport holds timing and metadata for one filtering run.
type RunReport struct {
	AlgorithmName   string
	ImagesProcessed int
	Width           int
	Height          int
	SpatialSigma    float64
	RangeSigma      float64
	Reps            int
	FilterMillis    int64
	TotalMillis     int64
	InputPaths      []string
	OutputPaths     []string
	Timestamp       time.Time

	// Algorithm-specific data
	Workers  *int // for parallel and distributed runs
	TileSize *int // for distributed runs
}

// Write renders the reports into a single timestamped text file under dir.
// It returns the path of the file it wrote.
func Write(dir string, reports []RunReport) (string, error) {
	if len(reports) == 0 {
		return "", fmt.Errorf("no reports to write")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	timestamp := reports[0].Timestamp.Format("2006-01-02_15-04-05")
	path := filepath.Join(dir, fmt.Sprintf("run_%s.txt", timestamp))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "=== Bilateral Filter Results ===\n")
	fmt.Fprintf(file, "Timestamp: %s\n\n", reports[0].Timestamp.Format("2006-01-02 15:04:05"))

	for _, r := range reports {
		fmt.Fprintf(file, "=== %s ===\n", r.AlgorithmName)
		fmt.Fprintf(file, "Images processed: %d\n", r.ImagesProcessed)
		if r.Width > 0 {
			fmt.Fprintf(file, "Dimensions: %dx%d\n", r.Width, r.Height)
		}
		fmt.Fprintf(file, "Spatial sigma: %g\n", r.SpatialSigma)
		fmt.Fprintf(file, "Range sigma: %g\n", r.RangeSigma)
		fmt.Fprintf(file, "Repetitions: %d\n", r.Reps)
		fmt.Fprintf(file, "Filter time: %dms\n", r.FilterMillis)
		fmt.Fprintf(file, "Total time: %dms\n", r.TotalMillis)

		if r.Workers != nil {
			fmt.Fprintf(file, "Workers: %d\n", *r.Workers)
		}
		if r.TileSize != nil {
			fmt.Fprintf(file, "Tile size: %d\n", *r.TileSize)
		}

		if len(r.InputPaths) > 0 {
			fmt.Fprintf(file, "\nInput files:\n")
			for i, p := range r.InputPaths {
				fmt.Fprintf(file, "  %d. %s\n", i+1, p)
			}
		}
		if len(r.OutputPaths) > 0 {
			fmt.Fprintf(file, "\nOutput files:\n")
			for i, p := range r.OutputPaths {
				fmt.Fprintf(file, "  %d. %s\n", i+1, p)
			}
		}
		fmt.Fprintf(file, "\n")
	}

	return path, nil
}

// MustWrite is Write with errors logged instead of returned, for callers
// that treat the report as best-effort.
func MustWrite(dir string, reports []RunReport) {
	if _, err := Write(dir, reports); err != nil {
		log.Printf("Failed to write results file: %v", err)
	}
}
