// Package common holds the tile and message types shared by the distributed
// filtering pipeline, plus the image partitioning used on both ends of it.
package common

import (
	"image/color"
	"time"

	"go-bilateral/pkg/bilateral"
)

const (
	// TileSize is the edge length of the square tiles the coordinator cuts
	// an image into. Border tiles may be smaller.
	TileSize = 256
)

// ImageTile is one padded tile of a specific image awaiting filtering.
// X, Y, Width, Height describe the region the tile owns in the original
// image; Data includes a clamp-limited padding border of Padding pixels.
type ImageTile struct {
	ImageID int            `json:"image_id"`
	Rep     int            `json:"rep"`
	TileID  int            `json:"tile_id"`
	X       int            `json:"x"`
	Y       int            `json:"y"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Data    [][]color.RGBA `json:"data"`
	// OffsetX and OffsetY locate the owned region inside Data. They equal
	// the nominal padding except on image borders, where the border is
	// clamped and less padding survives.
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

// ProcessedImageTile is a filtered tile with its padding already removed.
type ProcessedImageTile struct {
	ImageID int            `json:"image_id"`
	Rep     int            `json:"rep"`
	TileID  int            `json:"tile_id"`
	X       int            `json:"x"`
	Y       int            `json:"y"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Data    [][]color.RGBA `json:"data"`
}

// ImageInfo holds metadata about an image moving through the pipeline,
// including the filter parameters every worker must apply to its tiles.
type ImageInfo struct {
	ID            int              `json:"id"`
	InputPath     string           `json:"input_path"`
	OutputPath    string           `json:"output_path"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	ExpectedTiles int              `json:"expected_tiles"`
	Params        bilateral.Params `json:"params"`
	StartTime     time.Time        `json:"start_time"`
}

// JobMessage is a unit of work in the job queue.
type JobMessage struct {
	Type      string     `json:"type"` // "tile", "complete"
	ImageTile *ImageTile `json:"image_tile,omitempty"`
}

// ResultMessage is a processed tile in the result queue.
type ResultMessage struct {
	ProcessedTile *ProcessedImageTile `json:"processed_tile"`
	WorkerID      string              `json:"worker_id"`
	ProcessTime   float64             `json:"process_time"`
}

// TimingData records overall pipeline timing for the final report. Workers
// tells the assembler how many completion signals to queue when all images
// have finished their final repetition.
type TimingData struct {
	StartTime       time.Time          `json:"start_time"`
	EndTime         *time.Time         `json:"end_time,omitempty"`
	Params          bilateral.Params   `json:"params"`
	Workers         int                `json:"workers"`
	TotalImages     int                `json:"total_images"`
	InputPaths      []string           `json:"input_paths"`
	OutputPaths     []string           `json:"output_paths"`
	ImageStartTimes map[int]time.Time  `json:"image_start_times"`
	ImageEndTimes   map[int]*time.Time `json:"image_end_times"`
}
