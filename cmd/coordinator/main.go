// Command coordinator feeds images into the distributed filtering pipeline:
// it partitions each input image into padded tiles and queues them as jobs
// for the workers.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-bilateral/pkg/bilateral"
	"go-bilateral/pkg/common"
	"go-bilateral/pkg/imageio"
	"go-bilateral/pkg/queue"
)

func main() {
	var (
		inputDir   = flag.String("input", "input", "Input directory path")
		outputDir  = flag.String("output", "output", "Output directory path")
		s          = flag.Float64("s", 2.0, "Spatial standard deviation")
		b          = flag.Float64("b", 0.2, "Brightness standard deviation")
		reps       = flag.Int("reps", 1, "Number of repetitions of the filter")
		redisAddr  = flag.String("redis", "redis:6379", "Redis server address")
		numWorkers = flag.Int("workers", 4, "Number of workers the assembler signals completion to")
	)
	flag.Parse()

	params := bilateral.Params{SpatialSigma: *s, RangeSigma: *b, Reps: *reps}
	if err := params.Validate(); err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	log.Printf("Coordinator starting...")
	log.Printf("Input path: %s", *inputDir)
	log.Printf("Output path: %s", *outputDir)
	log.Printf("Sigmas: s=%g b=%g, reps=%d", *s, *b, *reps)
	log.Printf("Redis address: %s", *redisAddr)

	redisQueue, err := queue.NewRedisQueue(*redisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisQueue.Close()

	imagePaths, err := getImagePaths(*inputDir)
	if err != nil {
		log.Fatalf("Failed to get image paths: %v", err)
	}
	if len(imagePaths) == 0 {
		log.Println("No images found to process")
		return
	}
	log.Printf("Found %d images to process", len(imagePaths))

	startTime := time.Now()
	timingData := &common.TimingData{
		StartTime:       startTime,
		Params:          params,
		Workers:         *numWorkers,
		TotalImages:     len(imagePaths),
		InputPaths:      make([]string, 0, len(imagePaths)),
		OutputPaths:     make([]string, 0, len(imagePaths)),
		ImageStartTimes: make(map[int]time.Time),
		ImageEndTimes:   make(map[int]*time.Time),
	}

	padding := bilateral.SupportRadius(*s)
	totalTiles := 0

	for imageID, imagePath := range imagePaths {
		log.Printf("Processing image %d: %s", imageID+1, imagePath)
		imageStartTime := time.Now()

		img, err := imageio.Load(imagePath)
		if err != nil {
			log.Printf("Failed to load image %s: %v", imagePath, err)
			continue
		}

		bounds := img.Bounds()
		width := bounds.Dx()
		height := bounds.Dy()

		baseName := filepath.Base(imagePath)
		nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		outputFile := filepath.Join(*outputDir, fmt.Sprintf("%s_filtered.png", nameWithoutExt))

		timingData.InputPaths = append(timingData.InputPaths, imagePath)
		timingData.OutputPaths = append(timingData.OutputPaths, outputFile)
		timingData.ImageStartTimes[imageID] = imageStartTime

		imageInfo := &common.ImageInfo{
			ID:            imageID,
			InputPath:     imagePath,
			OutputPath:    outputFile,
			Width:         width,
			Height:        height,
			ExpectedTiles: common.ExpectedTiles(width, height),
			Params:        params,
			StartTime:     imageStartTime,
		}
		if err := redisQueue.StoreImageInfo(imageInfo); err != nil {
			log.Printf("Failed to store image info: %v", err)
			continue
		}

		// Repetition 0 only; the assembler queues later repetitions once
		// the previous pass has fully assembled.
		tiles := common.Partition(img, imageID, 0, padding)
		for _, tile := range tiles {
			job := &common.JobMessage{Type: "tile", ImageTile: tile}
			if err := redisQueue.PushJob(job); err != nil {
				log.Printf("Failed to push tile job: %v", err)
			} else {
				totalTiles++
			}
		}
		log.Printf("Created %d tiles for image %d", len(tiles), imageID+1)
	}

	if err := redisQueue.StoreTiming(timingData); err != nil {
		log.Printf("Failed to store timing data: %v", err)
	}

	log.Printf("Coordinator finished. Created %d tiles across %d images", totalTiles, len(imagePaths))
	log.Printf("Coordination time: %.2fs", time.Since(startTime).Seconds())
}

func getImagePaths(inputDir string) ([]string, error) {
	files, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif":
			paths = append(paths, filepath.Join(inputDir, file.Name()))
		}
	}
	return paths, nil
}
