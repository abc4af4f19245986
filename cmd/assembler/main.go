// Command assembler collects filtered tiles from the result queue and
// reconstructs output images. It also drives repetition chaining: when a
// non-final repetition finishes assembling, it snapshots the image and
// re-partitions it as jobs for the next repetition, which gives the
// pipeline its barrier between passes.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"
	"time"

	"go-bilateral/pkg/bilateral"
	"go-bilateral/pkg/common"
	"go-bilateral/pkg/imageio"
	"go-bilateral/pkg/queue"
	"go-bilateral/pkg/stats"
)

// imageAssembly tracks one image's progress through its current repetition.
type imageAssembly struct {
	info          *common.ImageInfo
	rep           int
	tilesReceived int
	outputImage   *image.RGBA
}

func main() {
	var (
		redisAddr = flag.String("redis", "redis:6379", "Redis server address")
		timeout   = flag.Duration("timeout", 30*time.Second, "Result poll timeout")
		logDir    = flag.String("log", "results", "Directory for the timing report")
	)
	flag.Parse()

	log.Printf("Assembler starting...")
	log.Printf("Redis address: %s", *redisAddr)

	redisQueue, err := queue.NewRedisQueue(*redisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisQueue.Close()

	assemblies := make(map[int]*imageAssembly)
	completedImages := 0

	for {
		result, err := redisQueue.PopResult(*timeout)
		if err != nil {
			log.Printf("Error popping result: %v", err)
			continue
		}
		if result == nil {
			for imageID, asm := range assemblies {
				progress, _ := redisQueue.GetProgress(imageID, asm.rep)
				log.Printf("Image %d rep %d: %d/%d tiles", imageID+1, asm.rep, progress, asm.info.ExpectedTiles)
			}
			continue
		}

		tile := result.ProcessedTile

		asm, exists := assemblies[tile.ImageID]
		if !exists {
			info, err := redisQueue.GetImageInfo(tile.ImageID)
			if err != nil {
				log.Printf("Failed to get image info for ID %d: %v", tile.ImageID, err)
				continue
			}
			asm = &imageAssembly{
				info:        info,
				rep:         tile.Rep,
				outputImage: image.NewRGBA(image.Rect(0, 0, info.Width, info.Height)),
			}
			assemblies[tile.ImageID] = asm
			log.Printf("Created assembly for image %d (%s)", tile.ImageID+1, info.InputPath)
		}

		if tile.Rep != asm.rep {
			// Repetitions are barrier-separated, so a mismatched rep means
			// a stale or duplicate result.
			log.Printf("Image %d: dropping tile %d from rep %d (assembling rep %d)",
				tile.ImageID+1, tile.TileID, tile.Rep, asm.rep)
			continue
		}

		common.PlaceTile(asm.outputImage, tile)
		asm.tilesReceived++

		log.Printf("Image %d rep %d: Received tile %d (worker: %s, %.3fs) - Progress: %d/%d",
			tile.ImageID+1, tile.Rep, tile.TileID, result.WorkerID, result.ProcessTime,
			asm.tilesReceived, asm.info.ExpectedTiles)

		if asm.tilesReceived < asm.info.ExpectedTiles {
			continue
		}

		// Repetition complete.
		if asm.rep < asm.info.Params.Reps-1 {
			if err := advanceRepetition(redisQueue, asm); err != nil {
				log.Printf("Image %d: failed to start repetition %d: %v", tile.ImageID+1, asm.rep+1, err)
			}
			continue
		}

		// Final repetition: save and retire the image.
		log.Printf("Image %d complete! Saving...", tile.ImageID+1)
		if err := imageio.Save(asm.outputImage, asm.info.OutputPath); err != nil {
			log.Printf("Failed to save image %d: %v", tile.ImageID+1, err)
		} else {
			processingTime := time.Since(asm.info.StartTime)
			log.Printf("Saved image %d to %s (Total time: %.2fs)",
				tile.ImageID+1, asm.info.OutputPath, processingTime.Seconds())
			completedImages++

			if err := redisQueue.UpdateImageEndTime(tile.ImageID, time.Now()); err != nil {
				log.Printf("Failed to update end time for image %d: %v", tile.ImageID+1, err)
			}
		}
		delete(assemblies, tile.ImageID)

		if done, timing := allImagesDone(redisQueue, completedImages); done {
			signalWorkers(redisQueue, timing)
			outputFinalStats(timing, *logDir)
			break
		}
	}

	log.Printf("Assembler shutting down. Completed %d images.", completedImages)
}

// advanceRepetition snapshots the assembled repetition and queues the next
// one. The snapshot uses the same encoder as the final output and is named
// by the zero-based repetition index.
func advanceRepetition(redisQueue *queue.RedisQueue, asm *imageAssembly) error {
	base := strings.TrimSuffix(filepath.Base(asm.info.OutputPath), filepath.Ext(asm.info.OutputPath))
	snapPath := filepath.Join(filepath.Dir(asm.info.OutputPath), fmt.Sprintf("%s_rep%d.png", base, asm.rep))
	if err := imageio.Save(asm.outputImage, snapPath); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	log.Printf("Image %d: repetition %d snapshot saved to %s", asm.info.ID+1, asm.rep, snapPath)

	nextRep := asm.rep + 1
	padding := bilateral.SupportRadius(asm.info.Params.SpatialSigma)
	tiles := common.Partition(asm.outputImage, asm.info.ID, nextRep, padding)
	for _, t := range tiles {
		if err := redisQueue.PushJob(&common.JobMessage{Type: "tile", ImageTile: t}); err != nil {
			return fmt.Errorf("failed to push tile job: %w", err)
		}
	}

	asm.rep = nextRep
	asm.tilesReceived = 0
	asm.outputImage = image.NewRGBA(image.Rect(0, 0, asm.info.Width, asm.info.Height))
	log.Printf("Image %d: queued %d tiles for repetition %d", asm.info.ID+1, len(tiles), nextRep)
	return nil
}

func allImagesDone(redisQueue *queue.RedisQueue, completedImages int) (bool, *common.TimingData) {
	timing, err := redisQueue.GetTiming()
	if err != nil || timing == nil {
		return false, nil
	}
	return completedImages >= timing.TotalImages, timing
}

// signalWorkers queues one completion message per worker so they drain and
// exit once the last image is assembled.
func signalWorkers(redisQueue *queue.RedisQueue, timing *common.TimingData) {
	for i := 0; i < timing.Workers; i++ {
		if err := redisQueue.PushJob(&common.JobMessage{Type: "complete"}); err != nil {
			log.Printf("Failed to push completion signal: %v", err)
		}
	}
}

func outputFinalStats(timing *common.TimingData, logDir string) {
	var finalEndTime time.Time
	for _, endTime := range timing.ImageEndTimes {
		if endTime != nil && endTime.After(finalEndTime) {
			finalEndTime = *endTime
		}
	}
	totalMillis := finalEndTime.Sub(timing.StartTime).Milliseconds()

	log.Printf("=== Distributed Filtering Complete ===")
	log.Printf("Start time: %s", timing.StartTime.Format("2006-01-02 15:04:05"))
	log.Printf("End time: %s", finalEndTime.Format("2006-01-02 15:04:05"))
	log.Printf("Total time: %dms", totalMillis)
	log.Printf("Images processed: %d", timing.TotalImages)

	for imageID, startTime := range timing.ImageStartTimes {
		if endTime, exists := timing.ImageEndTimes[imageID]; exists && endTime != nil {
			log.Printf("Image %d time: %.2fs", imageID+1, endTime.Sub(startTime).Seconds())
		}
	}

	tileSize := common.TileSize
	report := stats.RunReport{
		AlgorithmName:   "Distributed Queue",
		ImagesProcessed: timing.TotalImages,
		SpatialSigma:    timing.Params.SpatialSigma,
		RangeSigma:      timing.Params.RangeSigma,
		Reps:            timing.Params.Reps,
		FilterMillis:    totalMillis,
		TotalMillis:     totalMillis,
		InputPaths:      timing.InputPaths,
		OutputPaths:     timing.OutputPaths,
		Timestamp:       timing.StartTime,
		Workers:         &timing.Workers,
		TileSize:        &tileSize,
	}
	stats.MustWrite(logDir, []stats.RunReport{report})
}
