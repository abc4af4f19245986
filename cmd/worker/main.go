// Command worker pulls padded tiles off the job queue, runs the bilateral
// filter over them, and pushes the trimmed results back.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-bilateral/pkg/bilateral"
	"go-bilateral/pkg/common"
	"go-bilateral/pkg/queue"
)

func main() {
	var (
		redisAddr = flag.String("redis", "redis:6379", "Redis server address")
		workerID  = flag.String("id", "", "Worker ID (defaults to hostname)")
		timeout   = flag.Duration("timeout", 30*time.Second, "Job poll timeout")
	)
	flag.Parse()

	if *workerID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			*workerID = fmt.Sprintf("worker-%d", time.Now().Unix())
		} else {
			*workerID = hostname
		}
	}

	log.Printf("Worker %s starting...", *workerID)
	log.Printf("Redis address: %s", *redisAddr)

	redisQueue, err := queue.NewRedisQueue(*redisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisQueue.Close()

	// Filter parameters travel with each image; cache the lookups.
	paramsByImage := make(map[int]bilateral.Params)
	tilesProcessed := 0

	for {
		job, err := redisQueue.PopJob(*timeout)
		if err != nil {
			log.Printf("Error popping job: %v", err)
			continue
		}
		if job == nil {
			log.Printf("No job available, waiting...")
			continue
		}

		if job.Type == "complete" {
			log.Printf("Received completion signal. Processed %d tiles total.", tilesProcessed)
			break
		}
		if job.Type != "tile" || job.ImageTile == nil {
			log.Printf("Invalid job type or missing tile data")
			continue
		}

		tile := job.ImageTile
		params, ok := paramsByImage[tile.ImageID]
		if !ok {
			info, err := redisQueue.GetImageInfo(tile.ImageID)
			if err != nil {
				log.Printf("Failed to get image info for ID %d: %v", tile.ImageID, err)
				continue
			}
			params = info.Params
			paramsByImage[tile.ImageID] = params
		}

		startTime := time.Now()

		filtered := bilateral.FilterTile(tile.Data, params.SpatialSigma, params.RangeSigma)
		centerData := bilateral.ExtractCenter(filtered, tile.OffsetX, tile.OffsetY, tile.Width, tile.Height)

		result := &common.ResultMessage{
			ProcessedTile: &common.ProcessedImageTile{
				ImageID: tile.ImageID,
				Rep:     tile.Rep,
				TileID:  tile.TileID,
				X:       tile.X,
				Y:       tile.Y,
				Width:   tile.Width,
				Height:  tile.Height,
				Data:    centerData,
			},
			WorkerID:    *workerID,
			ProcessTime: time.Since(startTime).Seconds(),
		}

		if err := redisQueue.PushResult(result); err != nil {
			log.Printf("Failed to push result: %v", err)
			continue
		}
		if _, err := redisQueue.IncrementProgress(tile.ImageID, tile.Rep); err != nil {
			log.Printf("Failed to update progress: %v", err)
		}

		tilesProcessed++
		if tilesProcessed%10 == 0 {
			log.Printf("Worker %s: Processed %d tiles so far...", *workerID, tilesProcessed)
		}
	}

	log.Printf("Worker %s shutting down. Processed %d tiles total.", *workerID, tilesProcessed)
}
