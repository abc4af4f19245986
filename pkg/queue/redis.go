// Package queue implements the Redis-backed job and result queues of the
// distributed filtering pipeline. Payloads are JSON compressed with zstd;
// raw tile data dominates message size otherwise.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"go-bilateral/pkg/common"
)

const (
	JobQueueKey    = "imfilter:job:queue"
	ResultQueueKey = "imfilter:result:queue"
	ImageInfoKey   = "imfilter:image:info:%d"
	ProgressKey    = "imfilter:image:progress:%d:%d" // imageID, rep
	TimingDataKey  = "imfilter:timing:data"
)

// Shared codecs; EncodeAll/DecodeAll on a nil-stream codec are safe for
// concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodePayload renders a message as zstd-compressed JSON.
func encodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(data, nil), nil
}

// decodePayload reverses encodePayload.
func decodePayload(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("failed to decompress payload: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// RedisQueue is a client for the pipeline's queues and metadata keys.
type RedisQueue struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisQueue connects to the Redis server at addr and verifies the
// connection with a ping.
func NewRedisQueue(addr string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{
		client: client,
		ctx:    ctx,
	}, nil
}

// PushJob adds a job to the queue.
func (q *RedisQueue) PushJob(job *common.JobMessage) error {
	data, err := encodePayload(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.LPush(q.ctx, JobQueueKey, data).Err()
}

// PopJob retrieves and removes a job from the queue, blocking up to timeout.
// A nil job with nil error means the wait timed out.
func (q *RedisQueue) PopJob(timeout time.Duration) (*common.JobMessage, error) {
	result, err := q.client.BRPop(q.ctx, timeout, JobQueueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected result format")
	}

	var job common.JobMessage
	if err := decodePayload([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// PushResult adds a processed tile to the result queue.
func (q *RedisQueue) PushResult(result *common.ResultMessage) error {
	data, err := encodePayload(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return q.client.LPush(q.ctx, ResultQueueKey, data).Err()
}

// PopResult retrieves a processed tile, blocking up to timeout. A nil result
// with nil error means the wait timed out.
func (q *RedisQueue) PopResult(timeout time.Duration) (*common.ResultMessage, error) {
	result, err := q.client.BRPop(q.ctx, timeout, ResultQueueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop result: %w", err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected result format")
	}

	var msg common.ResultMessage
	if err := decodePayload([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &msg, nil
}

// StoreImageInfo stores metadata about an image.
func (q *RedisQueue) StoreImageInfo(info *common.ImageInfo) error {
	key := fmt.Sprintf(ImageInfoKey, info.ID)
	data, err := encodePayload(info)
	if err != nil {
		return fmt.Errorf("failed to marshal image info: %w", err)
	}
	return q.client.Set(q.ctx, key, data, 24*time.Hour).Err()
}

// GetImageInfo retrieves metadata about an image.
func (q *RedisQueue) GetImageInfo(imageID int) (*common.ImageInfo, error) {
	key := fmt.Sprintf(ImageInfoKey, imageID)
	data, err := q.client.Get(q.ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to get image info: %w", err)
	}

	var info common.ImageInfo
	if err := decodePayload(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image info: %w", err)
	}
	return &info, nil
}

// IncrementProgress increments the completed-tile counter for one repetition
// of an image and returns the new count.
func (q *RedisQueue) IncrementProgress(imageID, rep int) (int64, error) {
	key := fmt.Sprintf(ProgressKey, imageID, rep)
	return q.client.Incr(q.ctx, key).Result()
}

// GetProgress returns the completed-tile count for one repetition.
func (q *RedisQueue) GetProgress(imageID, rep int) (int64, error) {
	key := fmt.Sprintf(ProgressKey, imageID, rep)
	result, err := q.client.Get(q.ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return result, nil
}

// StoreTiming stores the pipeline timing data.
func (q *RedisQueue) StoreTiming(timing *common.TimingData) error {
	data, err := encodePayload(timing)
	if err != nil {
		return fmt.Errorf("failed to marshal timing data: %w", err)
	}
	return q.client.Set(q.ctx, TimingDataKey, data, 24*time.Hour).Err()
}

// GetTiming retrieves the pipeline timing data, or nil if none exists yet.
func (q *RedisQueue) GetTiming() (*common.TimingData, error) {
	data, err := q.client.Get(q.ctx, TimingDataKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get timing data: %w", err)
	}

	var timing common.TimingData
	if err := decodePayload(data, &timing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timing data: %w", err)
	}
	return &timing, nil
}

// UpdateImageEndTime records when an image finished its final repetition.
func (q *RedisQueue) UpdateImageEndTime(imageID int, endTime time.Time) error {
	timing, err := q.GetTiming()
	if err != nil {
		return err
	}
	if timing == nil {
		return fmt.Errorf("no timing data found")
	}

	if timing.ImageEndTimes == nil {
		timing.ImageEndTimes = make(map[int]*time.Time)
	}
	timing.ImageEndTimes[imageID] = &endTime

	return q.StoreTiming(timing)
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
