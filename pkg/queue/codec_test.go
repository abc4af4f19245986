package queue

import (
	"encoding/json"
	"image/color"
	"testing"
	"time"

	"go-bilateral/pkg/bilateral"
	"go-bilateral/pkg/common"
)

func sampleTile() *common.ImageTile {
	data := make([][]color.RGBA, 16)
	for y := range data {
		data[y] = make([]color.RGBA, 16)
		for x := range data[y] {
			data[y][x] = color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255}
		}
	}
	return &common.ImageTile{
		ImageID: 3,
		Rep:     1,
		TileID:  7,
		X:       256,
		Y:       512,
		Width:   16,
		Height:  16,
		Data:    data,
		OffsetX: 6,
		OffsetY: 6,
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	want := &common.JobMessage{Type: "tile", ImageTile: sampleTile()}

	encoded, err := encodePayload(want)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}

	var got common.JobMessage
	if err := decodePayload(encoded, &got); err != nil {
		t.Fatalf("decodePayload: %v", err)
	}

	if got.Type != want.Type {
		t.Errorf("Type = %q, want %q", got.Type, want.Type)
	}
	gt, wt := got.ImageTile, want.ImageTile
	if gt.ImageID != wt.ImageID || gt.Rep != wt.Rep || gt.TileID != wt.TileID ||
		gt.X != wt.X || gt.Y != wt.Y || gt.OffsetX != wt.OffsetX || gt.OffsetY != wt.OffsetY {
		t.Errorf("tile metadata mismatch: got %+v", gt)
	}
	for y := range wt.Data {
		for x := range wt.Data[y] {
			if gt.Data[y][x] != wt.Data[y][x] {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, gt.Data[y][x], wt.Data[y][x])
			}
		}
	}
}

func TestPayloadCompresses(t *testing.T) {
	// Tile pixel data is highly regular; the compressed payload should be
	// well under the raw JSON size.
	msg := &common.JobMessage{Type: "tile", ImageTile: sampleTile()}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	encoded, err := encodePayload(msg)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	if len(encoded) >= len(raw) {
		t.Errorf("compressed payload (%d bytes) not smaller than raw JSON (%d bytes)",
			len(encoded), len(raw))
	}
}

func TestPayloadRoundTripImageInfo(t *testing.T) {
	want := &common.ImageInfo{
		ID:            1,
		InputPath:     "input/img1.png",
		OutputPath:    "output/img1_filtered.png",
		Width:         640,
		Height:        480,
		ExpectedTiles: 6,
		Params:        bilateral.Params{SpatialSigma: 2, RangeSigma: 0.2, Reps: 3},
		StartTime:     time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	encoded, err := encodePayload(want)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	var got common.ImageInfo
	if err := decodePayload(encoded, &got); err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if got.Params != want.Params || got.OutputPath != want.OutputPath || !got.StartTime.Equal(want.StartTime) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	var msg common.JobMessage
	if err := decodePayload([]byte("not zstd data"), &msg); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
