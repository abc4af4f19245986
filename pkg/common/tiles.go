package common

import (
	"image"
	"image/color"
)

// Partition cuts an image into TileSize tiles with a clamp-limited padding
// border, tagged with the given image and repetition IDs. The padding must
// cover the filter's support radius so every owned pixel sees its full
// window inside the tile.
func Partition(img *image.RGBA, imageID, rep, padding int) []*ImageTile {
	bounds := img.Bounds()
	var tiles []*ImageTile

	tileID := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += TileSize {
		for x := bounds.Min.X; x < bounds.Max.X; x += TileSize {
			tileWidth := TileSize
			if x+TileSize > bounds.Max.X {
				tileWidth = bounds.Max.X - x
			}
			tileHeight := TileSize
			if y+TileSize > bounds.Max.Y {
				tileHeight = bounds.Max.Y - y
			}

			tile := extractTileWithPadding(img, x, y, tileWidth, tileHeight, padding)
			tile.ImageID = imageID
			tile.Rep = rep
			tile.TileID = tileID
			tileID++

			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// ExpectedTiles returns how many tiles Partition produces for an image of
// the given dimensions.
func ExpectedTiles(width, height int) int {
	tilesX := (width + TileSize - 1) / TileSize
	tilesY := (height + TileSize - 1) / TileSize
	return tilesX * tilesY
}

// extractTileWithPadding copies one padded tile out of the image. The
// padding border is clamped to the image bounds, so corner and edge tiles
// carry less than the nominal padding.
func extractTileWithPadding(img *image.RGBA, tileX, tileY, tileWidth, tileHeight, padding int) *ImageTile {
	bounds := img.Bounds()

	startX := tileX - padding
	startY := tileY - padding
	endX := tileX + tileWidth + padding
	endY := tileY + tileHeight + padding

	if startX < bounds.Min.X {
		startX = bounds.Min.X
	}
	if startY < bounds.Min.Y {
		startY = bounds.Min.Y
	}
	if endX > bounds.Max.X {
		endX = bounds.Max.X
	}
	if endY > bounds.Max.Y {
		endY = bounds.Max.Y
	}

	paddedWidth := endX - startX
	paddedHeight := endY - startY
	data := make([][]color.RGBA, paddedHeight)
	for y := 0; y < paddedHeight; y++ {
		data[y] = make([]color.RGBA, paddedWidth)
		for x := 0; x < paddedWidth; x++ {
			data[y][x] = img.RGBAAt(startX+x, startY+y)
		}
	}

	return &ImageTile{
		X:       tileX,
		Y:       tileY,
		Width:   tileWidth,
		Height:  tileHeight,
		Data:    data,
		OffsetX: tileX - startX,
		OffsetY: tileY - startY,
	}
}

// PlaceTile writes a processed tile's pixels into the assembled output image.
func PlaceTile(dst *image.RGBA, tile *ProcessedImageTile) {
	for y := 0; y < tile.Height && y < len(tile.Data); y++ {
		for x := 0; x < tile.Width && x < len(tile.Data[y]); x++ {
			dst.SetRGBA(tile.X+x, tile.Y+y, tile.Data[y][x])
		}
	}
}
