// Package imageio loads raster images into RGBA buffers and saves them
// atomically, choosing the codec by file extension.
package imageio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // decode only
)

// Load decodes the image at path and converts it to RGBA.
func Load(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba, nil
}

// Save encodes img to path, picking the format from the extension
// (.png, .jpg/.jpeg, .bmp, .tiff/.tif). The write is atomic: the image is
// encoded to a temporary file in the destination directory and renamed into
// place, so a failed encode never leaves a partial output behind.
func Save(img image.Image, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := encode(tmp, img, path); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

func encode(f *os.File, img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", "":
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
	case ".bmp":
		if err := bmp.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
	case ".tiff", ".tif":
		if err := tiff.Encode(f, img, nil); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", ext)
	}
	return nil
}
