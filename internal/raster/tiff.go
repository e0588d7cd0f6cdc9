package raster

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/tiff"
)

// DecodeBand reads a single-band 8- or 16-bit grayscale TIFF and returns
// its samples row-major.
func DecodeBand(r io.Reader) ([]uint16, int, int, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode tiff: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	samples := make([]uint16, w*h)

	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			row := im.Pix[y*im.Stride : y*im.Stride+2*w]
			for x := 0; x < w; x++ {
				samples[y*w+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := im.Pix[y*im.Stride : y*im.Stride+w]
			for x := 0; x < w; x++ {
				samples[y*w+x] = uint16(row[x])
			}
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported tiff pixel format %T", img)
	}

	return samples, w, h, nil
}
