// Package imaging shrinks oversized uploaded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height kept for uploaded images.
const MaxDimension = 1024

// MaxPixels bounds width*height of images that are decoded at all.
const MaxPixels = 40_000_000

// ErrTooLarge is returned for images whose pixel count exceeds MaxPixels.
var ErrTooLarge = errors.New("image dimensions too large")

// JPEGQuality is the compression quality for re-encoded JPEGs.
const JPEGQuality = 85

// Fit downscales JPEG and PNG images whose width or height exceeds
// MaxDimension, re-encoding them in their original format so the stored file
// still matches its extension. Anything else, including images that fail to
// decode, is returned unchanged. Images over MaxPixels are rejected with
// ErrTooLarge before decoding.
func Fit(data []byte) ([]byte, error) {
	format := ""
	switch http.DetectContentType(data) {
	case "image/jpeg":
		format = "jpeg"
	case "image/png":
		format = "png"
	default:
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	if cfg.Width <= MaxDimension && cfg.Height <= MaxDimension {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case "png":
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim, keeping
// the aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
