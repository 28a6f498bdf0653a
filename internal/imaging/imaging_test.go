package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, fill(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func createTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, fill(w, h, color.RGBA{0, 0, 255, 255})))
	return buf.Bytes()
}

func TestFitSmallImageUnchanged(t *testing.T) {
	data := createTestJPEG(t, 100, 100)
	out, err := Fit(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestFitDownscalesLargeJPEG(t *testing.T) {
	out, err := Fit(createTestJPEG(t, 2000, 1000))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, MaxDimension, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}

func TestFitKeepsPNGFormat(t *testing.T) {
	out, err := Fit(createTestPNG(t, 600, 1500))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, MaxDimension, cfg.Height)
	assert.Equal(t, 409, cfg.Width)
}

func TestFitPassesThroughOtherData(t *testing.T) {
	data := []byte("%PDF-1.4 not an image")
	out, err := Fit(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestDownscaleWithinBounds(t *testing.T) {
	img := fill(10, 10, color.White)
	assert.Same(t, img, downscale(img, 100))
}

// pngHeader returns the signature and IHDR chunk of an 8-bit grayscale PNG
// with the given dimensions. That is all DecodeConfig reads.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // depth, gray, deflate, no filter, no interlace

	binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestFitRejectsHugeDimensions(t *testing.T) {
	data := pngHeader(20000, 20000)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, 20000, cfg.Width)

	out, err := Fit(data)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, out)
}

func TestFitAllowsLimitOnWideImage(t *testing.T) {
	// 40000x1000 is exactly MaxPixels.
	_, err := Fit(pngHeader(40000, 1000))
	assert.NotErrorIs(t, err, ErrTooLarge)
}
