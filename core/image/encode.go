package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality matches the browser canvas default of 0.92.
const DefaultJPEGQuality = 92

// reencode decodes src, draws it onto a fresh canvas and encodes the canvas
// in the declared media type. Types without an encoder fall back to PNG.
func reencode(src []byte, mediaType string, quality int) ([]byte, error) {
	img, _, err := stdimage.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode pixels: %w", err)
	}

	b := img.Bounds()
	canvas := stdimage.NewNRGBA(stdimage.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality})
	case "image/gif":
		err = gif.Encode(&buf, canvas, &gif.Options{NumColors: 256})
	case "image/bmp", "image/x-ms-bmp":
		err = bmp.Encode(&buf, canvas)
	case "image/tiff":
		err = tiff.Encode(&buf, canvas, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(&buf, canvas)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", mediaType, err)
	}
	return buf.Bytes(), nil
}
