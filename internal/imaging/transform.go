// Package imaging holds the on-device image transforms: preparing an input
// photo for inline upload and re-encoding results to the fixed sticker size.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// UploadTargetSize bounds the prepared photo so its data URI stays
	// comfortably inline-transmittable.
	UploadTargetSize = 1024
	uploadQuality    = 85
	// MaxInlineBytes is the ceiling Replicate documents for inline data URIs.
	MaxInlineBytes = 1 << 20
	// StickerSize is the fixed square size required by sticker surfaces.
	StickerSize = 512
)

// PrepareForUpload center-crops the photo to a square and scales it down so
// the encoded JPEG stays under the inline ceiling. Callers map a decode
// failure to the unmodified input; unreadable photos must not block
// generation.
func PrepareForUpload(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode photo: %w", err)
	}
	src := centerSquare(img.Bounds())
	for _, target := range []int{UploadTargetSize, 768, StickerSize} {
		encoded, err := encodeJPEG(img, src, target)
		if err != nil {
			return nil, err
		}
		if base64.StdEncoding.EncodedLen(len(encoded)) <= MaxInlineBytes {
			return encoded, nil
		}
	}
	// Smallest step still over the ceiling; let the provider reject it
	// rather than degrading quality further.
	return encodeJPEG(img, src, StickerSize)
}

// RenderSticker re-encodes any decodable image to an exact 512x512 PNG.
func RenderSticker(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode sticker source: %w", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, StickerSize, StickerSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("imaging: encode sticker: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI wraps image bytes as an embedded-data reference, sniffing the
// media type from the content.
func DataURI(data []byte) string {
	mime := http.DetectContentType(data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	size := w
	if h < size {
		size = h
	}
	x0 := b.Min.X + (w-size)/2
	y0 := b.Min.Y + (h-size)/2
	return image.Rect(x0, y0, x0+size, y0+size)
}

func encodeJPEG(img image.Image, src image.Rectangle, target int) ([]byte, error) {
	if src.Dx() < target {
		target = src.Dx()
	}
	dst := image.NewRGBA(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: uploadQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
