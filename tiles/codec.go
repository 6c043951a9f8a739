package tiles

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	// webp pages are decoded but re-encoded as png
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used by Encode when quality is not positive.
const DefaultJPEGQuality = 92

// Decode reads an image in any registered format (jpeg, png, gif, webp)
// and reports the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("tiles: decode image: %w", err)
	}
	return img, format, nil
}

// EncodeFormat returns the format Encode writes for a decoded format name.
func EncodeFormat(format string) string {
	switch format {
	case "jpeg", "png", "gif":
		return format
	default:
		return "png"
	}
}

// Encode writes img in format, falling back to png for formats without an
// encoder. It returns the format actually written.
func Encode(w io.Writer, img image.Image, format string, quality int) (string, error) {
	format = EncodeFormat(format)
	var err error
	switch format {
	case "jpeg":
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "gif":
		err = gif.Encode(w, img, nil)
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return "", fmt.Errorf("tiles: encode %s: %w", format, err)
	}
	return format, nil
}
