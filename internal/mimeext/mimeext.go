package mimeext

import (
	"net/http"
	"path"
	"strings"
)

const (
	// DefaultExt is the extension used when MIME is unknown or empty.
	DefaultExt = "jpg"

	// ExtJPEG is the file extension for JPEG pages.
	ExtJPEG = "jpg"
	// ExtPNG is the file extension for PNG pages.
	ExtPNG = "png"
	// ExtWebP is the file extension for WebP pages.
	ExtWebP = "webp"
	// ExtGIF is the file extension for GIF pages.
	ExtGIF = "gif"

	// MimeImageJPEG is the MIME type for JPEG images.
	MimeImageJPEG = "image/jpeg"
	// MimeImagePNG is the MIME type for PNG images.
	MimeImagePNG = "image/png"
	// MimeImageWebP is the MIME type for WebP images.
	MimeImageWebP = "image/webp"
	// MimeImageGIF is the MIME type for GIF images.
	MimeImageGIF = "image/gif"
)

// ExtFromMime returns file extension (without dot) for given mime type.
// Falls back to subtype or jpg if unknown.
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return DefaultExt
	}
	base := mime
	if i := strings.Index(mime, ";"); i >= 0 {
		base = strings.TrimSpace(mime[:i])
	}
	switch base {
	case MimeImageJPEG, "image/jpg", "image/pjpeg":
		return ExtJPEG
	case MimeImagePNG:
		return ExtPNG
	case MimeImageWebP:
		return ExtWebP
	case MimeImageGIF:
		return ExtGIF
	case "application/octet-stream", "text/plain":
		return DefaultExt
	}
	// Try subtype
	parts := strings.Split(base, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return DefaultExt
}

// ExtFromFormat maps an image.Decode format name to an extension.
func ExtFromFormat(format string) string {
	switch format {
	case "jpeg":
		return ExtJPEG
	case "":
		return DefaultExt
	default:
		return format
	}
}

// Sniff guesses the extension from the first bytes of data, falling back to
// the extension in imageURL's path.
func Sniff(data []byte, imageURL string) string {
	if mime := http.DetectContentType(data); strings.HasPrefix(mime, "image/") {
		return ExtFromMime(mime)
	}
	return extFromURL(imageURL)
}

func extFromURL(imageURL string) string {
	if i := strings.IndexAny(imageURL, "?#"); i >= 0 {
		imageURL = imageURL[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(imageURL)), ".")
	switch ext {
	case "jpeg", "jpg":
		return ExtJPEG
	case ExtPNG, ExtWebP, ExtGIF:
		return ext
	}
	return DefaultExt
}
