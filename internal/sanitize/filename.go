package sanitize

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxFilenameLength is the maximum allowed length for the filename base.
	MaxFilenameLength = 120
	// DefaultExt is the default extension used when none is provided.
	DefaultExt = "jpg"
	// DefaultName is the replacement name when the title is empty.
	DefaultName = "chapter"
	// minPageDigits keeps page files sortable for short chapters too.
	minPageDigits = 3
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)

// ToSafeFilename builds a cross-platform safe filename from title and extension (without dot in ext).
func ToSafeFilename(title, ext string) string {
	name := safeName(title)
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Clean(name + "." + ext)
}

// ToSafeDirname is ToSafeFilename without an extension, for chapter directories.
func ToSafeDirname(title string) string {
	return filepath.Clean(safeName(title))
}

// PageFilename names page index (0-based) of total as a zero-padded,
// lexically sortable file, e.g. "007.jpg".
func PageFilename(index, total int, ext string) string {
	width := len(strconv.Itoa(total))
	if width < minPageDigits {
		width = minPageDigits
	}
	return ToSafeFilename(fmt.Sprintf("%0*d", width, index+1), ext)
}

func safeName(title string) string {
	name := strings.TrimSpace(title)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		name = DefaultName
	}
	if len(name) > MaxFilenameLength {
		name = name[:MaxFilenameLength]
	}
	return name
}
