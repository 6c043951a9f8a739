package types

import (
	"strconv"
	"strings"
)

const (
	fragmentKeyParam  = "desckey="
	fragmentColsParam = "cols="
)

// KeyMaterial holds what a chapter script yields for decrypting its image list.
type KeyMaterial struct {
	CipherKey []byte
	IV        []byte
	// GridSize is the tile grid dimension, 0 when the script does not declare one.
	GridSize int
}

// HasGrid reports whether tile reassembly can be performed with this material.
func (k KeyMaterial) HasGrid() bool {
	return k.GridSize >= 1
}

// Page describes one chapter page in reading order.
type Page struct {
	Index           int
	URL             string
	DescramblingKey string
	GridSize        int
	// KeyErr is set when the page is scrambled but its key could not be resolved.
	KeyErr error
}

// Scrambled reports whether the page carries a descrambling key.
func (p Page) Scrambled() bool {
	return p.DescramblingKey != ""
}

// FragmentURL returns the image URL with the descrambling key and grid size
// appended as a fragment, so the URL alone carries everything needed to render.
func (p Page) FragmentURL() string {
	if p.DescramblingKey == "" {
		return p.URL
	}
	cols := ""
	if p.GridSize > 0 {
		cols = strconv.Itoa(p.GridSize)
	}
	return p.URL + "#" + fragmentKeyParam + p.DescramblingKey + "&" + fragmentColsParam + cols
}

// ParsePageURL is the reverse of FragmentURL. URLs without a desckey fragment
// are returned as-is in Page.URL.
func ParsePageURL(raw string) Page {
	base, fragment, ok := strings.Cut(raw, "#")
	if !ok || !strings.Contains(fragment, fragmentKeyParam) {
		return Page{URL: raw}
	}
	p := Page{URL: base}
	_, rest, _ := strings.Cut(fragment, fragmentKeyParam)
	p.DescramblingKey, _, _ = strings.Cut(rest, "&")
	if _, cols, found := strings.Cut(fragment, fragmentColsParam); found {
		if n, err := strconv.Atoi(cols); err == nil {
			p.GridSize = n
		}
	}
	return p
}

// Chapter is the resolved page list of one chapter.
type Chapter struct {
	URL       string
	ScriptURL string
	GridSize  int
	Pages     []Page
}

// URLs returns the page image URLs in reading order.
func (c *Chapter) URLs() []string {
	out := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		out = append(out, p.URL)
	}
	return out
}
