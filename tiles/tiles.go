// Package tiles reorders the n×n tile grid of a scrambled page image.
package tiles

import (
	"image"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// KeySeparator separates tile indexes in a descrambling key.
const KeySeparator = "a"

// ParseKey splits key into gridSize² tile indexes. Missing, empty,
// non-numeric and out-of-range entries become 0.
func ParseKey(key string, gridSize int) []int {
	if gridSize < 1 {
		return nil
	}
	count := gridSize * gridSize
	parts := strings.Split(key, KeySeparator)
	slots := make([]int, count)
	for i := 0; i < count && i < len(parts); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 || n >= count {
			continue
		}
		slots[i] = n
	}
	return slots
}

// FormatKey is the inverse of ParseKey for in-range slots.
func FormatKey(slots []int) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, KeySeparator)
}

type grid struct {
	n            int
	tileW, tileH int
	bounds       image.Rectangle
}

func newGrid(b image.Rectangle, n int) grid {
	return grid{n: n, tileW: b.Dx() / n, tileH: b.Dy() / n, bounds: b}
}

// tile returns the rectangle of tile idx relative to the image origin,
// clamped to the image.
func (g grid) tile(idx int) image.Rectangle {
	x := (idx % g.n) * g.tileW
	y := (idx / g.n) * g.tileH
	w := min(g.tileW, g.bounds.Dx()-x)
	h := min(g.tileH, g.bounds.Dy()-y)
	return image.Rect(x, y, x+w, y+h)
}

// Reassemble returns a new image in which destination tile i holds source
// tile key[i]. Tiles are width/n × height/n; the right and bottom remainder
// strips that do not fill a tile are copied unchanged. A gridSize below 1
// yields an unchanged copy. src is never modified.
func Reassemble(src image.Image, key string, gridSize int) *image.RGBA {
	return permute(src, ParseKey(key, gridSize), gridSize, false)
}

// Scramble is the inverse of Reassemble for keys that are permutations:
// source tile i is moved to destination tile key[i].
func Scramble(src image.Image, key string, gridSize int) *image.RGBA {
	return permute(src, ParseKey(key, gridSize), gridSize, true)
}

func permute(src image.Image, slots []int, n int, forward bool) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	if n < 1 {
		return dst
	}

	g := newGrid(b, n)
	if g.tileW == 0 || g.tileH == 0 {
		return dst
	}
	for idx, slot := range slots {
		from, to := slot, idx
		if forward {
			from, to = idx, slot
		}
		sr := g.tile(from)
		dr := g.tile(to)
		// clamp the copy to the destination tile as well
		dr.Max.X = dr.Min.X + min(dr.Dx(), sr.Dx())
		dr.Max.Y = dr.Min.Y + min(dr.Dy(), sr.Dy())
		draw.Draw(dst, dr, src, sr.Min.Add(b.Min), draw.Src)
	}
	return dst
}
