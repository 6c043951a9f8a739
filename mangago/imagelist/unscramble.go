package imagelist

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var keyPositionRegex = regexp.MustCompile(`str\.charAt\(\s*(\d+)\s*\)`)

// KeyPositions returns the distinct str.charAt(N) arguments of script in
// ascending order. Arguments too large for an int sort last.
func KeyPositions(script string) []int {
	seen := make(map[int]struct{})
	var positions []int
	for _, m := range keyPositionRegex.FindAllStringSubmatch(script, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = math.MaxInt
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		positions = append(positions, n)
	}
	sort.Ints(positions)
	return positions
}

// Unscramble reverses the character permutation applied to a decrypted list.
// The permutation key is stored as digits at the positions named by the
// script's str.charAt calls. When there are no such positions, or any of them
// is past the end or not a digit, the list is taken as already plain and
// returned unchanged.
func Unscramble(decrypted, script string) string {
	positions := KeyPositions(script)
	if len(positions) == 0 {
		return decrypted
	}

	s := []rune(decrypted)
	keys := make([]int, len(positions))
	for i, p := range positions {
		if p >= len(s) {
			return decrypted
		}
		c := s[p]
		if c < '0' || c > '9' {
			return decrypted
		}
		keys[i] = int(c - '0')
	}

	// each removal shifts later positions left by one
	for i, p := range positions {
		at := p - i
		s = append(s[:at], s[at+1:]...)
	}

	for j := len(keys) - 1; j >= 0; j-- {
		k := keys[j]
		for i := len(s) - 1; i >= k; i-- {
			if i%2 != 0 && i-k >= 0 {
				s[i], s[i-k] = s[i-k], s[i]
			}
		}
	}
	return string(s)
}

// Scramble applies the permutation that Unscramble reverses: the swaps run
// forward for each key, then each key digit is inserted at its position.
// positions must be ascending and distinct, one per key, and keys single digits.
func Scramble(list string, keys, positions []int) (string, error) {
	if len(keys) != len(positions) {
		return "", fmt.Errorf("imagelist: %d keys for %d positions", len(keys), len(positions))
	}
	for i, k := range keys {
		if k < 0 || k > 9 {
			return "", fmt.Errorf("imagelist: key %d is not a single digit", k)
		}
		if i > 0 && positions[i] <= positions[i-1] {
			return "", fmt.Errorf("imagelist: positions must be strictly ascending")
		}
	}

	s := []rune(list)
	for _, k := range keys {
		for i := k; i < len(s); i++ {
			if i%2 != 0 && i-k >= 0 {
				s[i], s[i-k] = s[i-k], s[i]
			}
		}
	}

	for i, p := range positions {
		if p < 0 || p > len(s) {
			return "", fmt.Errorf("imagelist: position %d out of range", p)
		}
		s = append(s, 0)
		copy(s[p+1:], s[p:])
		s[p] = rune('0' + keys[i])
	}
	return string(s), nil
}

// SplitURLs splits a comma-separated list, trimming whitespace and dropping
// empty segments.
func SplitURLs(list string) []string {
	parts := strings.Split(list, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
