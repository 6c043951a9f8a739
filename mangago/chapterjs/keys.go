package chapterjs

import (
	"encoding/hex"
	"regexp"
	"strconv"

	"github.com/ytget/mangadl/errs"
	"github.com/ytget/mangadl/types"
)

const (
	keyVariable = "key"
	ivVariable  = "iv"
)

var (
	gridRegex = regexp.MustCompile(`var\s*widthnum\s*=\s*heightnum\s*=\s*(\d+);`)

	hexVarRegexes = map[string]*regexp.Regexp{
		keyVariable: hexVariableRegex(keyVariable),
		ivVariable:  hexVariableRegex(ivVariable),
	}
)

func hexVariableRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(`var ` + regexp.QuoteMeta(name) + `\s*=\s*CryptoJS\.enc\.Hex\.parse\("([0-9a-zA-Z]+)"\)`)
}

// FindHexVariable returns the literal passed to CryptoJS.enc.Hex.parse in the
// first `var <name> = ...` assignment of script.
func FindHexVariable(script, name string) (string, error) {
	re, ok := hexVarRegexes[name]
	if !ok {
		re = hexVariableRegex(name)
	}
	m := re.FindStringSubmatch(script)
	if len(m) < 2 {
		return "", errs.New(errs.CodeKeyNotFound, "could not find variable", name)
	}
	return m[1], nil
}

// ExtractKeyMaterial pulls the AES key, IV and tile grid size out of a
// deobfuscated chapter script. A missing grid declaration is not an error;
// GridSize is left at 0.
func ExtractKeyMaterial(script string) (types.KeyMaterial, error) {
	var km types.KeyMaterial

	key, err := decodeHexVariable(script, keyVariable)
	if err != nil {
		return km, err
	}
	iv, err := decodeHexVariable(script, ivVariable)
	if err != nil {
		return km, err
	}
	km.CipherKey = key
	km.IV = iv
	km.GridSize = FindGridSize(script)
	return km, nil
}

// FindGridSize returns the widthnum/heightnum value of script, or 0.
func FindGridSize(script string) int {
	m := gridRegex.FindStringSubmatch(script)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func decodeHexVariable(script, name string) ([]byte, error) {
	literal, err := FindHexVariable(script, name)
	if err != nil {
		return nil, err
	}
	if len(literal)%2 != 0 {
		return nil, errs.New(errs.CodeFormatMismatch, "hex literal must have an even length", name)
	}
	b, err := hex.DecodeString(literal)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeFormatMismatch, "malformed hex literal", name)
	}
	return b, nil
}
