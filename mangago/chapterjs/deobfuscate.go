package chapterjs

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/ytget/mangadl/errs"
)

const (
	// SojsonMarker opens every script produced by the sojson.v4 encoder.
	SojsonMarker = "['sojson.v4']"

	sojsonPrefixLen = 240
	sojsonSuffixLen = 59

	sojsonHead = `["filter"]["constructor"](((['sojson.v4']+[])["constructor"]['fromCharCode']['apply'](null,"`
	sojsonTail = `"['split'](/[a-zA-Z]{1,}/))))('sojson.v4');`
)

var (
	letterRunRegex = regexp.MustCompile(`[a-zA-Z]+`)
	// separators cycled between code points by Obfuscate
	sojsonSeparators = []string{"a", "Xq", "ZZk", "b", "tUw", "R"}
)

// Deobfuscate reverses the sojson.v4 transform and returns the script text.
func Deobfuscate(source string) (string, error) {
	if !strings.HasPrefix(source, SojsonMarker) {
		return "", errs.New(errs.CodeFormatMismatch, "obfuscated script header mismatch, expected sojson.v4")
	}
	if len(source) < sojsonPrefixLen+sojsonSuffixLen {
		return "", errs.New(errs.CodeFormatMismatch, "obfuscated script too short", len(source))
	}
	body := source[sojsonPrefixLen : len(source)-sojsonSuffixLen]
	if body == "" {
		return "", nil
	}

	// fromCharCode takes UTF-16 code units, so surrogate pairs span two tokens.
	tokens := letterRunRegex.Split(body, -1)
	units := make([]uint16, 0, len(tokens))
	for i, token := range tokens {
		code, err := strconv.ParseUint(token, 10, 64)
		if err != nil {
			return "", errs.Wrap(err, errs.CodeFormatMismatch, "non-numeric token in sojson.v4 body", i)
		}
		if code > 0xFFFF {
			return "", errs.New(errs.CodeFormatMismatch, "char code out of range in sojson.v4 body", code)
		}
		units = append(units, uint16(code))
	}
	return string(utf16.Decode(units)), nil
}

// Obfuscate encodes script the way the sojson.v4 encoder lays it out, so that
// Deobfuscate(Obfuscate(s)) == s. It exists for fixtures and offline checks.
func Obfuscate(script string) string {
	var sb strings.Builder
	sb.WriteString(SojsonMarker)
	sb.WriteString(strings.Repeat(" ", sojsonPrefixLen-len(SojsonMarker)-len(sojsonHead)))
	sb.WriteString(sojsonHead)
	for i, u := range utf16.Encode([]rune(script)) {
		if i > 0 {
			sb.WriteString(sojsonSeparators[i%len(sojsonSeparators)])
		}
		sb.WriteString(strconv.Itoa(int(u)))
	}
	sb.WriteString(sojsonTail)
	sb.WriteString(strings.Repeat(" ", sojsonSuffixLen-len(sojsonTail)))
	return sb.String()
}
