package chapterjs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/ytget/mangadl/errs"
)

const (
	renImgMarker   = "var renImg = function(img,width,height,id){"
	keySplitMarker = "key = key.split("
	imgSrcRef      = "img.src"

	// ScrambledImageMarker appears in the URL of every tile-scrambled image.
	ScrambledImageMarker = "cspiclink"

	// EntryFunction is the function the synthesized snippet declares.
	EntryFunction = "getDescramblingKey"

	// DefaultEvalTimeout bounds one evaluation of the key snippet.
	DefaultEvalTimeout = 10 * time.Second

	// maxSnippets caps the memo; it is reset when full.
	maxSnippets = 64

	replacePosFunc = `function replacePos(strObj, pos, replacetext) {
    var str = strObj.substr(0, pos) + replacetext + strObj.substring(pos + 1, strObj.length);
    return str;
}
`
)

// browser-only APIs that cannot run outside a page
var domDenyList = []string{"jQuery", "document", "getContext", "toDataURL", "getImageData", "width", "height"}

// Evaluator runs snippet and returns EntryFunction(arg) as a string.
type Evaluator interface {
	Evaluate(ctx context.Context, snippet, arg string) (string, error)
}

// IsScrambledImage reports whether url points at a tile-scrambled image.
func IsScrambledImage(url string) bool {
	return strings.Contains(url, ScrambledImageMarker)
}

// KeySnippet isolates the key computation of the renImg function and wraps it
// into a standalone getDescramblingKey(url) function.
func KeySnippet(script string) (string, error) {
	_, after, ok := strings.Cut(script, renImgMarker)
	if !ok {
		return "", errs.New(errs.CodeKeyResolutionFailed, "renImg function not found in chapter script")
	}
	body, _, ok := strings.Cut(after, keySplitMarker)
	if !ok {
		return "", errs.New(errs.CodeKeyResolutionFailed, "key split call not found in chapter script")
	}

	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !containsAny(line, domDenyList) {
			kept = append(kept, line)
		}
	}
	code := strings.ReplaceAll(strings.Join(kept, "\n"), imgSrcRef, "url")
	if strings.TrimSpace(code) == "" {
		return "", errs.New(errs.CodeKeyResolutionFailed, "empty key computation in chapter script")
	}

	return replacePosFunc + "function " + EntryFunction + "(url) { " + code + "; return key; }\n", nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// KeyResolver computes per-image descrambling keys through an Evaluator.
// Snippets are memoized per script so a chapter is sliced once.
type KeyResolver struct {
	eval    Evaluator
	timeout time.Duration

	mu       sync.Mutex
	snippets map[string]string
}

// NewKeyResolver returns a resolver using eval. A non-positive timeout
// selects DefaultEvalTimeout.
func NewKeyResolver(eval Evaluator, timeout time.Duration) *KeyResolver {
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}
	return &KeyResolver{
		eval:     eval,
		timeout:  timeout,
		snippets: make(map[string]string),
	}
}

// Resolve returns the descrambling key of imageURL.
func (r *KeyResolver) Resolve(ctx context.Context, script, imageURL string) (string, error) {
	snippet, err := r.snippet(script)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key, err := r.eval.Evaluate(ctx, snippet, imageURL)
	if err != nil {
		return "", errs.Wrap(err, errs.CodeKeyResolutionFailed, "evaluating key snippet", imageURL)
	}
	if key == "" {
		return "", errs.New(errs.CodeKeyResolutionFailed, "evaluator returned an empty key", imageURL)
	}
	return key, nil
}

func (r *KeyResolver) snippet(script string) (string, error) {
	h := sha1.Sum([]byte(script))
	id := hex.EncodeToString(h[:])

	r.mu.Lock()
	s, ok := r.snippets[id]
	r.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := KeySnippet(script)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	if len(r.snippets) >= maxSnippets {
		clear(r.snippets)
	}
	r.snippets[id] = s
	r.mu.Unlock()
	return s, nil
}
