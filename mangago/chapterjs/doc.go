/*
Package chapterjs recovers what a Mangago chapter script hides: the AES key
material protecting the page list, and the per-image key that undoes tile
scrambling.

# Architecture

The chapter page references a chapter.js file encoded with sojson.v4. The
package works on that file in three layers:

1. Script layer
  - Deobfuscate reverses the sojson.v4 transform (a fixed header, a run of
    decimal code points separated by letters, a fixed footer)
  - Obfuscate is its inverse and is used to build fixtures
  - ScriptCache and Loader keep deobfuscated scripts per script URL for
    DefaultScriptTTL, so a chapter's page list and every key resolution share
    one fetch

2. Key material layer
  - ExtractKeyMaterial reads the CryptoJS hex literals assigned to key and iv
    and the widthnum/heightnum tile grid size
  - FindHexVariable exposes the lookup for other variables

3. Descrambling key layer
  - KeySnippet slices the renImg function down to its key computation and
    drops every line touching the DOM or canvas
  - KeyResolver runs the snippet per image URL through an Evaluator (see
    internal/jsvm) with DefaultEvalTimeout

# Usage

	loader := &chapterjs.Loader{Cache: chapterjs.NewScriptCache(0, nil), Fetch: fetch}
	script, err := loader.Load(ctx, scriptURL)
	if err != nil {
		return err
	}
	km, err := chapterjs.ExtractKeyMaterial(script)
	if err != nil {
		return err
	}

	resolver := chapterjs.NewKeyResolver(jsvm.NewOtto(jsvm.Options{}), 0)
	if chapterjs.IsScrambledImage(url) {
		key, err := resolver.Resolve(ctx, script, url)
		...
	}

# Error Codes

Errors are *errs.Error values:

- FORMAT_MISMATCH: missing sojson.v4 header, malformed body or hex literal
- KEY_NOT_FOUND: key or iv assignment missing from the script
- KEY_RESOLUTION_FAILED: renImg markers missing, evaluator error or empty key

Format and key errors mean the site changed its scheme and are not worth
retrying. Key resolution errors concern a single image.

# Thread Safety

ScriptCache holds one mutex across lookup and compute. KeyResolver may be
shared between goroutines as long as its Evaluator can.
*/
package chapterjs
