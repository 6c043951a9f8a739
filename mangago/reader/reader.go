// Package reader scrapes Mangago chapter reader pages: the chapter script
// reference, the encrypted imgsrcs payload and, in the mobile layout, the
// page count and batch URLs.
package reader

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytget/mangadl/errs"
	"github.com/ytget/mangadl/internal/logger"
)

const (
	scriptSelector       = "script[src*='chapter.js']"
	pageDropdownSelector = "div.controls ul#dropdown-menu-page"
	payloadMarker        = "imgsrcs"

	// BatchSize is the number of images a mobile reader page carries.
	BatchSize = 5
	// page numbers above this are chapter ids
	maxPageNumber = 1000
)

var payloadRegex = regexp.MustCompile(`var imgsrcs\s*=\s*['"]([a-zA-Z0-9+=/]+)['"]`)

// Fetcher downloads a page as text.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Reader fetches and parses chapter pages.
type Reader struct {
	fetch Fetcher
}

// New returns a Reader using f.
func New(f Fetcher) *Reader {
	return &Reader{fetch: f}
}

// Fetch downloads and parses the chapter page at pageURL.
func (r *Reader) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	html, err := r.fetch.GetText(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter page: %w", err)
	}
	doc, err := Parse(pageURL, html)
	if err != nil {
		return nil, err
	}
	logger.WithComponent(logger.ComponentReader).Debug("chapter page fetched", map[string]interface{}{"url": pageURL, "bytes": len(html)})
	return doc, nil
}

// Document is a parsed chapter page.
type Document struct {
	URL string
	doc *goquery.Document
	// base resolves relative script references
	base *url.URL
}

// Parse parses html served at pageURL.
func Parse(pageURL, html string) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse chapter page: %w", err)
	}
	return &Document{URL: pageURL, doc: doc, base: base}, nil
}

// ScriptURL returns the absolute URL of the page's chapter.js.
func (d *Document) ScriptURL() (string, error) {
	src, ok := d.doc.Find(scriptSelector).First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", errs.New(errs.CodeScriptNotFound, "no chapter.js script on page", d.URL)
	}
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", errs.Wrap(err, errs.CodeScriptNotFound, "malformed chapter.js reference", src)
	}
	return d.base.ResolveReference(ref).String(), nil
}

// HasPayload reports whether the page carries an imgsrcs script.
func (d *Document) HasPayload() bool {
	_, err := d.Payload()
	return err == nil
}

// Payload returns the Base64 imgsrcs value.
func (d *Document) Payload() (string, error) {
	var payload string
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, payloadMarker) {
			return true
		}
		if m := payloadRegex.FindStringSubmatch(text); len(m) == 2 {
			payload = m[1]
			return false
		}
		return true
	})
	if payload == "" {
		return "", errs.New(errs.CodePayloadNotFound, "no imgsrcs payload on page", d.URL)
	}
	return payload, nil
}

// MobilePageCount returns the number of pages listed by the mobile page
// dropdown, and false on desktop pages.
func (d *Document) MobilePageCount() (int, bool) {
	dropdown := d.doc.Find(pageDropdownSelector)
	if dropdown.Length() == 0 {
		return 0, false
	}
	return dropdown.Find("li").Length(), true
}

// BatchURL returns the mobile reader URL whose batch starts at page start.
// Chapter URLs end either in pg-N, in a small page number, or in the chapter
// id, in which case the page number is appended.
func BatchURL(chapterURL string, start int) string {
	clean := strings.TrimSuffix(chapterURL, "/")
	i := strings.LastIndex(clean, "/")
	if i < 0 {
		return fmt.Sprintf("%s/%d/", clean, start)
	}
	last := clean[i+1:]

	if strings.HasPrefix(last, "pg-") {
		return fmt.Sprintf("%s/pg-%d/", clean[:i], start)
	}
	if n, err := strconv.Atoi(last); err == nil && n < maxPageNumber {
		return fmt.Sprintf("%s/%d/", clean[:i], start)
	}
	return fmt.Sprintf("%s/%d/", clean, start)
}

// RewriteInsecureHost downgrades https image URLs whose host contains an
// underscore, which fails TLS hostname verification.
func RewriteInsecureHost(u string) string {
	if strings.HasPrefix(u, "https://") && strings.Contains(u, "/_") || strings.Contains(u, "https://iweb_") {
		return strings.Replace(u, "https://", "http://", 1)
	}
	return u
}
