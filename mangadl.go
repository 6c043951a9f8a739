package mangadl

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ytget/mangadl/client"
	"github.com/ytget/mangadl/errs"
	"github.com/ytget/mangadl/internal/jsvm"
	"github.com/ytget/mangadl/internal/keycache"
	"github.com/ytget/mangadl/internal/logger"
	"github.com/ytget/mangadl/mangago/chapterjs"
	"github.com/ytget/mangadl/mangago/imagelist"
	"github.com/ytget/mangadl/mangago/reader"
	"github.com/ytget/mangadl/tiles"
	"github.com/ytget/mangadl/types"
)

const (
	// DefaultConcurrency is the number of keys resolved in parallel.
	DefaultConcurrency = 4
	maxConcurrency     = 8
)

// Resolver turns a chapter reader URL into an ordered list of page images,
// each carrying the key needed to unscramble it.
type Resolver struct {
	client      *client.Client
	scripts     *chapterjs.ScriptCache
	keyCache    keycache.Cache
	evaluator   chapterjs.Evaluator
	evalTimeout time.Duration
	concurrency int

	keys *chapterjs.KeyResolver
}

// New creates a Resolver with default client, caches and the otto evaluator.
func New() *Resolver {
	r := &Resolver{
		client:      client.New(),
		scripts:     chapterjs.NewScriptCache(chapterjs.DefaultScriptTTL, time.Now),
		keyCache:    keycache.NewMemoryCache(),
		evaluator:   jsvm.NewOtto(jsvm.Options{}),
		evalTimeout: chapterjs.DefaultEvalTimeout,
		concurrency: DefaultConcurrency,
	}
	r.keys = chapterjs.NewKeyResolver(r.evaluator, r.evalTimeout)
	return r
}

// WithHTTPClient sets a custom HTTP client to be used for all network calls.
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	if c != nil {
		r.client.HTTPClient = c
	}
	return r
}

// WithClient replaces the retrying client wholesale.
func (r *Resolver) WithClient(c *client.Client) *Resolver {
	if c != nil {
		r.client = c
	}
	return r
}

// WithEvaluator sets the sandbox used to compute descrambling keys.
func (r *Resolver) WithEvaluator(e chapterjs.Evaluator) *Resolver {
	if e != nil {
		r.evaluator = e
		r.keys = chapterjs.NewKeyResolver(r.evaluator, r.evalTimeout)
	}
	return r
}

// WithEvalTimeout bounds each key evaluation. Non-positive selects the default.
func (r *Resolver) WithEvalTimeout(d time.Duration) *Resolver {
	if d <= 0 {
		d = chapterjs.DefaultEvalTimeout
	}
	r.evalTimeout = d
	r.keys = chapterjs.NewKeyResolver(r.evaluator, r.evalTimeout)
	return r
}

// WithScriptCache shares a deobfuscated script cache between resolvers.
func (r *Resolver) WithScriptCache(c *chapterjs.ScriptCache) *Resolver {
	if c != nil {
		r.scripts = c
	}
	return r
}

// WithKeyCache sets where resolved keys are remembered. nil disables caching.
func (r *Resolver) WithKeyCache(c keycache.Cache) *Resolver {
	r.keyCache = c
	return r
}

// WithConcurrency sets how many keys are resolved in parallel, clamped to 1..8.
func (r *Resolver) WithConcurrency(n int) *Resolver {
	r.concurrency = min(max(n, 1), maxConcurrency)
	return r
}

// WithLogger installs l as the process-wide logger.
func (r *Resolver) WithLogger(l *logger.Logger) *Resolver {
	if l != nil {
		logger.SetGlobalLogger(l)
	}
	return r
}

// Client returns the HTTP client used for pages and scripts, so images can
// be fetched with the same settings.
func (r *Resolver) Client() *client.Client {
	return r.client
}

func (r *Resolver) log() *logger.ComponentLogger {
	return logger.WithComponent(logger.ComponentApp)
}

// ResolvePages returns the chapter's pages in reading order.
func (r *Resolver) ResolvePages(ctx context.Context, chapterURL string) ([]types.Page, error) {
	ch, err := r.ResolveChapter(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	return ch.Pages, nil
}

// ResolveChapter fetches the chapter page (or all mobile batches), decrypts
// its image list and resolves the keys of scrambled images. A page whose key
// cannot be resolved is kept with KeyErr set.
func (r *Resolver) ResolveChapter(ctx context.Context, chapterURL string) (*types.Chapter, error) {
	start := time.Now()
	rd := reader.New(r.client)
	loader := &chapterjs.Loader{Cache: r.scripts, Fetch: r.client.GetText}

	doc, err := rd.Fetch(ctx, chapterURL)
	if err != nil {
		return nil, err
	}
	first, err := r.decodeDocument(ctx, loader, doc)
	if err != nil {
		return nil, err
	}

	urls := first.urls
	if count, mobile := doc.MobilePageCount(); mobile && count > 0 {
		urls, err = r.collectBatches(ctx, rd, loader, doc, first.urls, count)
		if err != nil {
			return nil, err
		}
	}

	pages, err := r.resolveKeys(ctx, first.script, urls, first.km.GridSize)
	if err != nil {
		return nil, err
	}
	st := r.scripts.Stats()
	r.log().Info("chapter resolved", map[string]interface{}{
		"url":          chapterURL,
		"pages":        len(pages),
		"grid":         first.km.GridSize,
		"elapsed":      time.Since(start).String(),
		"script_hits":  st.Hits,
		"script_fetch": st.Misses,
	})
	return &types.Chapter{
		URL:       chapterURL,
		ScriptURL: first.scriptURL,
		GridSize:  first.km.GridSize,
		Pages:     pages,
	}, nil
}

type decoded struct {
	scriptURL string
	script    string
	km        types.KeyMaterial
	urls      []string
}

func (r *Resolver) decodeDocument(ctx context.Context, loader *chapterjs.Loader, doc *reader.Document) (decoded, error) {
	scriptURL, err := doc.ScriptURL()
	if err != nil {
		return decoded{}, err
	}
	script, err := loader.Load(ctx, scriptURL)
	if err != nil {
		return decoded{}, fmt.Errorf("load chapter script: %w", err)
	}
	payload, err := doc.Payload()
	if err != nil {
		return decoded{}, err
	}
	km, err := chapterjs.ExtractKeyMaterial(script)
	if err != nil {
		return decoded{}, err
	}
	urls, err := decryptList(script, payload, km)
	if err != nil {
		return decoded{}, err
	}
	return decoded{scriptURL: scriptURL, script: script, km: km, urls: urls}, nil
}

// collectBatches walks the mobile reader, which shows reader.BatchSize
// images per page. The first batch comes from the document already fetched.
func (r *Resolver) collectBatches(ctx context.Context, rd *reader.Reader, loader *chapterjs.Loader, doc *reader.Document, first []string, count int) ([]string, error) {
	all := append([]string(nil), first...)
	for start := 1 + reader.BatchSize; start <= count && len(all) < count; start += reader.BatchSize {
		batchURL := reader.BatchURL(doc.URL, start)
		batchDoc, err := rd.Fetch(ctx, batchURL)
		if err == nil {
			var d decoded
			d, err = r.decodeDocument(ctx, loader, batchDoc)
			if err == nil {
				if len(d.urls) == 0 {
					break
				}
				all = append(all, d.urls...)
				continue
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errs.IsFatal(err) {
			return nil, fmt.Errorf("batch at page %d: %w", start, err)
		}
		r.log().Warn("mobile batch failed, keeping earlier pages", map[string]interface{}{
			"url":   batchURL,
			"error": err.Error(),
		})
		break
	}
	if len(all) > count {
		all = all[:count]
	}
	return all, nil
}

// DecryptChapter turns a deobfuscated chapter script and its imgsrcs payload
// into the ordered image URL list. It performs no network access.
func (r *Resolver) DecryptChapter(script, payload string) ([]string, error) {
	km, err := chapterjs.ExtractKeyMaterial(script)
	if err != nil {
		return nil, err
	}
	return decryptList(script, payload, km)
}

func decryptList(script, payload string, km types.KeyMaterial) ([]string, error) {
	plain, err := imagelist.Decrypt(payload, km)
	if err != nil {
		return nil, err
	}
	urls := imagelist.SplitURLs(imagelist.Unscramble(plain, script))
	if len(urls) == 0 {
		return nil, errs.New(errs.CodeNoImages, "decrypted image list is empty")
	}
	for i, u := range urls {
		urls[i] = reader.RewriteInsecureHost(u)
	}
	return urls, nil
}

// resolveKeys builds the page list, resolving scrambled images' keys with a
// bounded pool of workers.
func (r *Resolver) resolveKeys(ctx context.Context, script string, urls []string, gridSize int) ([]types.Page, error) {
	pages := make([]types.Page, len(urls))
	var pending []int
	for i, u := range urls {
		pages[i] = types.Page{Index: i, URL: u}
		if chapterjs.IsScrambledImage(u) {
			pages[i].GridSize = gridSize
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return pages, nil
	}

	workers := min(r.concurrency, len(pending))
	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				key, err := r.resolveKey(ctx, script, pages[i].URL, gridSize)
				// each worker owns distinct indexes
				pages[i].DescramblingKey = key
				pages[i].KeyErr = err
			}
		}()
	}

feed:
	for _, i := range pending {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, i := range pending {
		if pages[i].KeyErr != nil {
			failed++
			r.log().Warn("descrambling key unresolved", map[string]interface{}{
				"page":  i + 1,
				"error": pages[i].KeyErr.Error(),
			})
		}
	}
	r.log().Debug("keys resolved", map[string]interface{}{"scrambled": len(pending), "failed": failed})
	return pages, nil
}

func (r *Resolver) resolveKey(ctx context.Context, script, imageURL string, gridSize int) (string, error) {
	if r.keyCache != nil {
		if e, ok := r.keyCache.Get(imageURL); ok && e.GridSize == gridSize {
			return e.Key, nil
		}
	}
	key, err := r.keys.Resolve(ctx, script, imageURL)
	if err != nil {
		return "", err
	}
	if r.keyCache != nil {
		entry := keycache.Entry{Key: key, GridSize: gridSize, ExpiresAt: time.Now().Add(keycache.DefaultTTL)}
		if err := r.keyCache.Set(imageURL, entry); err != nil {
			r.log().Debug("key cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return key, nil
}

// RenderPage decodes a fetched page image and, when the page carries a key
// and a grid, reassembles its tiles. It returns the image and the format it
// was decoded from.
func (r *Resolver) RenderPage(ctx context.Context, page types.Page, body io.Reader) (image.Image, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	img, format, err := tiles.Decode(body)
	if err != nil {
		return nil, "", err
	}
	if page.KeyErr != nil || !page.Scrambled() || page.GridSize < 1 {
		return img, format, nil
	}
	return tiles.Reassemble(img, page.DescramblingKey, page.GridSize), format, nil
}
