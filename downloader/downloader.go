// Package downloader fetches chapter page images, descrambles the ones that
// carry a tile key and writes them to disk in reading order.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ytget/mangadl/internal/logger"
	"github.com/ytget/mangadl/internal/mimeext"
	"github.com/ytget/mangadl/internal/sanitize"
	"github.com/ytget/mangadl/tiles"
	"github.com/ytget/mangadl/types"
)

const (
	temporaryFileSuffix = ".tmp" // suffix for a page being written
	defaultConcurrency  = 4
	maxConcurrency      = 8
	dirPerm             = 0o755
	filePerm            = 0o644
)

// Fetcher downloads an image body.
type Fetcher interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Progress reports a finished page.
type Progress struct {
	TotalPages int
	DonePages  int
	Bytes      int64
	Percent    float64
	Page       types.Page
	Path       string
	Err        error
}

// Downloader saves chapter pages with a bounded number of parallel fetches
// and optional rate limiting.
type Downloader struct {
	Client       Fetcher
	ProgressFunc func(Progress)

	concurrency  int
	jpegQuality  int
	rateLimitBps int64
}

// New creates a new downloader. rateLimitBps=0 disables limiting.
func New(client Fetcher, progressFunc func(Progress), rateLimitBps int64) *Downloader {
	return &Downloader{
		Client:       client,
		ProgressFunc: progressFunc,
		concurrency:  defaultConcurrency,
		jpegQuality:  tiles.DefaultJPEGQuality,
		rateLimitBps: rateLimitBps,
	}
}

// WithConcurrency sets the number of pages fetched in parallel, clamped to 1..8.
func (d *Downloader) WithConcurrency(n int) *Downloader {
	d.concurrency = min(max(n, 1), maxConcurrency)
	return d
}

// WithJPEGQuality sets the quality used when a descrambled JPEG is re-encoded.
func (d *Downloader) WithJPEGQuality(q int) *Downloader {
	d.jpegQuality = q
	return d
}

func (d *Downloader) dlog() *logger.ComponentLogger {
	return logger.WithComponent(logger.ComponentDownloader)
}

// Render returns the bytes to store for page and their file extension.
// Pages without a usable key are returned untouched; scrambled ones are
// decoded, reassembled and re-encoded.
func Render(page types.Page, data []byte, jpegQuality int) ([]byte, string, error) {
	if !page.Scrambled() || page.GridSize < 1 || page.KeyErr != nil {
		return data, mimeext.Sniff(data, page.URL), nil
	}
	img, format, err := tiles.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	out := tiles.Reassemble(img, page.DescramblingKey, page.GridSize)

	var buf bytes.Buffer
	written, err := tiles.Encode(&buf, out, format, jpegQuality)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mimeext.ExtFromFormat(written), nil
}

// DownloadPage fetches, renders and stores one page in dir. total sizes
// the zero padding of the file name.
func (d *Downloader) DownloadPage(ctx context.Context, page types.Page, dir string, total int) (string, int64, error) {
	data, err := d.Client.GetBytes(ctx, page.URL)
	if err != nil {
		return "", 0, fmt.Errorf("fetch page %d: %w", page.Index+1, err)
	}
	out, ext, err := Render(page, data, d.jpegQuality)
	if err != nil {
		return "", 0, fmt.Errorf("render page %d: %w", page.Index+1, err)
	}

	path := filepath.Join(dir, sanitize.PageFilename(page.Index, total, ext))
	if err := writeFileAtomic(path, out); err != nil {
		return "", 0, err
	}
	d.dlog().Debug("page saved", map[string]interface{}{
		"page":        page.Index + 1,
		"path":        path,
		"descrambled": page.Scrambled() && page.KeyErr == nil,
	})
	if err := d.sleepForRate(ctx, int64(len(data))); err != nil {
		return path, int64(len(data)), err
	}
	return path, int64(len(data)), nil
}

// Download saves pages into dir and returns the written paths in page order.
// A page that fails, or whose key could not be resolved, is reported in the
// joined error while the others are still saved. Cancellation stops handing
// out pages and returns ctx.Err().
func (d *Downloader) Download(ctx context.Context, pages []types.Page, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	total := len(pages)
	workers := min(max(d.concurrency, 1), maxConcurrency)
	if workers > total && total > 0 {
		workers = total
	}

	var (
		mu       sync.Mutex
		done     int
		bytesSum int64
		paths    = make([]string, total)
		failures []error
	)

	report := func(p types.Page, path string, n int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		bytesSum += n
		if err != nil {
			failures = append(failures, err)
		}
		if d.ProgressFunc != nil {
			pr := Progress{TotalPages: total, DonePages: done, Bytes: bytesSum, Page: p, Path: path, Err: err}
			if total > 0 {
				pr.Percent = float64(done) / float64(total) * 100
			}
			d.ProgressFunc(pr)
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for i := range jobs {
			p := pages[i]
			path, n, err := d.DownloadPage(ctx, p, dir, total)
			if err == nil && p.KeyErr != nil {
				err = fmt.Errorf("page %d saved scrambled: %w", p.Index+1, p.KeyErr)
			}
			if path != "" {
				mu.Lock()
				paths[i] = path
				mu.Unlock()
			}
			report(p, path, n, err)
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

	for i := range pages {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return compact(paths), ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if len(failures) > 0 {
		d.dlog().Warn("chapter incomplete", map[string]interface{}{"failed": len(failures), "total": total})
		return compact(paths), fmt.Errorf("%d/%d pages failed: %w", len(failures), total, errors.Join(failures...))
	}
	return compact(paths), nil
}

func compact(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + temporaryFileSuffix
	if err := os.WriteFile(tmpPath, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}

// sleepForRate enforces simple rate limit based on bytes fetched in this step.
func (d *Downloader) sleepForRate(ctx context.Context, fetched int64) error {
	if d.rateLimitBps <= 0 || fetched <= 0 {
		return nil
	}
	dur := time.Duration(int64(time.Second) * fetched / d.rateLimitBps)
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
