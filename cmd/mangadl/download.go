package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/ytget/mangadl/downloader"
	"github.com/ytget/mangadl/internal/logger"
	"github.com/ytget/mangadl/internal/sanitize"
)

var batchSegment = regexp.MustCompile(`^(pg-\d+|\d{1,3})$`)

// chapterDirName derives a folder name from a reader URL such as
// https://www.mangago.me/read-manga/title/mf/v01/c001/pg-1/ -> title_mf_v01_c001.
func chapterDirName(chapterURL string) string {
	u, err := url.Parse(chapterURL)
	if err != nil {
		return sanitize.ToSafeDirname("")
	}
	var parts []string
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg == "" || seg == "read-manga" {
			continue
		}
		parts = append(parts, seg)
	}
	if n := len(parts); n > 1 && batchSegment.MatchString(parts[n-1]) {
		parts = parts[:n-1]
	}
	if len(parts) == 0 {
		return sanitize.ToSafeDirname(u.Hostname())
	}
	return sanitize.ToSafeDirname(strings.Join(parts, "_"))
}

func (a *app) downloadCmd() *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "download <chapter-url>...",
		Short: "Download chapters, descrambling pages as needed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			log := logger.WithComponent(logger.ComponentApp)

			var ui *progressUI
			if !noProgress {
				ui = newProgressUI(cmd.ErrOrStderr())
			}

			var failed []error
			for _, chapterURL := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				name := chapterDirName(chapterURL)
				pages, err := r.ResolvePages(cmd.Context(), chapterURL)
				if err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", name, err))
					log.Error("chapter not resolved", map[string]interface{}{"url": chapterURL, "error": err.Error()})
					continue
				}

				dl := downloader.New(r.Client(), nil, parseRate(a.cfg.RateLimit)).
					WithConcurrency(a.cfg.ImageWorkers).
					WithJPEGQuality(a.cfg.JPEGQuality)
				var bar *mpb.Bar
				if ui != nil {
					var advance func(downloader.Progress)
					bar, advance = ui.chapterBar(name, len(pages))
					dl.ProgressFunc = advance
				} else {
					dl.ProgressFunc = func(p downloader.Progress) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d pages (%.0f%%)\n", name, p.DonePages, p.TotalPages, p.Percent)
					}
				}

				dir := filepath.Join(a.cfg.Output, name)
				paths, err := dl.Download(cmd.Context(), pages, dir)
				if bar != nil {
					finish(bar)
				}
				if err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", name, err))
				}
				if a.cfg.CBZ && len(paths) > 0 && err == nil {
					if err := downloader.CreateCBZ(paths, dir+".cbz"); err != nil {
						failed = append(failed, fmt.Errorf("%s: %w", name, err))
						continue
					}
					if !a.cfg.KeepFolder {
						_ = os.RemoveAll(dir)
					}
				}
				log.Info("chapter done", map[string]interface{}{"chapter": name, "pages": len(paths)})
			}
			if ui != nil {
				ui.Wait()
			}
			return errors.Join(failed...)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&a.flags.Output, "output", "o", ".", "output directory")
	f.IntVar(&a.flags.ImageWorkers, "image-workers", 4, "parallel image downloads per chapter (1-8)")
	f.StringVar(&a.flags.RateLimit, "rate-limit", "", "download rate limit (e.g., 2MiB/s, 500KiB/s)")
	f.IntVar(&a.flags.JPEGQuality, "jpeg-quality", 92, "quality of re-encoded descrambled JPEG pages")
	f.BoolVar(&a.flags.CBZ, "cbz", false, "pack each chapter into a .cbz archive")
	f.BoolVar(&a.flags.KeepFolder, "keep-folder", false, "keep the page folder after creating the .cbz")
	f.BoolVar(&noProgress, "no-progress", false, "print plain progress lines instead of bars")
	return cmd
}
