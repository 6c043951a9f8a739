package main

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/ytget/mangadl/downloader"
)

// progressUI draws one bar per chapter.
type progressUI struct {
	p *mpb.Progress
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{p: mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120*time.Millisecond),
	)}
}

// chapterBar returns a bar for total pages and the callback that advances it.
func (u *progressUI) chapterBar(name string, total int) (*mpb.Bar, func(downloader.Progress)) {
	bar := u.p.New(int64(total),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(decor.Name(name+"  ")),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d pages", decor.WCSyncWidth),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)
	return bar, func(p downloader.Progress) {
		bar.SetCurrent(int64(p.DonePages))
	}
}

// finish marks bar complete at its current count, so Wait returns even when
// some pages failed.
func finish(bar *mpb.Bar) {
	bar.SetTotal(-1, true)
}

func (u *progressUI) Wait() {
	u.p.Wait()
}
