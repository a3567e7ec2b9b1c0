package cmd

import (
	"io"

	"github.com/KaramelBytes/segmenta-cli/internal/progress"
	"github.com/schollz/progressbar/v3"
)

// newProgressBar renders pipeline progress on w. The returned func finishes
// the bar.
func newProgressBar(w io.Writer, description string) (progress.Func, func()) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWriter(w),
	)
	report := func(stage string, percent int, message string) {
		bar.Describe(stage + ": " + message)
		_ = bar.Set(percent)
	}
	return report, func() { _ = bar.Finish() }
}
