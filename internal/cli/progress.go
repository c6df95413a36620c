package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"speechqa/internal/domain"
)

// consoleProgress prints build stages and draws an embedding progress bar.
type consoleProgress struct {
	out       io.Writer
	bar       *progressbar.ProgressBar
	startTime time.Time
}

func newConsoleProgress(out io.Writer) *consoleProgress {
	return &consoleProgress{out: out}
}

func (p *consoleProgress) Reset(existed bool) {
	if existed {
		fmt.Fprintln(p.out, "[✔] Old vector DB deleted.")
	} else {
		fmt.Fprintln(p.out, "[✔] No previous vector DB found.")
	}
}

func (p *consoleProgress) Reused(m domain.Manifest) {
	fmt.Fprintf(p.out, "[✔] Vector DB is up to date (%d chunks, built %s).\n", m.ChunkCount, m.BuiltAt.Local().Format(time.DateTime))
}

func (p *consoleProgress) Stage(step int, message string) {
	fmt.Fprintf(p.out, "[%d] %s\n", step, message)
}

func (p *consoleProgress) Embedded(done, total int) {
	if total == 0 {
		return
	}

	if p.bar == nil {
		p.startTime = time.Now()
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}

	p.bar.Set(done)

	if done > 0 && done < total {
		elapsed := time.Since(p.startTime)
		rate := float64(done) / elapsed.Seconds()
		if rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			p.bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
