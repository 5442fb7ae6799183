package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	progressWidth = 40
	logEvery      = 10 // percent between progress log lines when not on a terminal
)

// Progress reports the advance of a long running stage. On a terminal it redraws a
// progress bar in place, otherwise it logs every few percent.
type Progress struct {
	stage  string
	out    io.Writer
	tty    bool
	bar    progress.Model
	logger *slog.Logger

	mu      sync.Mutex
	lastPct int
}

func NewProgress(stage string, out *os.File, logger *slog.Logger) *Progress {
	return newProgress(stage, out, isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()), logger)
}

func newProgress(stage string, out io.Writer, tty bool, logger *slog.Logger) *Progress {
	return &Progress{
		stage:   stage,
		out:     out,
		tty:     tty,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		logger:  logger,
		lastPct: -1,
	}
}

// Update is meant to be passed as a progress callback
func (p *Progress) Update(done, total int) {
	if total <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pct := done * 100 / total

	if p.tty {
		if pct == p.lastPct {
			return
		}
		p.lastPct = pct
		fmt.Fprintf(p.out, "\r%-10s %s %s/%s", p.stage, p.bar.ViewAs(float64(done)/float64(total)),
			humanize.Comma(int64(done)), humanize.Comma(int64(total)))
		if done == total {
			fmt.Fprintln(p.out)
		}
		return
	}

	if pct/logEvery == p.lastPct/logEvery && done != total {
		return
	}
	p.lastPct = pct
	p.logger.Info(p.stage, slog.String("progress", fmt.Sprintf("%d%%", pct)),
		slog.String("frames", fmt.Sprintf("%s/%s", humanize.Comma(int64(done)), humanize.Comma(int64(total)))))
}
