package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// progressPrinter redraws a single status line on a terminal and prints
// one line per chunk otherwise.
type progressPrinter struct {
	mu        sync.Mutex
	w         io.Writer
	tty       bool
	lastChunk int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{w: w}
	if f, ok := w.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progressPrinter) Update(pr core.ImportProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("[%3d%%] chunk %d/%d  created %d  skipped %d  failed chunks %d",
		pr.Percent(), pr.CurrentChunk, pr.TotalChunks, pr.ItemsCreated, pr.ItemsSkipped, len(pr.FailedChunks))

	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", line)
		if pr.Done {
			fmt.Fprintln(p.w)
		}
		return
	}

	if pr.Done || pr.CurrentChunk != p.lastChunk {
		p.lastChunk = pr.CurrentChunk
		fmt.Fprintln(p.w, line)
	}
}
