package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// PlainReporter prints one line per appended chunk. It is used when the
// terminal cannot host the interactive view.
type PlainReporter struct {
	mu   sync.Mutex
	out  io.Writer
	last time.Duration
}

func NewPlainReporter(out io.Writer) *PlainReporter {
	return &PlainReporter{out: out}
}

// ChunkWritten implements tripload.ProgressReporter.
func (r *PlainReporter) ChunkWritten(p tripload.ChunkProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	took := p.Elapsed - r.last
	r.last = p.Elapsed
	fmt.Fprintln(r.out, FormatChunk(p, took))
}

// FormatChunk renders a chunk progress line; took is the time spent on
// this chunk alone.
func FormatChunk(p tripload.ChunkProgress, took time.Duration) string {
	return fmt.Sprintf("%s %s %s",
		SuccessStyle.Render(SymbolCheck),
		fmt.Sprintf("inserted chunk %d (%s rows, %s total)", p.Index, groupDigits(int64(p.Rows)), groupDigits(p.TotalRows)),
		MutedStyle.Render(fmt.Sprintf("took %.3fs", took.Seconds())),
	)
}

// FormatResult renders the closing summary of a run.
func FormatResult(res *tripload.LoadResult, err error) string {
	if res == nil {
		return ErrorStyle.Render(fmt.Sprintf("%s load failed: %v", SymbolCross, err))
	}
	summary := fmt.Sprintf("%s: %s rows in %d chunks, %s",
		res.Table, groupDigits(res.Rows), res.Chunks, res.Duration.Round(time.Millisecond))
	if err != nil {
		return ErrorStyle.Render(fmt.Sprintf("%s load failed after %s: %v", SymbolCross, summary, err))
	}
	return SuccessStyle.Render(SymbolCheck) + " " + TitleStyle.Render("loaded") + " " + summary
}

// groupDigits formats n with thousands separators.
func groupDigits(n int64) string {
	s := fmt.Sprint(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

var _ tripload.ProgressReporter = (*PlainReporter)(nil)
