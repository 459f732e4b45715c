package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// maxHistory bounds the chunk lines kept on screen.
const maxHistory = 5

type chunkMsg tripload.ChunkProgress

type doneMsg struct {
	result *tripload.LoadResult
	err    error
}

// progressModel renders a spinner, the running totals and the last few
// chunks of a load. It only receives messages; the load runs elsewhere.
type progressModel struct {
	spinner spinner.Model
	title   string
	history []string
	chunks  int
	rows    int64
	last    time.Duration
	done    bool
	result  *tripload.LoadResult
	err     error
}

func newProgressModel(title string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return progressModel{spinner: s, title: title}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chunkMsg:
		p := tripload.ChunkProgress(msg)
		m.history = append(m.history, FormatChunk(p, p.Elapsed-m.last))
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		m.last = p.Elapsed
		m.chunks = p.Index + 1
		m.rows = p.TotalRows
		return m, nil
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if m.done {
		b.WriteString(FormatResult(m.result, m.err))
		b.WriteByte('\n')
		return b.String()
	}
	fmt.Fprintf(&b, "%s %s %s\n",
		m.spinner.View(),
		TitleStyle.Render(m.title),
		LabelStyle.Render(fmt.Sprintf("%d chunks, %s rows", m.chunks, groupDigits(m.rows))),
	)
	return b.String()
}

// LoadFunc runs a load, reporting each chunk to progress.
type LoadFunc func(ctx context.Context, progress tripload.ProgressReporter) (*tripload.LoadResult, error)

// liveView forwards progress to a bubbletea program that is started on the
// first LoadStarted or ChunkWritten call. Until then the terminal belongs to
// whoever else needs it, such as an approval prompt.
type liveView struct {
	once    sync.Once
	program *tea.Program
	done    chan struct{}
}

func newLiveView(out io.Writer, title string) *liveView {
	return &liveView{
		program: tea.NewProgram(newProgressModel(title),
			tea.WithInput(nil),
			tea.WithOutput(out),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
}

func (v *liveView) start() {
	v.once.Do(func() {
		go func() {
			defer close(v.done)
			v.program.Run() //nolint:errcheck
		}()
	})
}

// LoadStarted implements tripload.LoadStarter.
func (v *liveView) LoadStarted(string) { v.start() }

// ChunkWritten implements tripload.ProgressReporter.
func (v *liveView) ChunkWritten(cp tripload.ChunkProgress) {
	v.start()
	v.program.Send(chunkMsg(cp))
}

// finish closes the view with the outcome. It reports whether the view was
// ever shown.
func (v *liveView) finish(result *tripload.LoadResult, err error) bool {
	started := true
	v.once.Do(func() { started = false })
	if !started {
		return false
	}
	v.program.Send(doneMsg{result: result, err: err})
	<-v.done
	return true
}

// RunWithProgress runs load on the calling goroutine while a bubbletea
// program renders its progress to out. The program reads no input, so
// Ctrl+C reaches the process as SIGINT and cancels ctx upstream; the view
// then closes with the partial result once load returns. When load fails
// before writing starts, the summary is printed as a plain line instead.
func RunWithProgress(ctx context.Context, out io.Writer, title string, load LoadFunc) (*tripload.LoadResult, error) {
	view := newLiveView(out, title)
	result, err := load(ctx, view)
	if !view.finish(result, err) {
		fmt.Fprintln(out, FormatResult(result, err))
	}
	return result, err
}

// Reporter returns the plain line reporter for out.
func Reporter(out io.Writer) tripload.ProgressReporter {
	return NewPlainReporter(out)
}
