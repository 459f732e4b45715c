package tripload

import (
	"fmt"
	"time"
)

// LoadState is the lifecycle of one load run.
//
//	NotStarted → Priming → Loading → Done
//	Priming → Failed, Loading → Failed
type LoadState int

const (
	StateNotStarted LoadState = iota
	StatePriming
	StateLoading
	StateDone
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StatePriming:
		return "priming"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// ChunkProgress is emitted once per batch successfully appended.
type ChunkProgress struct {
	RunID     string
	Table     string
	Index     int   // sequence index, starting at 0
	Rows      int   // rows in this batch
	TotalRows int64 // rows appended so far, this batch included
	Elapsed   time.Duration
}

// ProgressReporter observes a load. It is informational only and never
// influences control flow.
type ProgressReporter interface {
	ChunkWritten(p ChunkProgress)
}

// ProgressFunc adapts a plain function to the ProgressReporter interface.
type ProgressFunc func(ChunkProgress)

func (f ProgressFunc) ChunkWritten(p ChunkProgress) { f(p) }

// LoadStarter is implemented by reporters that need to know when the
// source is open and writing is about to begin. Reporters that take over
// the terminal use it to stay out of the way of approval prompts.
type LoadStarter interface {
	LoadStarted(table string)
}

// LoadResult summarizes a run. On failure it describes the prefix that
// reached the destination.
type LoadResult struct {
	RunID    string
	Table    string
	Variant  string
	Schema   Schema
	Chunks   int
	Rows     int64
	State    LoadState
	Duration time.Duration

	// SourceSHA256 and SourceBytes describe the fetched payload as
	// downloaded, before decompression. Set only when the run completed.
	SourceSHA256 string
	SourceBytes  int64
}
