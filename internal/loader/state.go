package loader

import (
	"fmt"

	"github.com/vvka-141/tripload/pkg/tripload"
)

var transitions = map[tripload.LoadState][]tripload.LoadState{
	tripload.StateNotStarted: {tripload.StatePriming},
	tripload.StatePriming:    {tripload.StateLoading, tripload.StateFailed},
	tripload.StateLoading:    {tripload.StateDone, tripload.StateFailed},
}

// canTransition reports whether a run may move from one state to another.
func canTransition(from, to tripload.LoadState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves result to state to, or returns an error if the move is illegal.
func advance(result *tripload.LoadResult, to tripload.LoadState) error {
	if !canTransition(result.State, to) {
		return fmt.Errorf("illegal load state transition %s → %s", result.State, to)
	}
	result.State = to
	return nil
}
