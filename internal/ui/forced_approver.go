package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// ForcedApprover approves after a countdown. Used with --force and when
// stdin is not a terminal.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

func NewForcedApprover(verbose bool) tripload.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// RequestApproval warns about the replacement and approves once the
// countdown runs out. Cancelling ctx aborts it.
func (a *ForcedApprover) RequestApproval(ctx context.Context, table string, rows int64) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintf(a.output, "DANGER: table %q holds %d rows and will be dropped and recreated.\n", table, rows)
	fmt.Fprintln(a.output)

	countdownSeconds := int(tripload.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rReplacing in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\rProceeding with table replacement...                          \n")
	return true, nil
}

var _ tripload.Approver = (*ForcedApprover)(nil)
