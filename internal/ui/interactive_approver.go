package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// InteractiveApprover asks the user to type the table name before a table
// holding data is replaced.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

func NewInteractiveApprover(verbose bool) tripload.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

func (a *InteractiveApprover) RequestApproval(ctx context.Context, table string, rows int64) (bool, error) {
	fmt.Fprintf(a.output, "\nWARNING: table '%s' already holds %d rows.\n", table, rows)
	fmt.Fprintln(a.output, "Loading drops and recreates it; its current contents will be lost.")
	fmt.Fprintf(a.output, "\nTo confirm, type the table name '%s' and press Enter: ", table)

	// The read cannot be interrupted; on cancellation the goroutine stays
	// blocked on stdin until the process exits.
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		input, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == table {
			fmt.Fprintln(a.output, "Confirmed. Proceeding with table replacement...")
			return true, nil
		}
		fmt.Fprintf(a.output, "Input '%s' does not match table name '%s'. Load cancelled.\n", input, table)
		return false, nil
	}
}

var _ tripload.Approver = (*InteractiveApprover)(nil)
