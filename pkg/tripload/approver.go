package tripload

import "context"

// Approver handles user interaction before the one destructive operation
// of a run: replacing a destination table that already holds data.
//
// Implementations:
//   - ForcedApprover: approves after a short countdown (--force)
//   - InteractiveApprover: prompts the user to type the table name
type Approver interface {
	// RequestApproval asks for confirmation before dropping and recreating table.
	// rows is the number of rows the table currently holds.
	RequestApproval(ctx context.Context, table string, rows int64) (bool, error)
}
