package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tripload",
	Short: "Chunked CSV loader for NYC taxi trip data",
	Long: `tripload streams a taxi trip CSV (local or over HTTP, plain or gzipped)
into a relational table. The first rows define the table schema, the
pickup/dropoff columns are normalized to pickup_datetime/dropoff_datetime,
and the rest of the file is appended in fixed-size chunks.

Destinations: PostgreSQL (including AWS, Azure and Google Cloud IAM auth),
MySQL and SQLite.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied table replacement
  13 - Destination rejected a write
  14 - Source data could not be parsed
  15 - Source could not be downloaded or opened`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for tripload")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
