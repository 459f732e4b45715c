package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tripload/internal/normalize"
)

var (
	// sslModes contains valid PostgreSQL SSL modes for shell completion.
	sslModes    = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	drivers     = []string{"postgres", "mysql", "sqlite"}
	authMethods = []string{"standard", "aws", "azure", "google"}
)

func completeFrom(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var matches []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				matches = append(matches, v)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeVariantNames completes built-in variant names. Variants declared
// in tripload.yaml are not offered.
func completeVariantNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(normalize.DefaultRegistry().Names())(cmd, args, toComplete)
}
