package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tripload/internal/normalize"
)

var variantsConfigPath string

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List known dataset variants and their column mapping",
	Long: `Lists the dataset variants tripload can normalize: the built-in yellow
and green variants plus any declared under variants: in tripload.yaml.

The token column is matched against the --source name when --variant is
not given; the longest matching token wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectCfg, err := loadProjectConfig(variantsConfigPath)
		if err != nil {
			return err
		}
		registry, err := buildRegistry(projectCfg)
		if err != nil {
			return err
		}
		return printVariants(cmd.OutOrStdout(), registry)
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
	variantsCmd.Flags().StringVar(&variantsConfigPath, "config", "",
		"Path to a tripload.yaml (default: ./tripload.yaml when present)")
}

func printVariants(w io.Writer, registry *normalize.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTOKEN\tPICKUP\tDROPOFF")
	for _, name := range registry.Names() {
		v, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%s -> %s\n",
			name, v.Token, v.Pickup, v.CanonicalPickup, v.Dropoff, v.CanonicalDropoff)
	}
	return tw.Flush()
}
