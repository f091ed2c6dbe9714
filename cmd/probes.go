package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/probes"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the built-in probe kinds",
	RunE: func(cmd *cobra.Command, args []string) error {
		descs := probes.GetAllDescriptions()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(descs)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tKIND\tDESCRIPTION")
		for _, d := range descs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Domain, d.Kind, d.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(probesCmd)
	probesCmd.Flags().Bool("json", false, "Output descriptions as a JSON array")
}
