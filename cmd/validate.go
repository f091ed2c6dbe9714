package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file and list the resulting probes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			var joined interface{ Unwrap() []error }
			if errors.As(err, &joined) {
				for _, e := range joined.Unwrap() {
					fmt.Fprintln(cmd.ErrOrStderr(), e)
				}
				return fmt.Errorf("configuration has %d problems", len(joined.Unwrap()))
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d probes, every %s\n", cfg.Hostname, len(cfg.Probes), cfg.Interval)
		for _, spec := range cfg.Specs() {
			fmt.Fprintf(out, "  %-24s %s/%s", spec.ID, spec.Domain, spec.Kind)
			if spec.Target != "" {
				fmt.Fprintf(out, " %s", spec.Target)
			}
			fmt.Fprintf(out, " (timeout %s)\n", spec.Timeout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
