package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
	"github.com/jandubois/clusterwatch/internal/watcher"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single round and print the report",
	Long: `Check runs every configured probe once, prints the report and exits with
a status code following the monitoring plugin convention:

  0  OK
  1  WARNING
  2  CRITICAL
  3  UNKNOWN (including configuration errors)

Alerts are only dispatched with --notify; the journal is only written
with --journal.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("output", "o", "", "Write the JSON report to this file instead of stdout")
	checkCmd.Flags().String("format", "json", "Output format for stdout (json, text)")
	checkCmd.Flags().Bool("notify", false, "Dispatch an alert if the round finds a problem")
	checkCmd.Flags().Bool("journal", false, "Save the report to the configured database")
}

// exitCode maps a severity to the plugin exit status.
func exitCode(s probe.Severity) int {
	switch s {
	case probe.SeverityOK:
		return 0
	case probe.SeverityWarning:
		return 1
	case probe.SeverityCritical:
		return 2
	default:
		return 3
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	notifyAlerts, _ := cmd.Flags().GetBool("notify")
	journal, _ := cmd.Flags().GetBool("journal")
	if format != "json" && format != "text" {
		return &ExitError{Code: 3, Err: fmt.Errorf("invalid --format %q (json, text)", format)}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}

	c, err := build(ctx, cfg, buildOptions{journal: journal, notify: notifyAlerts})
	if err != nil {
		return &ExitError{Code: 3, Err: err}
	}
	defer c.close()

	rep := watcher.New(c.watcherOptions()).RunRound(ctx)

	if output != "" {
		if err := writeReport(output, rep); err != nil {
			return &ExitError{Code: 3, Err: err}
		}
	} else if format == "text" {
		fmt.Fprint(cmd.OutOrStdout(), report.Text(rep))
	} else {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return &ExitError{Code: 3, Err: fmt.Errorf("encode report: %w", err)}
		}
	}

	if code := exitCode(rep.Overall); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func writeReport(path string, rep *report.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
