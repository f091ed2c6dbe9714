package report

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Marker returns the short status tag used in digests.
func Marker(s probe.Severity) string {
	switch s {
	case probe.SeverityOK:
		return "[ OK ]"
	case probe.SeverityWarning:
		return "[WARN]"
	case probe.SeverityCritical:
		return "[CRIT]"
	default:
		return "[ ?? ]"
	}
}

// Title is a one-line headline for an alert.
func Title(a *Alert) string {
	return fmt.Sprintf("%s on %s: %d of %d probes need attention",
		strings.ToUpper(a.Severity().String()), a.Report.Hostname, len(a.Findings), a.Report.Summary.Total)
}

// Digest renders the alert as plain text: the headline, the alerting
// findings in order, then the remaining counts.
func Digest(a *Alert) string {
	r := a.Report
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", Title(a))
	fmt.Fprintf(&b, "Round %s at %s (took %s)\n\n",
		shortID(r.ID), r.Timestamp.Format("2006-01-02 15:04:05 MST"), strings.ToLower(units.HumanDuration(r.Duration)))

	for _, f := range a.Findings {
		writeFinding(&b, f)
	}
	writeSummary(&b, r.Summary)
	return b.String()
}

// Text renders every finding of a report, grouped by domain.
func Text(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s: %s\n", Marker(r.Overall), r.Hostname, strings.ToUpper(r.Overall.String()))
	groups := r.ByDomain()
	for _, domain := range probe.Domains {
		findings := groups[domain]
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", domain)
		for _, f := range findings {
			b.WriteString("  ")
			writeFinding(&b, f)
		}
	}
	writeSummary(&b, r.Summary)
	return b.String()
}

func writeFinding(b *strings.Builder, f probe.Finding) {
	fmt.Fprintf(b, "%s %s: %s", Marker(f.Severity), f.ProbeID, f.Message)
	if f.Result.Latency > 0 {
		fmt.Fprintf(b, " (%dms)", f.Result.Latency.Milliseconds())
	}
	b.WriteByte('\n')
}

func writeSummary(b *strings.Builder, s Summary) {
	fmt.Fprintf(b, "\n%d ok, %d warning, %d critical, %d unknown\n", s.OK, s.Warning, s.Critical, s.Unknown)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
