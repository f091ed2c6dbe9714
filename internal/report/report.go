// Package report aggregates findings into per-round reports and alerts.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Summary counts findings per severity.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Unknown  int `json:"unknown"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// Report is the outcome of one round.
// Overall is the maximum severity over Findings, or Unknown when there are none.
type Report struct {
	ID        string
	Timestamp time.Time
	Hostname  string
	Findings  []probe.Finding
	Overall   probe.Severity
	Duration  time.Duration
	Summary   Summary
}

// Aggregate builds the report for a round that started at startedAt.
// Findings keep their order.
func Aggregate(findings []probe.Finding, startedAt time.Time, hostname string) *Report {
	r := &Report{
		ID:        uuid.NewString(),
		Timestamp: startedAt,
		Hostname:  hostname,
		Findings:  findings,
		Duration:  time.Since(startedAt),
	}

	if len(findings) == 0 {
		r.Overall = probe.SeverityUnknown
		return r
	}

	r.Overall = probe.SeverityOK
	for _, f := range findings {
		r.Overall = probe.Max(r.Overall, f.Severity)
		r.Summary.add(f.Severity)
	}
	return r
}

func (s *Summary) add(sev probe.Severity) {
	s.Total++
	switch sev {
	case probe.SeverityOK:
		s.OK++
	case probe.SeverityUnknown:
		s.Unknown++
	case probe.SeverityWarning:
		s.Warning++
	case probe.SeverityCritical:
		s.Critical++
	}
}

// ByDomain groups findings by domain, keeping report order within each group.
func (r *Report) ByDomain() map[probe.Domain][]probe.Finding {
	groups := make(map[probe.Domain][]probe.Finding)
	for _, f := range r.Findings {
		groups[f.Domain] = append(groups[f.Domain], f)
	}
	return groups
}

// Alert is raised for a report whose overall severity is at least Warning.
type Alert struct {
	ID       string
	Report   *Report
	Findings []probe.Finding
}

// NewAlert returns the alert for r, or nil when r does not warrant one.
// The alert carries only Warning and Critical findings, in report order.
func NewAlert(r *Report) *Alert {
	if r == nil || r.Overall < probe.SeverityWarning {
		return nil
	}
	var findings []probe.Finding
	for _, f := range r.Findings {
		if f.Severity >= probe.SeverityWarning {
			findings = append(findings, f)
		}
	}
	return &Alert{ID: uuid.NewString(), Report: r, Findings: findings}
}

// Severity is the overall severity of the alerting report.
func (a *Alert) Severity() probe.Severity {
	return a.Report.Overall
}
