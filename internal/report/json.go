package report

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

type reportJSON struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Hostname        string         `json:"hostname"`
	OverallSeverity probe.Severity `json:"overall_severity"`
	DurationMS      int64          `json:"round_duration_ms"`
	Summary         Summary        `json:"summary"`
	Findings        []findingJSON  `json:"findings"`
}

type findingJSON struct {
	ProbeID       string            `json:"probe_id"`
	Domain        probe.Domain      `json:"domain"`
	Kind          string            `json:"kind,omitempty"`
	Target        string            `json:"target,omitempty"`
	Severity      probe.Severity    `json:"severity"`
	Message       string            `json:"message"`
	ObservedValue probe.Value       `json:"observed_value"`
	Outcome       probe.OutcomeKind `json:"outcome"`
	Detail        string            `json:"detail,omitempty"`
	LatencyMS     int64             `json:"latency_ms"`
}

// MarshalJSON renders the report with snake_case field names.
// observed_value is null when the probe produced no value.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		Hostname:        r.Hostname,
		OverallSeverity: r.Overall,
		DurationMS:      r.Duration.Milliseconds(),
		Summary:         r.Summary,
		Findings:        make([]findingJSON, len(r.Findings)),
	}
	for i, f := range r.Findings {
		out.Findings[i] = findingJSON{
			ProbeID:       f.ProbeID,
			Domain:        f.Domain,
			Kind:          f.Result.Kind,
			Target:        f.Result.Target,
			Severity:      f.Severity,
			Message:       f.Message,
			ObservedValue: f.Result.Outcome.Value,
			Outcome:       f.Result.Outcome.Kind,
			Detail:        f.Result.Outcome.Detail(),
			LatencyMS:     f.Result.Latency.Milliseconds(),
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a report written by MarshalJSON.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Report{
		ID:        in.ID,
		Timestamp: in.Timestamp,
		Hostname:  in.Hostname,
		Overall:   in.OverallSeverity,
		Duration:  time.Duration(in.DurationMS) * time.Millisecond,
		Summary:   in.Summary,
		Findings:  make([]probe.Finding, len(in.Findings)),
	}
	for i, f := range in.Findings {
		r.Findings[i] = probe.Finding{
			ProbeID:  f.ProbeID,
			Domain:   f.Domain,
			Severity: f.Severity,
			Message:  f.Message,
			Result: probe.Result{
				ProbeID: f.ProbeID,
				Domain:  f.Domain,
				Kind:    f.Kind,
				Target:  f.Target,
				Outcome: restoreOutcome(f),
				Latency: time.Duration(f.LatencyMS) * time.Millisecond,
			},
		}
	}
	return nil
}

func restoreOutcome(f findingJSON) probe.Outcome {
	switch f.Outcome {
	case probe.OutcomeTimeout:
		return probe.Timeout()
	case probe.OutcomeUnreachable:
		return probe.Unreachable(errors.New(f.Detail))
	case probe.OutcomeNotApplicable:
		return probe.NotApplicable(f.Detail)
	default:
		return probe.Success(f.ObservedValue)
	}
}
