// Package evaluator classifies probe results into findings.
//
// Evaluate is a pure function: the same Result and Spec always produce the
// same Finding. Policy lives entirely in the Spec's Thresholds.
package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Evaluate maps a probe result onto a severity and a human message.
// Missing data (timeout, unreachable, not applicable) is always SeverityUnknown.
func Evaluate(result probe.Result, spec probe.Spec) probe.Finding {
	finding := probe.Finding{
		ProbeID: result.ProbeID,
		Domain:  result.Domain,
		Result:  result,
	}
	if finding.ProbeID == "" {
		finding.ProbeID = spec.ID
	}
	if finding.Domain == "" {
		finding.Domain = spec.Domain
	}

	subject := Label(spec)
	outcome := result.Outcome

	switch outcome.Kind {
	case probe.OutcomeSuccess:
		finding.Severity, finding.Message = classify(subject, outcome.Value, spec)
	case probe.OutcomeTimeout:
		finding.Severity = probe.SeverityUnknown
		finding.Message = fmt.Sprintf("%s: no data, timed out after %s", subject, spec.Timeout)
	case probe.OutcomeUnreachable:
		finding.Severity = probe.SeverityUnknown
		finding.Message = fmt.Sprintf("%s: no data, %s", subject, outcome.Detail())
	case probe.OutcomeNotApplicable:
		finding.Severity = probe.SeverityUnknown
		finding.Message = fmt.Sprintf("%s: not applicable, %s", subject, outcome.Detail())
	default:
		finding.Severity = probe.SeverityUnknown
		finding.Message = fmt.Sprintf("%s: unrecognized outcome %q", subject, outcome.Kind)
	}
	return finding
}

func classify(subject string, value probe.Value, spec probe.Spec) (probe.Severity, string) {
	t := spec.Thresholds
	severity := probe.SeverityOK
	observed := formatValue(value, spec.Unit)
	var reasons []string

	if t.HasNumeric() {
		n, ok := value.Number()
		if !ok {
			return probe.SeverityUnknown, fmt.Sprintf("%s: expected a number, got %s", subject, describeValue(value))
		}
		if s, reason := numericSeverity(n, t, spec.Unit); s > probe.SeverityOK {
			severity = s
			reasons = append(reasons, reason)
		}
	}

	if t.HasExpected() && !matches(value, t.Expected) {
		severity = probe.Max(severity, t.MismatchSeverity)
		reasons = append(reasons, fmt.Sprintf("expected %s", t.Expected))
	}

	message := fmt.Sprintf("%s is %s", subject, observed)
	if len(reasons) > 0 {
		message += " (" + strings.Join(reasons, "; ") + ")"
	}
	return severity, message
}

// numericSeverity applies inclusive thresholds in Thresholds.Direction.
func numericSeverity(n float64, t probe.Thresholds, unit string) (probe.Severity, string) {
	breached := func(limit float64) bool {
		if t.Direction == probe.Below {
			return n <= limit
		}
		return n >= limit
	}
	op := ">="
	if t.Direction == probe.Below {
		op = "<="
	}

	if t.Critical != nil && breached(*t.Critical) {
		return probe.SeverityCritical, fmt.Sprintf("critical %s %s", op, formatNumber(*t.Critical)+unitSuffix(unit))
	}
	if t.Warn != nil && breached(*t.Warn) {
		return probe.SeverityWarning, fmt.Sprintf("warn %s %s", op, formatNumber(*t.Warn)+unitSuffix(unit))
	}
	return probe.SeverityOK, ""
}

// matches compares the observed value against the expected string.
// Numbers compare numerically so "3" matches 3.0; booleans accept strconv forms.
func matches(value probe.Value, expected string) bool {
	switch value.Kind() {
	case probe.KindNumber:
		n, _ := value.Number()
		want, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
		return err == nil && n == want
	case probe.KindBool:
		b, _ := value.Bool()
		want, err := strconv.ParseBool(strings.TrimSpace(expected))
		return err == nil && b == want
	default:
		return strings.EqualFold(strings.TrimSpace(value.String()), strings.TrimSpace(expected))
	}
}

// Label names the thing a spec observes, for use in messages.
func Label(spec probe.Spec) string {
	switch spec.Domain {
	case probe.DomainResource:
		switch spec.Kind {
		case "disk":
			return "disk " + spec.Target + " usage"
		case "load":
			return "load average"
		default:
			return spec.Kind + " usage"
		}
	case probe.DomainService:
		if spec.Kind == "enabled" {
			return "service " + spec.Target + " enabled"
		}
		return "service " + spec.Target + " active"
	case probe.DomainNetwork:
		switch spec.Kind {
		case "vip":
			return "VIP " + spec.Target + " assigned"
		case "port":
			return "port " + hostPort(spec) + " open"
		default:
			return "peer " + spec.Target + " reachable"
		}
	case probe.DomainCluster:
		return "cluster " + spec.Kind
	case probe.DomainProtocol:
		if spec.Kind == "http" {
			return "endpoint " + spec.URL + " healthy"
		}
		return spec.Kind + " " + hostPort(spec) + " responding"
	case probe.DomainCertificate:
		return "certificate " + spec.Target + " expiry"
	case probe.DomainBackup:
		return "backup " + spec.Target + " age"
	}
	if spec.Target != "" {
		return spec.ID + " " + spec.Target
	}
	return spec.ID
}

func hostPort(spec probe.Spec) string {
	host := spec.Host
	if host == "" {
		host = spec.Target
	}
	if spec.Port == 0 {
		return host
	}
	return host + ":" + strconv.Itoa(spec.Port)
}

func formatValue(v probe.Value, unit string) string {
	switch v.Kind() {
	case probe.KindNumber:
		n, _ := v.Number()
		return formatNumber(n) + unitSuffix(unit)
	case probe.KindText:
		return strconv.Quote(v.String())
	case probe.KindBool:
		return v.String()
	default:
		return "empty"
	}
}

func describeValue(v probe.Value) string {
	if v.IsZero() {
		return "no value"
	}
	return fmt.Sprintf("%s %s", v.Kind(), formatValue(v, ""))
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(math.Round(n*100)/100, 'f', -1, 64)
}

func unitSuffix(unit string) string {
	switch unit {
	case "":
		return ""
	case "%":
		return "%"
	default:
		return " " + unit
	}
}
