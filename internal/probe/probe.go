// Package probe defines the data model shared by probes, the evaluator and reports.
package probe

import (
	"fmt"
	"strings"
)

// Domain is the subsystem family a probe belongs to.
type Domain string

const (
	DomainResource    Domain = "resource"
	DomainService     Domain = "service"
	DomainNetwork     Domain = "network"
	DomainCluster     Domain = "cluster"
	DomainProtocol    Domain = "protocol"
	DomainCertificate Domain = "certificate"
	DomainBackup      Domain = "backup"
)

// Domains lists every known domain in display order.
var Domains = []Domain{
	DomainResource,
	DomainService,
	DomainNetwork,
	DomainCluster,
	DomainProtocol,
	DomainCertificate,
	DomainBackup,
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// Severity is the classification of a finding.
// The numeric order is OK < Unknown < Warning < Critical.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityUnknown
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityUnknown:
		return "unknown"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a severity name into a Severity.
// "warn" is accepted as an alias for "warning".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok":
		return SeverityOK, nil
	case "unknown":
		return SeverityUnknown, nil
	case "warn", "warning":
		return SeverityWarning, nil
	case "critical", "crit":
		return SeverityCritical, nil
	default:
		return SeverityUnknown, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Max returns the higher of two severities.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// Finding is the classified result of one probe.
type Finding struct {
	ProbeID  string   `json:"probe_id"`
	Domain   Domain   `json:"domain"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Result   Result   `json:"-"`
}

// Description is the self-description format for probe kinds.
type Description struct {
	Domain      Domain    `json:"domain"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Arguments   Arguments `json:"arguments"`
}

// Arguments describes required and optional spec fields for a probe kind.
type Arguments struct {
	Required map[string]ArgumentSpec `json:"required,omitempty"`
	Optional map[string]ArgumentSpec `json:"optional,omitempty"`
}

// Accepts reports whether name is a required or optional argument.
func (a Arguments) Accepts(name string) bool {
	_, req := a.Required[name]
	_, opt := a.Optional[name]
	return req || opt
}

// ArgumentSpec describes a single argument.
type ArgumentSpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}
