package probe

import "time"

// Direction says which side of a numeric threshold is bad.
type Direction string

const (
	// Above: value >= threshold breaches (usage percentages).
	Above Direction = "above"
	// Below: value <= threshold breaches (days until certificate expiry, cluster size floor).
	Below Direction = "below"
)

// Thresholds is the evaluation policy attached to a Spec.
// Numeric thresholds are inclusive bounds. Expected is compared against
// Value.String(); a mismatch yields MismatchSeverity.
type Thresholds struct {
	Warn             *float64  `json:"warn,omitempty"`
	Critical         *float64  `json:"critical,omitempty"`
	Direction        Direction `json:"direction,omitempty"`
	Expected         string    `json:"expected,omitempty"`
	MismatchSeverity Severity  `json:"mismatch_severity"`
}

// HasNumeric reports whether any numeric threshold is set.
func (t Thresholds) HasNumeric() bool { return t.Warn != nil || t.Critical != nil }

// HasExpected reports whether an exact-match expectation is set.
func (t Thresholds) HasExpected() bool { return t.Expected != "" }

// Spec is the static descriptor of one probe. It is not modified after loading.
type Spec struct {
	ID        string        `json:"id"`
	Domain    Domain        `json:"domain"`
	Kind      string        `json:"kind"`
	Target    string        `json:"target,omitempty"`
	Host      string        `json:"host,omitempty"`
	Port      int           `json:"port,omitempty"`
	Transport string        `json:"transport,omitempty"`
	Handshake bool          `json:"handshake,omitempty"`
	Payload   string        `json:"payload,omitempty"`
	URL       string        `json:"url,omitempty"`
	Secret    string        `json:"-"`
	Timeout   time.Duration `json:"timeout"`
	Unit      string        `json:"unit,omitempty"`

	Thresholds Thresholds `json:"thresholds"`
}

// Result is produced once per spec per round.
type Result struct {
	ProbeID   string        `json:"probe_id"`
	Domain    Domain        `json:"domain"`
	Kind      string        `json:"kind"`
	Target    string        `json:"target,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Latency   time.Duration `json:"latency"`
	StartedAt time.Time     `json:"started_at"`
}

// Float returns a pointer to f, for building Thresholds literals.
func Float(f float64) *float64 { return &f }
