// Package config loads and validates the clusterwatch YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jandubois/clusterwatch/internal/notify"
	"github.com/jandubois/clusterwatch/internal/observe"
	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/probes"
	"github.com/jandubois/clusterwatch/internal/probes/backup"
	"github.com/jandubois/clusterwatch/internal/watcher"
)

const (
	// DefaultPath is used when neither --config nor CLUSTERWATCH_CONFIG is set.
	DefaultPath = "/etc/clusterwatch/clusterwatch.yaml"

	EnvPath     = "CLUSTERWATCH_CONFIG"
	EnvHostname = "CLUSTERWATCH_HOSTNAME"
)

// Config is the top-level configuration file.
type Config struct {
	Hostname       string        `yaml:"hostname"`
	Interval       time.Duration `yaml:"interval"`
	RoundTimeout   time.Duration `yaml:"round_timeout"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	OverrunPolicy  string        `yaml:"overrun_policy"`
	ListenAddr     string        `yaml:"listen_addr"`
	AuthTokenEnv   string        `yaml:"auth_token_env"`
	DatabasePath   string        `yaml:"database_path"`

	Cluster   ClusterConfig   `yaml:"cluster"`
	Radius    RadiusConfig    `yaml:"radius"`
	Notify    NotifyConfig    `yaml:"notify"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Probes    []ProbeConfig   `yaml:"probes"`
}

// TelemetryConfig selects OpenTelemetry exporters beyond the /metrics
// endpoint. OTLP endpoints come from the standard OTEL_EXPORTER_OTLP_* env.
type TelemetryConfig struct {
	MetricsExporter string  `yaml:"metrics_exporter"` // none|stdout|otlp
	TracingExporter string  `yaml:"tracing_exporter"` // none|stdout|otlp
	SampleRatio     float64 `yaml:"sample_ratio"`
}

// ClusterConfig locates the Galera status connection.
type ClusterConfig struct {
	DSNEnv  string        `yaml:"dsn_env"` // env var holding the MySQL DSN
	Timeout time.Duration `yaml:"timeout"`
}

// RadiusConfig names the env var holding the RADIUS shared secret.
type RadiusConfig struct {
	SecretEnv string `yaml:"secret_env"`
}

// NotifyConfig lists the alert channels.
type NotifyConfig struct {
	Timeout  time.Duration          `yaml:"timeout"`
	Channels []notify.ChannelConfig `yaml:"channels"`
}

// ProbeConfig is one probe entry as written in the file.
type ProbeConfig struct {
	ID         string          `yaml:"id"`
	Domain     string          `yaml:"domain"`
	Kind       string          `yaml:"kind"`
	Target     string          `yaml:"target"`
	Host       string          `yaml:"host"`
	Port       int             `yaml:"port"`
	Transport  string          `yaml:"transport"`
	Handshake  bool            `yaml:"handshake"`
	Payload    string          `yaml:"payload"`
	URL        string          `yaml:"url"`
	SecretEnv  string          `yaml:"secret_env"` // overrides radius.secret_env
	Timeout    time.Duration   `yaml:"timeout"`
	Unit       string          `yaml:"unit"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig is the evaluation policy of one probe.
type ThresholdConfig struct {
	Warn             *float64 `yaml:"warn"`
	Critical         *float64 `yaml:"critical"`
	Direction        string   `yaml:"direction"`
	Expected         string   `yaml:"expected"`
	MismatchSeverity string   `yaml:"mismatch_severity"`
}

// Error is a configuration problem. ProbeID is empty for top-level fields.
type Error struct {
	ProbeID string
	Field   string
	Msg     string
}

func (e *Error) Error() string {
	if e.ProbeID != "" {
		return fmt.Sprintf("probe %q: %s: %s", e.ProbeID, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Default returns a configuration with every default applied and no probes.
func Default() *Config {
	return &Config{
		Interval:       60 * time.Second,
		RoundTimeout:   30 * time.Second,
		DefaultTimeout: 5 * time.Second,
		OverrunPolicy:  string(watcher.OverrunSkip),
		ListenAddr:     ":8081",
		Cluster:        ClusterConfig{Timeout: 5 * time.Second},
		Notify:         NotifyConfig{Timeout: notify.DefaultTimeout},
		Telemetry:      TelemetryConfig{SampleRatio: 1},
	}
}

// ResolvePath picks the config file path from the flag value, then
// CLUSTERWATCH_CONFIG, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, applies env overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if hostname := os.Getenv(EnvHostname); hostname != "" {
		cfg.Hostname = hostname
	}
	if cfg.Hostname == "" {
		cfg.Hostname, _ = os.Hostname()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once, joined with errors.Join.
// Each joined error is an *Error.
func (c *Config) Validate() error {
	var errs []error
	add := func(id, field, format string, args ...any) {
		errs = append(errs, &Error{ProbeID: id, Field: field, Msg: fmt.Sprintf(format, args...)})
	}

	if c.Hostname == "" {
		add("", "hostname", "must not be empty")
	}
	if c.Interval <= 0 {
		add("", "interval", "must be positive, got %s", c.Interval)
	}
	if c.RoundTimeout < 0 {
		add("", "round_timeout", "must not be negative")
	}
	if c.DefaultTimeout <= 0 {
		add("", "default_timeout", "must be positive, got %s", c.DefaultTimeout)
	}
	if c.MaxConcurrent < 0 {
		add("", "max_concurrent", "must not be negative")
	}
	if _, err := watcher.ParseOverrunPolicy(c.OverrunPolicy); err != nil {
		add("", "overrun_policy", "%v", err)
	}
	if c.Notify.Timeout < 0 {
		add("", "notify.timeout", "must not be negative")
	}
	for i, ch := range c.Notify.Channels {
		if !slices.Contains(notify.ValidTypes, ch.Type) {
			add("", fmt.Sprintf("notify.channels[%d].type", i), "unknown channel type %q (valid: %v)", ch.Type, notify.ValidTypes)
		}
	}

	if !slices.Contains(observe.ValidExporters, c.Telemetry.MetricsExporter) {
		add("", "telemetry.metrics_exporter", "unknown exporter %q (none, stdout, otlp)", c.Telemetry.MetricsExporter)
	}
	if !slices.Contains(observe.ValidExporters, c.Telemetry.TracingExporter) {
		add("", "telemetry.tracing_exporter", "unknown exporter %q (none, stdout, otlp)", c.Telemetry.TracingExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		add("", "telemetry.sample_ratio", "must be between 0 and 1, got %g", c.Telemetry.SampleRatio)
	}

	if len(c.Probes) == 0 {
		add("", "probes", "no probes configured")
	}

	seen := make(map[string]bool)
	needSecret := false
	for i, p := range c.Probes {
		id := p.ID
		if id == "" {
			add(fmt.Sprintf("#%d", i+1), "id", "is required")
		} else if seen[id] {
			add(id, "id", "duplicate probe id")
		}
		seen[id] = true
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
		}

		for _, err := range validateProbe(p) {
			err.ProbeID = id
			errs = append(errs, err)
		}
		if probe.Domain(p.Domain) == probe.DomainProtocol && p.Kind == "radius" && p.SecretEnv == "" {
			needSecret = true
		}
	}
	if needSecret && c.Radius.SecretEnv == "" {
		add("", "radius.secret_env", "required by radius probes without their own secret_env")
	}

	return errors.Join(errs...)
}

func validateProbe(p ProbeConfig) []*Error {
	var errs []*Error
	add := func(field, format string, args ...any) {
		errs = append(errs, &Error{Field: field, Msg: fmt.Sprintf(format, args...)})
	}

	domain := probe.Domain(p.Domain)
	if !domain.Valid() {
		add("domain", "unknown domain %q (valid: %v)", p.Domain, probe.Domains)
		return errs
	}
	desc, ok := probes.Describe(domain, p.Kind)
	if !ok {
		add("kind", "unknown %s kind %q (valid: %v)", domain, p.Kind, probes.Kinds(domain))
		return errs
	}

	for _, arg := range slices.Sorted(maps.Keys(desc.Arguments.Required)) {
		if !hasArgument(p, arg) {
			add(arg, "is required for %s/%s", domain, p.Kind)
		}
	}

	if p.Timeout < 0 {
		add("timeout", "must not be negative")
	}
	if p.Port < 0 || p.Port > 65535 {
		add("port", "out of range: %d", p.Port)
	}
	switch p.Transport {
	case "", "tcp", "udp":
	default:
		add("transport", "must be tcp or udp, got %q", p.Transport)
	}

	t := p.Thresholds
	if t.Warn != nil && !desc.Arguments.Accepts("thresholds.warn") {
		add("thresholds.warn", "%s/%s does not read a number, use thresholds.expected", domain, p.Kind)
	}
	if t.Critical != nil && !desc.Arguments.Accepts("thresholds.critical") {
		add("thresholds.critical", "%s/%s does not read a number, use thresholds.expected", domain, p.Kind)
	}
	if domain == probe.DomainBackup && p.Target != "" {
		if _, err := filepath.Match(p.Target, ""); err != nil {
			add("target", "invalid glob %q: %v", p.Target, err)
		}
	}

	direction := probe.Direction(t.Direction)
	if direction == "" {
		direction = defaultDirection(domain)
	}
	switch direction {
	case probe.Above:
		if t.Warn != nil && t.Critical != nil && *t.Warn > *t.Critical {
			add("thresholds", "warn (%g) is above critical (%g)", *t.Warn, *t.Critical)
		}
	case probe.Below:
		if t.Warn != nil && t.Critical != nil && *t.Warn < *t.Critical {
			add("thresholds", "warn (%g) is below critical (%g)", *t.Warn, *t.Critical)
		}
	default:
		add("thresholds.direction", "must be above or below, got %q", t.Direction)
	}
	if t.MismatchSeverity != "" {
		sev, err := probe.ParseSeverity(t.MismatchSeverity)
		if err != nil || (sev != probe.SeverityWarning && sev != probe.SeverityCritical) {
			add("thresholds.mismatch_severity", "must be warning or critical, got %q", t.MismatchSeverity)
		}
	}
	return errs
}

func hasArgument(p ProbeConfig, arg string) bool {
	switch arg {
	case "target":
		return p.Target != ""
	case "host":
		return p.Host != ""
	case "port":
		return p.Port > 0
	case "url":
		return p.URL != ""
	case "payload":
		return p.Payload != ""
	case "thresholds.expected":
		return p.Thresholds.Expected != ""
	default:
		return true
	}
}

// Specs converts the probe entries into specs with per-domain defaults applied.
// The RADIUS secret is resolved from the environment here.
func (c *Config) Specs() []probe.Spec {
	specs := make([]probe.Spec, 0, len(c.Probes))
	for _, p := range c.Probes {
		spec := probe.Spec{
			ID:        p.ID,
			Domain:    probe.Domain(p.Domain),
			Kind:      p.Kind,
			Target:    p.Target,
			Host:      p.Host,
			Port:      p.Port,
			Transport: p.Transport,
			Handshake: p.Handshake,
			Payload:   p.Payload,
			URL:       p.URL,
			Timeout:   p.Timeout,
			Unit:      p.Unit,
			Thresholds: probe.Thresholds{
				Warn:      p.Thresholds.Warn,
				Critical:  p.Thresholds.Critical,
				Direction: probe.Direction(p.Thresholds.Direction),
				Expected:  p.Thresholds.Expected,
			},
		}
		if p.Thresholds.MismatchSeverity != "" {
			spec.Thresholds.MismatchSeverity, _ = probe.ParseSeverity(p.Thresholds.MismatchSeverity)
		}
		if spec.Timeout == 0 {
			spec.Timeout = c.DefaultTimeout
		}
		if spec.Domain == probe.DomainProtocol && spec.Kind == "radius" {
			env := p.SecretEnv
			if env == "" {
				env = c.Radius.SecretEnv
			}
			spec.Secret = os.Getenv(env)
			if spec.Secret == "" {
				slog.Warn("radius secret is empty", "probe", spec.ID, "env", env)
			}
		}
		applyDefaults(&spec)
		specs = append(specs, spec)
	}
	return specs
}

func applyDefaults(spec *probe.Spec) {
	t := &spec.Thresholds
	if t.Direction == "" {
		t.Direction = defaultDirection(spec.Domain)
	}

	switch spec.Domain {
	case probe.DomainResource:
		if spec.Unit == "" && spec.Kind != "load" {
			spec.Unit = "%"
		}
	case probe.DomainService, probe.DomainProtocol:
		if t.Expected == "" {
			t.Expected = "true"
		}
		if t.MismatchSeverity == probe.SeverityOK {
			t.MismatchSeverity = probe.SeverityCritical
		}
	case probe.DomainNetwork:
		if t.Expected == "" {
			t.Expected = "true"
		}
	case probe.DomainCluster:
		if t.Expected == "" {
			switch spec.Kind {
			case "state":
				t.Expected = "Synced"
			case "ready", "connected":
				t.Expected = "true"
			}
		}
	case probe.DomainCertificate:
		if spec.Unit == "" {
			spec.Unit = "days"
		}
		if !t.HasNumeric() {
			t.Warn, t.Critical = probe.Float(30), probe.Float(7)
		}
	case probe.DomainBackup:
		if spec.Unit == "" {
			spec.Unit = "hours"
		}
		if !t.HasNumeric() {
			t.Warn, t.Critical = probe.Float(backup.DefaultWarnHours), probe.Float(backup.DefaultCriticalHours)
		}
	}

	if t.HasExpected() && t.MismatchSeverity == probe.SeverityOK {
		t.MismatchSeverity = probe.SeverityWarning
	}
}

// defaultDirection is below for days-remaining style values.
func defaultDirection(domain probe.Domain) probe.Direction {
	if domain == probe.DomainCertificate {
		return probe.Below
	}
	return probe.Above
}
