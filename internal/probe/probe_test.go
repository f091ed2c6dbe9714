package probe

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSeverityOrder(t *testing.T) {
	if !(SeverityOK < SeverityUnknown && SeverityUnknown < SeverityWarning && SeverityWarning < SeverityCritical) {
		t.Fatal("severities are not ordered OK < Unknown < Warning < Critical")
	}
	if Max(SeverityWarning, SeverityUnknown) != SeverityWarning {
		t.Error("expected Max to pick warning")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"ok", SeverityOK},
		{"WARN", SeverityWarning},
		{" warning ", SeverityWarning},
		{"crit", SeverityCritical},
		{"unknown", SeverityUnknown},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if err != nil {
			t.Errorf("ParseSeverity(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestFindingJSON(t *testing.T) {
	data, err := json.Marshal(Finding{ProbeID: "cpu", Domain: DomainResource, Severity: SeverityCritical, Message: "cpu usage is 92%"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"probe_id":"cpu","domain":"resource","severity":"critical","message":"cpu usage is 92%"}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestOutcomeJSON(t *testing.T) {
	outcomes := []Outcome{
		Success(Number(42.5)),
		Success(Text("Synced")),
		Success(Bool(false)),
		Timeout(),
		Unreachable(errors.New("connection refused")),
		NotApplicable("no such mount"),
	}
	for _, o := range outcomes {
		data, err := json.Marshal(o)
		if err != nil {
			t.Fatalf("marshal %q: %v", o.Kind, err)
		}
		var got Outcome
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got.Kind != o.Kind || got.Value != o.Value || got.Detail() != o.Detail() {
			t.Errorf("round trip of %s: got %+v", data, got)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(3), "3"},
		{Number(0.25), "0.25"},
		{Text("Synced"), "Synced"},
		{Bool(true), "true"},
		{Value{}, ""},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
