package host

import (
	"context"
	"errors"
	"testing"
)

func fakeRunner(results map[string]CommandResult, err error) Runner {
	return func(ctx context.Context, name string, args ...string) (CommandResult, error) {
		if err != nil {
			return CommandResult{}, err
		}
		key := name
		for _, a := range args {
			key += " " + a
		}
		return results[key], nil
	}
}

func TestSystemd(t *testing.T) {
	s := NewSystemd(fakeRunner(map[string]CommandResult{
		"systemctl is-active -- kamailio":   {Stdout: "active\n"},
		"systemctl is-active -- rtpengine":  {ExitCode: 3, Stdout: "inactive\n"},
		"systemctl is-enabled -- kamailio":  {Stdout: "enabled\n"},
		"systemctl is-enabled -- rtpengine": {ExitCode: 1, Stdout: "disabled\n"},
		"systemctl is-active -- broken":     {ExitCode: 4, Stderr: "Failed to connect to bus\n"},
	}, nil))
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(context.Context, string) (bool, error)
		unit string
		want bool
	}{
		{"active", s.IsActive, "kamailio", true},
		{"inactive", s.IsActive, "rtpengine", false},
		{"enabled", s.IsEnabled, "kamailio", true},
		{"disabled", s.IsEnabled, "rtpengine", false},
	}
	for _, tt := range tests {
		got, err := tt.fn(ctx, tt.unit)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if _, err := s.IsActive(ctx, "broken"); err == nil {
		t.Error("expected error when systemctl prints nothing")
	}
}

func TestSystemdRunnerError(t *testing.T) {
	s := NewSystemd(fakeRunner(nil, errors.New("executable file not found")))
	if _, err := s.IsActive(context.Background(), "kamailio"); err == nil {
		t.Error("expected error")
	}
}

func TestRunExitCode(t *testing.T) {
	res, err := Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 || res.Stdout != "out\n" || res.Stderr != "err\n" {
		t.Errorf("unexpected result %+v", res)
	}

	if _, err := Run(context.Background(), "/nonexistent/binary"); err == nil {
		t.Error("expected error for missing binary")
	}
}
