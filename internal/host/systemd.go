package host

import (
	"context"
	"fmt"
	"strings"
)

// Systemd answers service.StatusQuery through systemctl.
type Systemd struct {
	run Runner
}

// NewSystemd creates a systemctl client. A nil runner uses Run.
func NewSystemd(run Runner) *Systemd {
	if run == nil {
		run = Run
	}
	return &Systemd{run: run}
}

// IsActive reports whether the unit is in the "active" state.
func (s *Systemd) IsActive(ctx context.Context, name string) (bool, error) {
	state, err := s.query(ctx, "is-active", name)
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

// IsEnabled reports whether the unit starts at boot.
func (s *Systemd) IsEnabled(ctx context.Context, name string) (bool, error) {
	state, err := s.query(ctx, "is-enabled", name)
	if err != nil {
		return false, err
	}
	switch state {
	case "enabled", "enabled-runtime", "static", "alias":
		return true, nil
	default:
		return false, nil
	}
}

// query returns the first line systemctl prints. systemctl exits non-zero for
// inactive or disabled units, so only missing output counts as a failure.
func (s *Systemd) query(ctx context.Context, verb, name string) (string, error) {
	res, err := s.run(ctx, "systemctl", verb, "--", name)
	if err != nil {
		return "", err
	}
	state, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	if state == "" {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return "", fmt.Errorf("systemctl %s %s: %s", verb, name, msg)
	}
	return state, nil
}
