// Package service provides the service liveness probe.
package service

import (
	"context"
	"fmt"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// StatusQuery asks the service manager about a unit.
// A stopped service is (false, nil); an error means the manager could not be queried.
type StatusQuery interface {
	IsActive(ctx context.Context, name string) (bool, error)
	IsEnabled(ctx context.Context, name string) (bool, error)
}

// Probe checks service state through a StatusQuery.
type Probe struct {
	query StatusQuery
}

// New creates a service probe.
func New(query StatusQuery) *Probe {
	return &Probe{query: query}
}

// Execute reports whether spec.Target is active (kind "active") or enabled (kind "enabled").
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	if spec.Target == "" {
		return probe.NotApplicable("service name is empty")
	}

	var (
		ok  bool
		err error
	)
	switch spec.Kind {
	case "", "active":
		ok, err = p.query.IsActive(ctx, spec.Target)
	case "enabled":
		ok, err = p.query.IsEnabled(ctx, spec.Target)
	default:
		return probe.NotApplicable(fmt.Sprintf("unknown service kind %q", spec.Kind))
	}
	if err != nil {
		return probe.Unreachable(fmt.Errorf("query service %s: %w", spec.Target, err))
	}
	return probe.Success(probe.Bool(ok))
}

// Descriptions returns the service probe kinds.
func Descriptions() []probe.Description {
	required := map[string]probe.ArgumentSpec{
		"target": {Type: "string", Description: "Unit name, e.g. kamailio"},
	}
	optional := map[string]probe.ArgumentSpec{
		"thresholds.expected":          {Type: "boolean", Description: "Expected state", Default: true},
		"thresholds.mismatch_severity": {Type: "string", Description: "Severity when the state differs", Default: "critical", Enum: []string{"warning", "critical"}},
	}
	return []probe.Description{
		{
			Domain:      probe.DomainService,
			Kind:        "active",
			Description: "Whether the service manager reports the unit as active",
			Arguments:   probe.Arguments{Required: required, Optional: optional},
		},
		{
			Domain:      probe.DomainService,
			Kind:        "enabled",
			Description: "Whether the unit is enabled to start at boot",
			Arguments:   probe.Arguments{Required: required, Optional: optional},
		},
	}
}
