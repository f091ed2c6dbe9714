// Package cluster observes the replication state reported by a Galera cluster.
package cluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Status variable names reported by Galera.
const (
	KeySize      = "wsrep_cluster_size"
	KeyState     = "wsrep_local_state_comment"
	KeyReady     = "wsrep_ready"
	KeyConnected = "wsrep_connected"
)

// DefaultState is the expected local state of a healthy node.
const DefaultState = "Synced"

// StatusQuery returns the raw value of a cluster status variable.
type StatusQuery interface {
	GetStatus(ctx context.Context, key string) (string, error)
}

// Probe reads cluster status through a StatusQuery.
type Probe struct {
	query StatusQuery
}

// New creates a cluster probe. query may be nil when no cluster is configured.
func New(query StatusQuery) *Probe {
	return &Probe{query: query}
}

// Execute reads the status variable for spec.Kind, or spec.Target when set.
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	if p.query == nil {
		return probe.NotApplicable("no cluster connection configured")
	}

	key := spec.Target
	if key == "" {
		key = defaultKey(spec.Kind)
	}
	if key == "" {
		return probe.NotApplicable(fmt.Sprintf("unknown cluster kind %q", spec.Kind))
	}

	raw, err := p.query.GetStatus(ctx, key)
	if err != nil {
		return probe.Unreachable(fmt.Errorf("query %s: %w", key, err))
	}
	raw = strings.TrimSpace(raw)

	switch spec.Kind {
	case "size":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return probe.Unreachable(fmt.Errorf("parse %s %q: %w", key, raw, err))
		}
		return probe.Success(probe.Number(float64(n)))
	case "ready", "connected":
		return probe.Success(probe.Bool(strings.EqualFold(raw, "ON")))
	default:
		return probe.Success(probe.Text(raw))
	}
}

func defaultKey(kind string) string {
	switch kind {
	case "size":
		return KeySize
	case "state":
		return KeyState
	case "ready":
		return KeyReady
	case "connected":
		return KeyConnected
	default:
		return ""
	}
}

// Descriptions returns the cluster probe kinds.
func Descriptions() []probe.Description {
	return []probe.Description{
		{
			Domain:      probe.DomainCluster,
			Kind:        "size",
			Description: "Number of nodes joined to the cluster (" + KeySize + ")",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"thresholds.expected": {Type: "number", Description: "Expected node count"},
				},
				Optional: map[string]probe.ArgumentSpec{
					"thresholds.mismatch_severity": {Type: "string", Description: "Severity when the count differs", Default: "warning"},
					"thresholds.warn":              {Type: "number", Description: "Warn at or below this node count (direction below)"},
					"thresholds.critical":          {Type: "number", Description: "Critical at or below this node count (direction below)"},
				},
			},
		},
		{
			Domain:      probe.DomainCluster,
			Kind:        "state",
			Description: "Local node synchronisation state (" + KeyState + ")",
			Arguments: probe.Arguments{
				Optional: map[string]probe.ArgumentSpec{
					"thresholds.expected": {Type: "string", Description: "Expected state", Default: DefaultState},
				},
			},
		},
		{
			Domain:      probe.DomainCluster,
			Kind:        "ready",
			Description: "Whether the node accepts queries (" + KeyReady + ")",
		},
		{
			Domain:      probe.DomainCluster,
			Kind:        "connected",
			Description: "Whether the node is connected to the group (" + KeyConnected + ")",
		},
	}
}
