// Package network provides VIP assignment, peer reachability and port checks.
package network

import (
	"context"
	"fmt"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Checker inspects local addresses and peer reachability.
type Checker interface {
	HasLocalAddress(ctx context.Context, ip string) (bool, error)
	Reachable(ctx context.Context, host string, timeout time.Duration) (bool, error)
}

// PortDialer opens a connection to host:port. A refused connection is (false, nil).
type PortDialer interface {
	Connect(ctx context.Context, host string, port int, transport string, payload []byte, timeout time.Duration) (bool, error)
}

// Probe runs network checks.
type Probe struct {
	checker Checker
	dialer  PortDialer
}

// New creates a network probe.
func New(checker Checker, dialer PortDialer) *Probe {
	return &Probe{checker: checker, dialer: dialer}
}

// Execute dispatches on spec.Kind: "vip", "peer" or "port".
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	switch spec.Kind {
	case "vip":
		if spec.Target == "" {
			return probe.NotApplicable("vip address is empty")
		}
		ok, err := p.checker.HasLocalAddress(ctx, spec.Target)
		if err != nil {
			return probe.Unreachable(fmt.Errorf("list local addresses: %w", err))
		}
		return probe.Success(probe.Bool(ok))

	case "peer":
		if spec.Target == "" {
			return probe.NotApplicable("peer host is empty")
		}
		ok, err := p.checker.Reachable(ctx, spec.Target, probe.ReplyWindow(ctx, spec.Timeout))
		if err != nil {
			return probe.Unreachable(fmt.Errorf("ping %s: %w", spec.Target, err))
		}
		return probe.Success(probe.Bool(ok))

	case "port":
		host := spec.Host
		if host == "" {
			host = spec.Target
		}
		if host == "" {
			host = "127.0.0.1"
		}
		transport := spec.Transport
		if transport == "" {
			transport = "tcp"
		}
		ok, err := p.dialer.Connect(ctx, host, spec.Port, transport, nil, probe.ReplyWindow(ctx, spec.Timeout))
		if err != nil {
			return probe.Unreachable(err)
		}
		return probe.Success(probe.Bool(ok))

	default:
		return probe.NotApplicable(fmt.Sprintf("unknown network kind %q", spec.Kind))
	}
}

// Descriptions returns the network probe kinds.
func Descriptions() []probe.Description {
	return []probe.Description{
		{
			Domain:      probe.DomainNetwork,
			Kind:        "vip",
			Description: "Whether a local interface currently holds the virtual IP",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"target": {Type: "string", Description: "Virtual IP address"},
				},
				Optional: map[string]probe.ArgumentSpec{
					"thresholds.expected": {Type: "boolean", Description: "Whether this node should hold the VIP"},
				},
			},
		},
		{
			Domain:      probe.DomainNetwork,
			Kind:        "peer",
			Description: "Single ICMP echo to a peer node within the probe timeout",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"target": {Type: "string", Description: "Peer hostname or address"},
				},
			},
		},
		{
			Domain:      probe.DomainNetwork,
			Kind:        "port",
			Description: "Whether a TCP port accepts connections",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"port": {Type: "number", Description: "Port number"},
				},
				Optional: map[string]probe.ArgumentSpec{
					"host": {Type: "string", Description: "Host to connect to", Default: "127.0.0.1"},
				},
			},
		},
	}
}
