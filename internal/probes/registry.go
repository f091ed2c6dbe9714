// Package probes provides the built-in prober registry.
package probes

import (
	"context"
	"fmt"
	"sync"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/probes/backup"
	"github.com/jandubois/clusterwatch/internal/probes/certificate"
	"github.com/jandubois/clusterwatch/internal/probes/cluster"
	"github.com/jandubois/clusterwatch/internal/probes/network"
	"github.com/jandubois/clusterwatch/internal/probes/protocol"
	"github.com/jandubois/clusterwatch/internal/probes/resource"
	"github.com/jandubois/clusterwatch/internal/probes/service"
)

// Prober executes one spec against an external system.
// Implementations must be safe for concurrent use and must not return
// until ctx is done or the check is complete.
type Prober interface {
	Execute(ctx context.Context, spec probe.Spec) probe.Outcome
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, spec probe.Spec) probe.Outcome

func (f ProberFunc) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	return f(ctx, spec)
}

// Registry dispatches specs to the prober registered for their domain.
type Registry struct {
	mu      sync.RWMutex
	probers map[probe.Domain]Prober
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{probers: make(map[probe.Domain]Prober)}
}

// Register sets the prober for a domain, replacing any previous one.
func (r *Registry) Register(domain probe.Domain, p Prober) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probers[domain] = p
}

// Has reports whether a prober is registered for domain.
func (r *Registry) Has(domain probe.Domain) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.probers[domain]
	return ok
}

// Execute runs spec on the prober for its domain.
func (r *Registry) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	r.mu.RLock()
	p, ok := r.probers[spec.Domain]
	r.mu.RUnlock()

	if !ok {
		return probe.NotApplicable(fmt.Sprintf("no prober registered for domain %q", spec.Domain))
	}
	return p.Execute(ctx, spec)
}

// GetAllDescriptions returns descriptions of all built-in probe kinds.
func GetAllDescriptions() []probe.Description {
	var descs []probe.Description
	descs = append(descs, resource.Descriptions()...)
	descs = append(descs, service.Descriptions()...)
	descs = append(descs, network.Descriptions()...)
	descs = append(descs, cluster.Descriptions()...)
	descs = append(descs, protocol.Descriptions()...)
	descs = append(descs, certificate.Descriptions()...)
	descs = append(descs, backup.Descriptions()...)
	return descs
}

// Kinds returns the valid kinds for a domain.
func Kinds(domain probe.Domain) []string {
	var kinds []string
	for _, d := range GetAllDescriptions() {
		if d.Domain == domain {
			kinds = append(kinds, d.Kind)
		}
	}
	return kinds
}

// Describe returns the description of one probe kind.
func Describe(domain probe.Domain, kind string) (probe.Description, bool) {
	for _, d := range GetAllDescriptions() {
		if d.Domain == domain && d.Kind == kind {
			return d, true
		}
	}
	return probe.Description{}, false
}
