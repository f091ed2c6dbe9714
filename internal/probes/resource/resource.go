// Package resource provides the host resource probe (cpu, memory, disk, load).
package resource

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// AllMounts as a disk target expands to one spec per real mounted filesystem.
const AllMounts = "*"

// ErrNotFound is wrapped by readers when the requested metric or mount does not exist.
var ErrNotFound = errors.New("resource: not found")

// Reader reads a current metric value from the host.
// Percentages are returned in the range 0-100.
type Reader interface {
	ReadMetric(ctx context.Context, kind, target string) (float64, error)
}

// MountLister enumerates real (non-virtual) mounted filesystems.
type MountLister interface {
	Mounts(ctx context.Context) ([]string, error)
}

// Probe reads resource metrics through a Reader.
type Probe struct {
	reader Reader
}

// New creates a resource probe.
func New(reader Reader) *Probe {
	return &Probe{reader: reader}
}

// Execute reads the metric named by spec.Kind.
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	switch spec.Kind {
	case "cpu", "memory", "load":
	case "disk":
		if spec.Target == "" || spec.Target == AllMounts {
			return probe.NotApplicable("disk target must be expanded to a mount point")
		}
	default:
		return probe.NotApplicable(fmt.Sprintf("unknown resource kind %q", spec.Kind))
	}

	value, err := p.reader.ReadMetric(ctx, spec.Kind, spec.Target)
	if errors.Is(err, ErrNotFound) {
		return probe.NotApplicable(err.Error())
	}
	if err != nil {
		return probe.Unreachable(fmt.Errorf("read %s: %w", spec.Kind, err))
	}
	return probe.Success(probe.Number(math.Round(value*100) / 100))
}

// NeedsExpansion reports whether spec is a disk probe over all mounts.
func NeedsExpansion(spec probe.Spec) bool {
	return spec.Domain == probe.DomainResource && spec.Kind == "disk" &&
		(spec.Target == "" || spec.Target == AllMounts)
}

// ExpandMounts turns a wildcard disk spec into one spec per discovered mount.
// Expanded ids are "<id>:<mountpoint>".
func ExpandMounts(ctx context.Context, lister MountLister, spec probe.Spec) ([]probe.Spec, error) {
	mounts, err := lister.Mounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mounts: %w", err)
	}
	if len(mounts) == 0 {
		return nil, fmt.Errorf("list mounts: no real filesystems found")
	}

	specs := make([]probe.Spec, 0, len(mounts))
	for _, mount := range mounts {
		s := spec
		s.ID = spec.ID + ":" + mount
		s.Target = mount
		specs = append(specs, s)
	}
	return specs, nil
}

// Descriptions returns the resource probe kinds.
func Descriptions() []probe.Description {
	thresholds := map[string]probe.ArgumentSpec{
		"thresholds.warn":     {Type: "number", Description: "Warn at or above this percentage"},
		"thresholds.critical": {Type: "number", Description: "Critical at or above this percentage"},
	}
	return []probe.Description{
		{
			Domain:      probe.DomainResource,
			Kind:        "cpu",
			Description: "CPU utilisation percentage sampled over a short interval",
			Arguments:   probe.Arguments{Optional: thresholds},
		},
		{
			Domain:      probe.DomainResource,
			Kind:        "memory",
			Description: "Memory in use as a percentage of total (MemTotal - MemAvailable)",
			Arguments:   probe.Arguments{Optional: thresholds},
		},
		{
			Domain:      probe.DomainResource,
			Kind:        "disk",
			Description: "Disk usage percentage per mount; target * expands to every real filesystem each round",
			Arguments: probe.Arguments{
				Optional: map[string]probe.ArgumentSpec{
					"target":              {Type: "string", Description: "Mount point", Default: AllMounts},
					"thresholds.warn":     {Type: "number", Description: "Warn at or above this percentage"},
					"thresholds.critical": {Type: "number", Description: "Critical at or above this percentage"},
				},
			},
		},
		{
			Domain:      probe.DomainResource,
			Kind:        "load",
			Description: "One-minute load average",
			Arguments:   probe.Arguments{Optional: thresholds},
		},
	}
}
