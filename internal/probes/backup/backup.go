// Package backup reports the age of the newest file matching a glob, such as
// the latest database dump or configuration archive.
package backup

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Default age thresholds in hours. A nightly dump is expected within a day.
const (
	DefaultWarnHours     = 24
	DefaultCriticalHours = 48
)

// Probe inspects backup files on the local filesystem.
type Probe struct {
	now func() time.Time
}

// New creates a backup probe.
func New() *Probe {
	return &Probe{now: time.Now}
}

// Execute returns the age in hours of the most recently modified regular
// file matching spec.Target. No match yields NotApplicable.
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	if spec.Target == "" {
		return probe.NotApplicable("backup pattern is empty")
	}
	matches, err := filepath.Glob(spec.Target)
	if err != nil {
		return probe.Unreachable(fmt.Errorf("match %s: %w", spec.Target, err))
	}

	var newest time.Time
	for _, path := range matches {
		if ctx.Err() != nil {
			return probe.Unreachable(ctx.Err())
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if newest.IsZero() {
		return probe.NotApplicable(fmt.Sprintf("no backup matches %s", spec.Target))
	}

	hours := p.now().Sub(newest).Hours()
	return probe.Success(probe.Number(math.Round(hours*100) / 100))
}

// Descriptions returns the backup probe kinds.
func Descriptions() []probe.Description {
	return []probe.Description{
		{
			Domain:      probe.DomainBackup,
			Kind:        "age",
			Description: "Hours since the newest file matching a glob was written (database dumps, config archives)",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"target": {Type: "string", Description: "Glob, e.g. /var/backups/mysql/full_backup_*.sql.gz"},
				},
				Optional: map[string]probe.ArgumentSpec{
					"thresholds.warn":     {Type: "number", Description: "Warn when older than this many hours", Default: DefaultWarnHours},
					"thresholds.critical": {Type: "number", Description: "Critical when older than this many hours", Default: DefaultCriticalHours},
				},
			},
		},
	}
}
