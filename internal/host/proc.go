// Package host implements the probe back ends against the local operating system.
package host

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/jandubois/clusterwatch/internal/probes/resource"
)

// DefaultCPUSample is the interval between the two /proc/stat samples.
const DefaultCPUSample = 250 * time.Millisecond

// virtualFS lists filesystem types that never count as real disks.
var virtualFS = map[string]bool{
	"autofs": true, "binfmt_misc": true, "bpf": true, "cgroup": true, "cgroup2": true,
	"configfs": true, "debugfs": true, "devpts": true, "devtmpfs": true, "efivarfs": true,
	"fuse.gvfsd-fuse": true, "fusectl": true, "hugetlbfs": true, "mqueue": true,
	"nsfs": true, "overlay": true, "proc": true, "pstore": true, "ramfs": true,
	"rpc_pipefs": true, "securityfs": true, "squashfs": true, "sysfs": true,
	"tmpfs": true, "tracefs": true,
}

// ProcReader reads resource metrics from procfs and statfs.
type ProcReader struct {
	fs        procfs.FS
	CPUSample time.Duration
}

// NewProcReader opens procfs at root ("" means /proc).
func NewProcReader(root string) (*ProcReader, error) {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", root, err)
	}
	return &ProcReader{fs: fs, CPUSample: DefaultCPUSample}, nil
}

// ReadMetric implements resource.Reader.
func (r *ProcReader) ReadMetric(ctx context.Context, kind, target string) (float64, error) {
	switch kind {
	case "cpu":
		return r.cpuPercent(ctx)
	case "memory":
		return r.memoryPercent()
	case "load":
		avg, err := r.fs.LoadAvg()
		if err != nil {
			return 0, fmt.Errorf("read loadavg: %w", err)
		}
		return avg.Load1, nil
	case "disk":
		return DiskUsedPercent(target)
	default:
		return 0, fmt.Errorf("metric %s: %w", kind, resource.ErrNotFound)
	}
}

func (r *ProcReader) cpuPercent(ctx context.Context) (float64, error) {
	before, err := r.fs.Stat()
	if err != nil {
		return 0, fmt.Errorf("read stat: %w", err)
	}

	timer := time.NewTimer(r.CPUSample)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	after, err := r.fs.Stat()
	if err != nil {
		return 0, fmt.Errorf("read stat: %w", err)
	}
	return busyPercent(before.CPUTotal, after.CPUTotal), nil
}

func busyPercent(a, b procfs.CPUStat) float64 {
	idle := (b.Idle + b.Iowait) - (a.Idle + a.Iowait)
	total := cpuTotal(b) - cpuTotal(a)
	if total <= 0 {
		return 0
	}
	return (total - idle) / total * 100
}

func cpuTotal(s procfs.CPUStat) float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
}

func (r *ProcReader) memoryPercent() (float64, error) {
	info, err := r.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}
	if info.MemTotal == nil || info.MemAvailable == nil || *info.MemTotal == 0 {
		return 0, fmt.Errorf("meminfo lacks MemTotal or MemAvailable")
	}
	total := float64(*info.MemTotal)
	return (total - float64(*info.MemAvailable)) / total * 100, nil
}

// DiskUsedPercent returns the used share of the filesystem mounted at path,
// counting reserved blocks as used the way df does.
func DiskUsedPercent(path string) (float64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("mount %s: %w", path, resource.ErrNotFound)
		}
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	used := stat.Blocks - stat.Bfree
	avail := used + stat.Bavail
	if avail == 0 {
		return 0, nil
	}
	return float64(used) / float64(avail) * 100, nil
}

// Mounts implements resource.MountLister. It returns every distinct mount
// point backed by a real filesystem, in mount table order.
func (r *ProcReader) Mounts(ctx context.Context) ([]string, error) {
	self, err := r.fs.Self()
	if err != nil {
		return nil, fmt.Errorf("open self: %w", err)
	}
	infos, err := self.MountInfo()
	if err != nil {
		return nil, fmt.Errorf("read mountinfo: %w", err)
	}

	seen := make(map[string]bool)
	var mounts []string
	for _, m := range infos {
		if virtualFS[m.FSType] || strings.HasPrefix(m.MountPoint, "/snap/") {
			continue
		}
		point := unescapeMount(m.MountPoint)
		if seen[point] {
			continue
		}
		seen[point] = true
		mounts = append(mounts, point)
	}
	return mounts, nil
}

// unescapeMount decodes the octal escapes (\040 for space) used in mount tables.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			b.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }
