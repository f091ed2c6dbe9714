package host

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"
)

// Network answers network.Checker from the local interface table and ping.
type Network struct {
	run   Runner
	addrs func() ([]net.Addr, error)
}

// NewNetwork creates a network checker. A nil runner uses Run.
func NewNetwork(run Runner) *Network {
	if run == nil {
		run = Run
	}
	return &Network{run: run, addrs: net.InterfaceAddrs}
}

// HasLocalAddress reports whether ip is assigned to any local interface.
func (n *Network) HasLocalAddress(ctx context.Context, ip string) (bool, error) {
	want := net.ParseIP(ip)
	if want == nil {
		return false, fmt.Errorf("invalid address %q", ip)
	}
	addrs, err := n.addrs()
	if err != nil {
		return false, err
	}
	for _, a := range addrs {
		var got net.IP
		switch v := a.(type) {
		case *net.IPNet:
			got = v.IP
		case *net.IPAddr:
			got = v.IP
		}
		if got != nil && got.Equal(want) {
			return true, nil
		}
	}
	return false, nil
}

// Reachable sends a single ICMP echo. ping exits 1 when no reply arrives and
// 2 on other errors such as an unresolvable host. ping -W takes whole seconds,
// so timeout is rounded down with a floor of one second; callers pass a
// window shorter than their own deadline, and budgets under two seconds
// still end as a timeout rather than a negative reading.
func (n *Network) Reachable(ctx context.Context, host string, timeout time.Duration) (bool, error) {
	wait := int(math.Floor(timeout.Seconds()))
	if wait < 1 {
		wait = 1
	}
	res, err := n.run(ctx, "ping", "-n", "-c", "1", "-W", strconv.Itoa(wait), host)
	if err != nil {
		return false, err
	}
	switch res.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, fmt.Errorf("ping exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
