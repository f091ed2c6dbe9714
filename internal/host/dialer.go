package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// Dialer implements port and protocol liveness checks over TCP and UDP.
type Dialer struct{}

// Connect opens host:port over transport. With a payload it sends it and
// waits for any reply. Refused connections and missing replies are reported
// as (false, nil); resolution and other network errors are returned.
func (Dialer) Connect(ctx context.Context, host string, port int, transport string, payload []byte, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	if transport == "" {
		transport = "tcp"
	}
	if transport != "tcp" && transport != "udp" {
		return false, fmt.Errorf("unsupported transport %q", transport)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Deadline: deadline}
	conn, err := d.DialContext(ctx, transport, addr)
	if err != nil {
		if isRefused(err) || isTimeout(err) {
			return false, nil
		}
		return false, fmt.Errorf("dial %s/%s: %w", addr, transport, err)
	}
	defer conn.Close()

	if len(payload) == 0 {
		return true, nil
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return false, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		if isRefused(err) {
			return false, nil
		}
		return false, fmt.Errorf("write %s/%s: %w", addr, transport, err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if n > 0 {
		return true, nil
	}
	if err == nil || errors.Is(err, io.EOF) || isRefused(err) || isTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return false, nil
	}
	return false, fmt.Errorf("read %s/%s: %w", addr, transport, err)
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
