// Package protocol provides SIP, RADIUS and generic port liveness probes.
package protocol

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

// Default ports.
const (
	SIPPort    = 5060
	RADIUSPort = 1812
)

// PortProbe opens a connection and optionally waits for a reply to payload.
// It returns (false, nil) when the port refuses or does not answer in time,
// and an error only when the attempt itself fails.
type PortProbe interface {
	Connect(ctx context.Context, host string, port int, transport string, payload []byte, timeout time.Duration) (bool, error)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Probe runs protocol liveness checks.
type Probe struct {
	ports     PortProbe
	http      Doer
	localHost string
}

// New creates a protocol probe. A nil client uses a default *http.Client;
// the probe context bounds each request.
func New(ports PortProbe, client Doer) *Probe {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Probe{ports: ports, http: client, localHost: host}
}

// Execute dispatches on spec.Kind: sip, radius, tcp, udp or http.
func (p *Probe) Execute(ctx context.Context, spec probe.Spec) probe.Outcome {
	if spec.Kind == "http" {
		return p.checkHTTP(ctx, spec)
	}

	host := spec.Host
	if host == "" {
		host = spec.Target
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port := spec.Port
	transport := spec.Transport

	var payload []byte
	switch spec.Kind {
	case "sip":
		if port == 0 {
			port = SIPPort
		}
		if transport == "" {
			transport = "udp"
		}
		// A UDP connect proves nothing without a request.
		if spec.Handshake || transport == "udp" {
			payload = SIPOptions(host, port, transport, p.localHost)
		}
	case "radius":
		if port == 0 {
			port = RADIUSPort
		}
		transport = "udp"
		packet, err := StatusServer(spec.Secret)
		if err != nil {
			return probe.Unreachable(fmt.Errorf("build radius request: %w", err))
		}
		payload = packet
	case "tcp":
		transport = "tcp"
		if spec.Payload != "" {
			payload = []byte(spec.Payload)
		}
	case "udp":
		transport = "udp"
		payload = []byte(spec.Payload)
	default:
		return probe.NotApplicable(fmt.Sprintf("unknown protocol kind %q", spec.Kind))
	}
	if port == 0 {
		return probe.NotApplicable("port is not set")
	}

	ok, err := p.ports.Connect(ctx, host, port, transport, payload, probe.ReplyWindow(ctx, spec.Timeout))
	if err != nil {
		return probe.Unreachable(err)
	}
	return probe.Success(probe.Bool(ok))
}

func (p *Probe) checkHTTP(ctx context.Context, spec probe.Spec) probe.Outcome {
	if spec.URL == "" {
		return probe.NotApplicable("url is not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return probe.Unreachable(fmt.Errorf("create request: %w", err))
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return probe.Unreachable(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return probe.Success(probe.Bool(resp.StatusCode >= 200 && resp.StatusCode < 300))
}

// Descriptions returns the protocol probe kinds.
func Descriptions() []probe.Description {
	hostPort := func(defaultPort int) map[string]probe.ArgumentSpec {
		return map[string]probe.ArgumentSpec{
			"host": {Type: "string", Description: "Host to probe", Default: "127.0.0.1"},
			"port": {Type: "number", Description: "Port to probe", Default: defaultPort},
		}
	}
	sipArgs := hostPort(SIPPort)
	sipArgs["transport"] = probe.ArgumentSpec{Type: "string", Description: "Transport", Default: "udp", Enum: []string{"udp", "tcp"}}
	sipArgs["handshake"] = probe.ArgumentSpec{Type: "boolean", Description: "Send OPTIONS over TCP and wait for a reply", Default: false}
	radiusArgs := hostPort(RADIUSPort)
	radiusArgs["secret_env"] = probe.ArgumentSpec{Type: "string", Description: "Environment variable holding the shared secret"}

	return []probe.Description{
		{
			Domain:      probe.DomainProtocol,
			Kind:        "sip",
			Description: "SIP OPTIONS request; any reply within the timeout means the proxy is answering",
			Arguments:   probe.Arguments{Optional: sipArgs},
		},
		{
			Domain:      probe.DomainProtocol,
			Kind:        "radius",
			Description: "RADIUS Status-Server request (RFC 5997); any reply means the server is answering",
			Arguments:   probe.Arguments{Optional: radiusArgs},
		},
		{
			Domain:      probe.DomainProtocol,
			Kind:        "tcp",
			Description: "TCP connect, optionally sending payload and waiting for any reply",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{"port": {Type: "number", Description: "Port to probe"}},
				Optional: map[string]probe.ArgumentSpec{"payload": {Type: "string", Description: "Bytes to send after connecting"}},
			},
		},
		{
			Domain:      probe.DomainProtocol,
			Kind:        "udp",
			Description: "Send a UDP datagram and wait for any reply",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{
					"port":    {Type: "number", Description: "Port to probe"},
					"payload": {Type: "string", Description: "Datagram contents"},
				},
			},
		},
		{
			Domain:      probe.DomainProtocol,
			Kind:        "http",
			Description: "HTTP GET; a 2xx status means healthy (Prometheus, Grafana, Alertmanager endpoints)",
			Arguments: probe.Arguments{
				Required: map[string]probe.ArgumentSpec{"url": {Type: "string", Description: "Endpoint URL"}},
			},
		},
	}
}
