package protocol

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jandubois/clusterwatch/internal/probe"
)

type recordingPorts struct {
	host      string
	port      int
	transport string
	payload   []byte
	open      bool
}

func (r *recordingPorts) Connect(ctx context.Context, host string, port int, transport string, payload []byte, timeout time.Duration) (bool, error) {
	r.host, r.port, r.transport, r.payload = host, port, transport, payload
	return r.open, nil
}

func TestSIPDefaults(t *testing.T) {
	ports := &recordingPorts{open: true}
	p := New(ports, nil)

	out := p.Execute(context.Background(), probe.Spec{Kind: "sip", Host: "10.0.0.5"})
	if b, ok := out.Value.Bool(); !ok || !b {
		t.Fatalf("expected true, got %v (%s)", out.Value, out.Detail())
	}
	if ports.port != SIPPort || ports.transport != "udp" {
		t.Errorf("expected %d/udp, got %d/%s", SIPPort, ports.port, ports.transport)
	}
	if !bytes.HasPrefix(ports.payload, []byte("OPTIONS sip:10.0.0.5:5060 SIP/2.0\r\n")) {
		t.Errorf("unexpected payload: %q", ports.payload)
	}
}

func TestSIPTCPWithoutHandshake(t *testing.T) {
	ports := &recordingPorts{open: true}
	New(ports, nil).Execute(context.Background(), probe.Spec{Kind: "sip", Transport: "tcp", Port: 5080})
	if ports.payload != nil {
		t.Errorf("expected plain connect, got payload %q", ports.payload)
	}
	if ports.port != 5080 || ports.host != "127.0.0.1" {
		t.Errorf("unexpected target %s:%d", ports.host, ports.port)
	}
}

func TestSIPOptionsHeaders(t *testing.T) {
	msg := string(SIPOptions("proxy.example", 5060, "udp", "node1"))
	for _, want := range []string{
		"Via: SIP/2.0/UDP node1;branch=z9hG4bK-",
		"CSeq: 1 OPTIONS\r\n",
		"Max-Forwards: 70\r\n",
		"Content-Length: 0\r\n\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}
	if SIPOptions("a", 1, "udp", "b") == nil {
		t.Fatal("expected payload")
	}
	if string(SIPOptions("a", 1, "udp", "b")) == string(SIPOptions("a", 1, "udp", "b")) {
		t.Error("expected a fresh Call-ID per request")
	}
}

func TestStatusServer(t *testing.T) {
	packet, err := StatusServer("testing123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if packet[0] != radiusCodeStatusServer {
		t.Errorf("expected code %d, got %d", radiusCodeStatusServer, packet[0])
	}
	if int(binary.BigEndian.Uint16(packet[2:4])) != len(packet) {
		t.Errorf("length field does not match packet size %d", len(packet))
	}
	if packet[20] != radiusAttrMessageAuthenticator || packet[21] != radiusMessageAuthLen {
		t.Errorf("unexpected attribute header %v", packet[20:22])
	}

	check := make([]byte, len(packet))
	copy(check, packet)
	for i := 22; i < len(check); i++ {
		check[i] = 0
	}
	mac := hmac.New(md5.New, []byte("testing123"))
	mac.Write(check)
	if !hmac.Equal(mac.Sum(nil), packet[22:]) {
		t.Error("message authenticator does not verify")
	}
}

func TestRADIUSDefaults(t *testing.T) {
	ports := &recordingPorts{}
	out := New(ports, nil).Execute(context.Background(), probe.Spec{Kind: "radius", Secret: "s"})
	if b, ok := out.Value.Bool(); !ok || b {
		t.Errorf("expected false, got %v", out.Value)
	}
	if ports.port != RADIUSPort || ports.transport != "udp" || len(ports.payload) != 38 {
		t.Errorf("unexpected request %d/%s len %d", ports.port, ports.transport, len(ports.payload))
	}
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/-/healthy" {
			w.Write([]byte("ok"))
			return
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(nil, srv.Client())
	tests := []struct {
		url  string
		want bool
	}{
		{srv.URL + "/-/healthy", true},
		{srv.URL + "/-/ready", false},
	}
	for _, tt := range tests {
		out := p.Execute(context.Background(), probe.Spec{Kind: "http", URL: tt.url})
		if b, ok := out.Value.Bool(); !ok || b != tt.want {
			t.Errorf("%s: expected %v, got %v (%s)", tt.url, tt.want, out.Value, out.Detail())
		}
	}
}

func TestHTTPUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := New(nil, nil).Execute(context.Background(), probe.Spec{Kind: "http", URL: url})
	if out.Kind != probe.OutcomeUnreachable {
		t.Errorf("expected unreachable, got %q", out.Kind)
	}
}
