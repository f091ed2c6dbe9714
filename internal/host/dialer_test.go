package host

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestDialerTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 64)
			n, _ := conn.Read(buf)
			conn.Write(buf[:n])
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	var d Dialer
	ok, err := d.Connect(context.Background(), "127.0.0.1", port, "tcp", nil, time.Second)
	if err != nil || !ok {
		t.Errorf("expected open port, got %v %v", ok, err)
	}
	ok, err = d.Connect(context.Background(), "127.0.0.1", port, "tcp", []byte("PING\r\n"), time.Second)
	if err != nil || !ok {
		t.Errorf("expected reply, got %v %v", ok, err)
	}

	ln.Close()
	ok, err = d.Connect(context.Background(), "127.0.0.1", port, "tcp", nil, time.Second)
	if err != nil || ok {
		t.Errorf("expected refused port to be closed without error, got %v %v", ok, err)
	}
}

func TestDialerUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	go func() {
		buf := make([]byte, 1500)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if string(buf[:n]) == "reply" {
				pc.WriteTo([]byte("ok"), addr)
			}
		}
	}()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	var d Dialer
	ok, err := d.Connect(context.Background(), "127.0.0.1", port, "udp", []byte("reply"), time.Second)
	if err != nil || !ok {
		t.Errorf("expected reply, got %v %v", ok, err)
	}

	start := time.Now()
	ok, err = d.Connect(context.Background(), "127.0.0.1", port, "udp", []byte("silent"), 200*time.Millisecond)
	if err != nil || ok {
		t.Errorf("expected no reply, got %v %v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected the read to stop at the timeout, took %v", elapsed)
	}
}

func TestDialerBadTransport(t *testing.T) {
	var d Dialer
	if _, err := d.Connect(context.Background(), "127.0.0.1", 1, "sctp", nil, time.Second); err == nil {
		t.Error("expected error for unsupported transport")
	}
}
