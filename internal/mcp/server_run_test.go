package mcp

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/a3tai/pdfa-convert/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Run_InvalidMode(t *testing.T) {
	server, _ := newTestServer(t)
	server.config.Mode = "invalid"

	err := server.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unsupported mode") {
		t.Errorf("Run() error = %v, want unsupported mode", err)
	}
}

func TestServer_Run_StdioMode(t *testing.T) {
	server, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && !strings.Contains(err.Error(), "context") {
			t.Errorf("Run() unexpected non-context error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the context was canceled")
	}
}

func TestServer_Run_ServerMode(t *testing.T) {
	server, _ := newTestServer(t)
	server.config.Mode = config.ModeServer
	server.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	addr := server.config.Address()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server did not start listening on %s: %v", addr, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error after shutdown = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the context was canceled")
	}
}
