package metricsrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestServer_NoAddr(t *testing.T) {
	s := New(Config{})
	if err := s.OnStart(context.Background()); !errors.Is(err, ErrNoAddr) {
		t.Fatalf("OnStart() error = %v, want ErrNoAddr", err)
	}
}

func TestServer_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "demo_total"})
	reg.MustRegister(c)
	c.Inc()

	addr := freeAddr(t)
	s := New(Config{Addr: addr, Gatherer: reg})
	if err := s.OnStart(context.Background()); err != nil {
		t.Fatalf("OnStart() error = %v", err)
	}
	defer s.OnStop(context.Background())

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if want := "demo_total 1"; !strings.Contains(string(body), want) {
		t.Errorf("body missing %q", want)
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	s := New(Config{Addr: ":0"})
	if err := s.OnStop(context.Background()); err != nil {
		t.Fatalf("OnStop() without start error = %v", err)
	}
}
