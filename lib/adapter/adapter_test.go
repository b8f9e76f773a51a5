package adapter

import (
	"context"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"watchout/lib/watchout"
)

var quietLogger = log.New(io.Discard, "", 0)

type logEntry struct {
	level LogLevel
	msg   string
}

type fakeHost struct {
	statuses chan StatusLevel

	mu   sync.Mutex
	logs []logEntry
}

func newFakeHost() *fakeHost {
	return &fakeHost{statuses: make(chan StatusLevel, 64)}
}

func (h *fakeHost) Status(level StatusLevel, message string) {
	h.statuses <- level
}

func (h *fakeHost) Log(level LogLevel, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = append(h.logs, logEntry{level, message})
}

func (h *fakeHost) errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.logs {
		if e.level == LogError {
			out = append(out, e.msg)
		}
	}
	return out
}

func (h *fakeHost) waitStatus(t *testing.T, want StatusLevel) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-h.statuses:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timeout waiting for status %s", want)
		}
	}
}

type redirectDialer struct {
	target string

	mu    sync.Mutex
	addrs []string
}

func (d *redirectDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d.mu.Lock()
	d.addrs = append(d.addrs, addr)
	d.mu.Unlock()
	var nd net.Dialer
	return nd.DialContext(ctx, network, d.target)
}

func (d *redirectDialer) attempts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}

func setupTest(t *testing.T, cfg watchout.Config) (*watchout.MockServer, *redirectDialer, *fakeHost, *Adapter) {
	t.Helper()
	mock, err := watchout.NewMockServer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	dialer := &redirectDialer{target: mock.Addr()}
	host := newFakeHost()
	a := New(cfg, host,
		WithID("test-instance"),
		WithLogger(quietLogger),
		WithManagerOptions(watchout.WithDialer(dialer)))
	t.Cleanup(a.Destroy)
	return mock, dialer, host, a
}

func TestAdapterSendsActions(t *testing.T) {
	mock, _, host, a := setupTest(t, watchout.Config{Host: "10.0.0.2"})
	host.waitStatus(t, StatusOK)

	if a.ID() != "test-instance" {
		t.Errorf("got id %q", a.ID())
	}
	if err := a.Action(ActionRun, Options{"timeline": "Main"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Action(ActionStandby, nil); err != nil {
		t.Fatal(err)
	}
	if err := a.Do(watchout.SetLayerConditions{Conditions: [30]bool{true, true}}); err != nil {
		t.Fatal(err)
	}

	lines := mock.WaitLines(3, 2*time.Second)
	want := []string{`run "Main"`, "standBy true 1000", "enableLayerCond 3"}
	if len(lines) != len(want) {
		t.Fatalf("got %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestAdapterLogsMissingParameter(t *testing.T) {
	mock, _, host, a := setupTest(t, watchout.Config{Host: "10.0.0.2"})
	host.waitStatus(t, StatusOK)

	if err := a.Action(ActionKill, Options{"timeline": ""}); err == nil {
		t.Fatal("expected error for kill without timeline")
	}
	if err := a.Action(ActionLoad, Options{"show": ""}); err != nil {
		t.Errorf("load without show should be skipped silently, got %v", err)
	}
	a.Action(ActionReset, nil)

	lines := mock.WaitLines(1, 2*time.Second)
	if len(lines) != 1 || lines[0] != "reset" {
		t.Errorf("got %q, want only reset", lines)
	}

	errs := host.errors()
	want := "Error: Kill command for Watchout production triggered without timeline name"
	if len(errs) != 1 || errs[0] != want {
		t.Errorf("got %q, want [%q]", errs, want)
	}
}

func TestAdapterUnknownAction(t *testing.T) {
	_, _, host, a := setupTest(t, watchout.Config{})
	if err := a.Action("explode", nil); err == nil {
		t.Fatal("expected error")
	}
	if errs := host.errors(); len(errs) != 1 || !strings.Contains(errs[0], "explode") {
		t.Errorf("got %q", errs)
	}
}

func TestAdapterUpdateConfig(t *testing.T) {
	mock, dialer, host, a := setupTest(t, watchout.Config{Host: "10.0.0.2", Type: watchout.Production})
	host.waitStatus(t, StatusOK)

	a.UpdateConfig(watchout.Config{Host: "10.0.0.3", Type: watchout.DisplayCluster})
	host.waitStatus(t, StatusOK)

	attempts := dialer.attempts()
	want := []string{"10.0.0.2:3040", "10.0.0.3:3039"}
	if len(attempts) != 2 || attempts[0] != want[0] || attempts[1] != want[1] {
		t.Fatalf("got dials %q, want %q", attempts, want)
	}

	a.Action(ActionOnline, Options{"online": "false"})
	lines := mock.WaitLines(2, 2*time.Second)
	if len(lines) != 2 || lines[0] != "authenticate 1" || lines[1] != "online false" {
		t.Errorf("got %q", lines)
	}
	if mock.Accepted() != 2 {
		t.Errorf("got %d connections, want 2", mock.Accepted())
	}
	if a.Config().Type != watchout.DisplayCluster {
		t.Errorf("got type %q", a.Config().Type)
	}
}

func TestAdapterWithoutHost(t *testing.T) {
	_, dialer, _, a := setupTest(t, watchout.Config{})
	if err := a.Action(ActionReset, nil); err == nil {
		t.Error("expected reset to be dropped without a host")
	}
	if n := len(dialer.attempts()); n != 0 {
		t.Errorf("got %d dials, want 0", n)
	}
	if a.Status() != watchout.StatusDisconnected {
		t.Errorf("got status %s", a.Status())
	}
}

func TestAdapterDestroyThenAction(t *testing.T) {
	mock, dialer, host, a := setupTest(t, watchout.Config{Host: "10.0.0.2"})
	host.waitStatus(t, StatusOK)

	a.Destroy()
	a.Destroy()
	if a.Status() != watchout.StatusDisconnected {
		t.Fatalf("got status %s after destroy", a.Status())
	}

	// The first action after destroy reconnects but is itself dropped.
	a.Action(ActionReset, nil)
	host.waitStatus(t, StatusOK)
	if n := len(dialer.attempts()); n != 2 {
		t.Errorf("got %d dials, want 2", n)
	}

	a.Action(ActionRun, nil)
	lines := mock.WaitLines(1, 2*time.Second)
	if len(lines) != 1 || lines[0] != "run" {
		t.Errorf("got %q, want [run]", lines)
	}
}

type stalledDialer struct{}

// DialContext returns a connection whose peer never reads.
func (stalledDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, _ := net.Pipe()
	return client, nil
}

func TestAdapterDestroyDuringStalledSend(t *testing.T) {
	host := newFakeHost()
	a := New(watchout.Config{Host: "10.0.0.2"}, host,
		WithLogger(quietLogger),
		WithManagerOptions(watchout.WithDialer(stalledDialer{}), watchout.WithWriteTimeout(time.Minute)))
	host.waitStatus(t, StatusOK)

	sent := make(chan error, 1)
	go func() { sent <- a.Action(ActionRun, nil) }()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		a.Status()
		a.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy blocked behind a stalled send")
	}
	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("action did not return after Destroy")
	}
}
