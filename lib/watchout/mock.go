package watchout

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// MockServer is a stand-in Watchout machine. It accepts connections on a
// loopback port and records every command line it receives.
type MockServer struct {
	listener net.Listener
	mu       sync.Mutex
	conns    []net.Conn
	lines    []string
	accepted int
	notify   chan struct{}
	onLine   func(remote string, line string)
}

func NewMockServer() (*MockServer, error) {
	return ListenMock("127.0.0.1:0")
}

func ListenMock(addr string) (*MockServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	m := &MockServer{
		listener: ln,
		notify:   make(chan struct{}, 1),
	}
	go m.serve()
	return m, nil
}

func (m *MockServer) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

func (m *MockServer) Addr() string {
	return m.listener.Addr().String()
}

func (m *MockServer) Close() error {
	err := m.listener.Close()
	m.DropConnections()
	return err
}

// Dialer returns a Dialer that connects to the mock whatever address is
// requested, so a Manager configured for a real device port reaches it.
func (m *MockServer) Dialer() Dialer {
	return mockDialer{addr: m.Addr()}
}

type mockDialer struct {
	addr string
}

func (d mockDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var nd net.Dialer
	return nd.DialContext(ctx, network, d.addr)
}

// OnLine registers fn to be called for every received line.
func (m *MockServer) OnLine(fn func(remote string, line string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLine = fn
}

// DropConnections closes every accepted connection but keeps listening.
func (m *MockServer) DropConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.conns {
		conn.Close()
	}
	m.conns = nil
}

// Accepted returns how many connections the server has accepted.
func (m *MockServer) Accepted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// Lines returns the received lines without their CRLF terminators.
func (m *MockServer) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// WaitLines blocks until at least n lines have arrived or the timeout
// passes, and returns what was received.
func (m *MockServer) WaitLines(n int, timeout time.Duration) []string {
	deadline := time.After(timeout)
	for {
		lines := m.Lines()
		if len(lines) >= n {
			return lines
		}
		select {
		case <-m.notify:
		case <-deadline:
			return m.Lines()
		}
	}
}

func (m *MockServer) serve() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.accepted++
		m.mu.Unlock()
		go m.handleConn(conn)
	}
}

func (m *MockServer) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		m.mu.Lock()
		m.lines = append(m.lines, line)
		onLine := m.onLine
		m.mu.Unlock()

		select {
		case m.notify <- struct{}{}:
		default:
		}
		if onLine != nil {
			onLine(remote, line)
		}
	}
}
