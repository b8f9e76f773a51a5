package watchout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	ProductionPort     = 3040
	DisplayClusterPort = 3039

	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 2 * time.Second

	authLine = "authenticate 1" + lineEnd
)

// DeviceType selects which Watchout role the adapter talks to.
type DeviceType string

const (
	Production     DeviceType = "prod"
	DisplayCluster DeviceType = "disp"
)

func (t DeviceType) Port() int {
	if t == DisplayCluster {
		return DisplayClusterPort
	}
	return ProductionPort
}

func (t DeviceType) String() string {
	if t == DisplayCluster {
		return "Display Cluster"
	}
	return "Production Computer"
}

// Config is the device connection configuration. An empty Host leaves the
// manager idle.
type Config struct {
	Host string     `yaml:"host" json:"host" env:"HOST"`
	Type DeviceType `yaml:"type" json:"type" env:"TYPE"`
}

// Validate checks that Host is empty or an IPv4 address and that Type is
// known. An empty Type means Production.
func (c Config) Validate() error {
	if c.Host != "" {
		ip := net.ParseIP(c.Host)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("watchout: host %q is not an IPv4 address", c.Host)
		}
	}
	switch c.Type {
	case "", Production, DisplayCluster:
	default:
		return fmt.Errorf("watchout: device type %q: want %q or %q", c.Type, Production, DisplayCluster)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Type.Port()))
}

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Listener receives connection events. Calls come from the manager's
// goroutines and from the goroutine calling Open, Send or Close.
type Listener interface {
	StatusChanged(status Status, message string)
	SocketError(err error)
}

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Option func(*Manager)

func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) { m.dialTimeout = d }
}

// WithWriteTimeout bounds each write to the device. A write that does not
// finish in time fails the connection.
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) { m.writeTimeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager owns the single TCP connection to a Watchout machine. Connections
// are opened lazily and never retried on their own: a failed connection
// stays down until Open or the next Send. Writes happen outside the lock,
// so Close and Open interrupt a stalled write instead of waiting on it.
type Manager struct {
	cfg          Config
	listener     Listener
	dialer       Dialer
	dialTimeout  time.Duration
	writeTimeout time.Duration
	logger       *log.Logger

	mu     sync.Mutex
	conn   net.Conn
	status Status
	gen    uint64
	cancel context.CancelFunc

	received atomic.Uint64
}

func NewManager(cfg Config, l Listener, opts ...Option) *Manager {
	if l == nil {
		l = nopListener{}
	}
	m := &Manager{
		cfg:          cfg,
		listener:     l,
		dialer:       &net.Dialer{},
		dialTimeout:  DefaultDialTimeout,
		writeTimeout: DefaultWriteTimeout,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) Addr() string {
	return m.cfg.Addr()
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Received returns the number of bytes read from the device. The content
// is discarded.
func (m *Manager) Received() uint64 {
	return m.received.Load()
}

// Open drops any existing connection and, when a host is configured, starts
// connecting in the background. It does not wait for the dial.
func (m *Manager) Open() {
	m.mu.Lock()
	hadConn := m.closeLocked()
	if m.cfg.Host == "" {
		m.mu.Unlock()
		if hadConn {
			m.listener.StatusChanged(StatusDisconnected, "Disconnected")
		}
		return
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	m.cancel = cancel
	m.status = StatusConnecting
	m.mu.Unlock()

	m.listener.StatusChanged(StatusConnecting, "Connecting")
	go m.dial(ctx, gen)
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	addr := m.cfg.Addr()
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err == nil && m.cfg.Type == DisplayCluster {
		if err = m.write(conn, authLine); err != nil {
			conn.Close()
			conn = nil
		}
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	m.cancel()
	m.cancel = nil
	if err != nil {
		m.status = StatusFailed
		m.mu.Unlock()
		m.fail(&SocketError{Addr: addr, Cause: err})
		return
	}
	m.conn = conn
	m.status = StatusConnected
	m.mu.Unlock()

	m.logger.Printf("[watchout] connected to %s", addr)
	m.listener.StatusChanged(StatusConnected, "")
	go m.readLoop(conn, gen)
}

func (m *Manager) readLoop(conn net.Conn, gen uint64) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		m.received.Add(uint64(n))
		if err == nil {
			continue
		}

		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return
		}
		conn.Close()
		m.conn = nil
		m.gen++
		if errors.Is(err, io.EOF) {
			m.status = StatusDisconnected
			m.mu.Unlock()
			m.logger.Printf("[watchout] %s closed the connection", m.cfg.Addr())
			m.listener.StatusChanged(StatusDisconnected, "Disconnected")
			return
		}
		m.status = StatusFailed
		m.mu.Unlock()
		m.fail(&SocketError{Addr: m.cfg.Addr(), Cause: err})
		return
	}
}

// Send writes cmd to the device. With no connection it makes one attempt
// to open one first; if the device is still not connected afterwards the
// command is dropped and ErrNotConnected returned.
func (m *Manager) Send(cmd Command) error {
	m.mu.Lock()
	idle := m.conn == nil && m.status != StatusConnecting
	m.mu.Unlock()
	if idle {
		m.Open()
	}

	m.mu.Lock()
	if m.conn == nil || m.status != StatusConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	conn, gen := m.conn, m.gen
	m.mu.Unlock()

	err := m.write(conn, string(cmd))
	if err == nil {
		return nil
	}
	sockErr := &SocketError{Addr: m.cfg.Addr(), Cause: err}

	m.mu.Lock()
	if gen != m.gen {
		// Closed or reopened while writing.
		m.mu.Unlock()
		return sockErr
	}
	m.closeLocked()
	m.status = StatusFailed
	m.mu.Unlock()
	m.fail(sockErr)
	return sockErr
}

func (m *Manager) write(conn net.Conn, s string) error {
	if m.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(m.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(conn, s)
	return err
}

// Close drops the connection. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	hadConn := m.closeLocked()
	m.mu.Unlock()
	if hadConn {
		m.listener.StatusChanged(StatusDisconnected, "Disconnected")
	}
	return nil
}

// closeLocked tears down the current connection or pending dial and reports
// whether there was one.
func (m *Manager) closeLocked() bool {
	active := m.conn != nil || m.cancel != nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.gen++
	m.status = StatusDisconnected
	return active
}

func (m *Manager) fail(err *SocketError) {
	m.logger.Printf("[watchout] %v", err)
	m.listener.SocketError(err)
	m.listener.StatusChanged(StatusFailed, err.Cause.Error())
}

type nopListener struct{}

func (nopListener) StatusChanged(Status, string) {}
func (nopListener) SocketError(error)            {}
