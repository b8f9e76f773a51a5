// Package adapter connects a host runtime to a Watchout machine: it holds the
// device configuration, publishes the action schema, turns action
// invocations into protocol commands and reports connection status back.
package adapter

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"watchout/lib/watchout"
)

type StatusLevel string

const (
	StatusOK      StatusLevel = "ok"
	StatusWarning StatusLevel = "warning"
	StatusError   StatusLevel = "error"
	StatusUnknown StatusLevel = "unknown"
)

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Host is the runtime the adapter reports to. Its methods may be called from
// the device connection's goroutines.
type Host interface {
	Status(level StatusLevel, message string)
	Log(level LogLevel, message string)
}

type Option func(*Adapter)

// WithID sets the instance id. By default a random UUID is used.
func WithID(id string) Option {
	return func(a *Adapter) { a.id = id }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithManagerOptions passes options to every connection manager the adapter
// builds.
func WithManagerOptions(opts ...watchout.Option) Option {
	return func(a *Adapter) { a.managerOpts = append(a.managerOpts, opts...) }
}

type Adapter struct {
	id          string
	host        Host
	logger      *log.Logger
	managerOpts []watchout.Option

	mu  sync.Mutex
	cfg watchout.Config
	mgr *watchout.Manager
}

// New creates an adapter for cfg and starts connecting if a host is set.
func New(cfg watchout.Config, host Host, opts ...Option) *Adapter {
	if host == nil {
		host = nopHost{}
	}
	a := &Adapter{
		id:     uuid.NewString(),
		host:   host,
		logger: log.Default(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mu.Lock()
	a.rebuildLocked()
	a.mu.Unlock()
	return a
}

func (a *Adapter) ID() string {
	return a.id
}

func (a *Adapter) Config() watchout.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *Adapter) Status() watchout.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mgr == nil {
		return watchout.StatusDisconnected
	}
	return a.mgr.Status()
}

func (a *Adapter) Actions() []ActionDefinition {
	return Definitions()
}

func (a *Adapter) ConfigFields() []Field {
	return ConfigFields()
}

func (a *Adapter) Definition(id string) (ActionDefinition, bool) {
	return Lookup(id)
}

// UpdateConfig replaces the configuration and rebuilds the connection.
func (a *Adapter) UpdateConfig(cfg watchout.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.rebuildLocked()
}

// Destroy closes the connection. The next action reconnects.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mgr != nil {
		a.mgr.Close()
		a.mgr = nil
	}
	a.logger.Printf("[adapter] destroy %s", a.id)
}

func (a *Adapter) rebuildLocked() {
	if a.mgr != nil {
		a.mgr.Close()
		a.mgr = nil
	}
	opts := append([]watchout.Option{watchout.WithLogger(a.logger)}, a.managerOpts...)
	a.mgr = watchout.NewManager(a.cfg, listener{a}, opts...)
	a.mgr.Open()
}

// Action runs the action with the given id. Options missing from opts take
// their schema defaults. Failures are logged to the host; the error is
// returned only so callers can show it and never needs handling.
func (a *Adapter) Action(id string, opts Options) error {
	a.logger.Printf("[adapter] run watchout action: %s %v", id, opts)
	def, ok := a.Definition(id)
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnknownAction, id)
		a.host.Log(LogError, err.Error())
		return err
	}
	merged := def.Defaults()
	for k, v := range opts {
		merged[k] = v
	}

	action, err := ParseAction(id, merged)
	if err != nil {
		a.host.Log(LogError, "Error: "+err.Error())
		return err
	}
	return a.Do(action)
}

// Do encodes and sends a typed action.
func (a *Adapter) Do(action watchout.Action) error {
	cmd, err := watchout.Encode(action)
	if errors.Is(err, watchout.ErrNothingToSend) {
		return nil
	}
	if err != nil {
		a.host.Log(LogError, "Error: "+err.Error())
		return err
	}

	a.mu.Lock()
	if a.mgr == nil {
		a.rebuildLocked()
	}
	mgr, host := a.mgr, a.cfg.Host
	a.mu.Unlock()

	a.logger.Printf("[adapter] sending tcp %q to %s", cmd.String(), host)
	if err := mgr.Send(cmd); err != nil {
		if errors.Is(err, watchout.ErrNotConnected) {
			a.logger.Printf("[adapter] socket not connected, dropped %q", cmd.String())
		}
		return err
	}
	return nil
}

type listener struct {
	a *Adapter
}

func (l listener) StatusChanged(status watchout.Status, message string) {
	l.a.host.Status(LevelOf(status), message)
}

// LevelOf maps a connection status to the level reported to the host.
func LevelOf(status watchout.Status) StatusLevel {
	switch status {
	case watchout.StatusConnected:
		return StatusOK
	case watchout.StatusConnecting:
		return StatusWarning
	case watchout.StatusFailed, watchout.StatusDisconnected:
		return StatusError
	}
	return StatusUnknown
}

func (l listener) SocketError(err error) {
	var sockErr *watchout.SocketError
	if errors.As(err, &sockErr) {
		err = sockErr.Cause
	}
	l.a.host.Log(LogError, "Network error: "+err.Error())
}
