package adapter

import (
	"log"
	"sync"
)

type nopHost struct{}

func (nopHost) Status(StatusLevel, string) {}
func (nopHost) Log(LogLevel, string)       {}

// LogHost reports status and log messages to a logger.
type LogHost struct {
	Logger *log.Logger
	// Debug enables LogDebug messages.
	Debug bool
}

func (h LogHost) Status(level StatusLevel, message string) {
	h.logger().Printf("[status] %s: %s", level, message)
}

func (h LogHost) Log(level LogLevel, message string) {
	if level == LogDebug && !h.Debug {
		return
	}
	h.logger().Printf("[%s] %s", level, message)
}

func (h LogHost) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

// HostGroup forwards every call to each of its hosts in order. Hosts can be
// added while the adapter is running.
type HostGroup struct {
	mu    sync.Mutex
	hosts []Host
}

func NewHostGroup(hosts ...Host) *HostGroup {
	return &HostGroup{hosts: hosts}
}

func (g *HostGroup) Add(h Host) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hosts = append(g.hosts, h)
}

func (g *HostGroup) snapshot() []Host {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Host(nil), g.hosts...)
}

func (g *HostGroup) Status(level StatusLevel, message string) {
	for _, h := range g.snapshot() {
		h.Status(level, message)
	}
}

func (g *HostGroup) Log(level LogLevel, message string) {
	for _, h := range g.snapshot() {
		h.Log(level, message)
	}
}
