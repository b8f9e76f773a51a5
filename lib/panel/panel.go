// Package panel serves a small HTTP API for driving the adapter from a
// browser or script, and streams status and log events over a websocket.
package panel

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchout/lib/adapter"
	"watchout/lib/watchout"
)

// Controller is the part of *adapter.Adapter the panel uses.
type Controller interface {
	ID() string
	Config() watchout.Config
	Status() watchout.Status
	Actions() []adapter.ActionDefinition
	ConfigFields() []adapter.Field
	Action(id string, opts adapter.Options) error
	UpdateConfig(cfg watchout.Config)
}

type Event struct {
	Type    string    `json:"type"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

const (
	EventStatus = "status"
	EventLog    = "log"
)

type Option func(*Panel)

func WithLogger(l *log.Logger) Option {
	return func(p *Panel) { p.logger = l }
}

// Panel is an adapter.Host: status and log calls are broadcast to every
// websocket client.
type Panel struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	ctrl    Controller
	clients map[*client]struct{}
	last    *Event
}

func New(opts ...Option) *Panel {
	p := &Panel{
		logger:  log.Default(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attach sets the controller the API drives. Requests before Attach get 503.
func (p *Panel) Attach(c Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctrl = c
}

func (p *Panel) controller() Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl
}

func (p *Panel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/actions", p.withController(p.handleActions))
	mux.HandleFunc("POST /api/actions/{id}", p.withController(p.handleAction))
	mux.HandleFunc("GET /api/config", p.withController(p.handleConfig))
	mux.HandleFunc("PUT /api/config", p.withController(p.handleUpdateConfig))
	mux.HandleFunc("GET /api/status", p.withController(p.handleStatus))
	mux.HandleFunc("GET /api/events", p.handleEvents)
	return mux
}

func (p *Panel) withController(h func(http.ResponseWriter, *http.Request, Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := p.controller()
		if c == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("adapter not ready"))
			return
		}
		h(w, r, c)
	}
}

func (p *Panel) handleActions(w http.ResponseWriter, r *http.Request, c Controller) {
	writeJSON(w, http.StatusOK, c.Actions())
}

func (p *Panel) handleAction(w http.ResponseWriter, r *http.Request, c Controller) {
	id := r.PathValue("id")
	opts := adapter.Options{}
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := c.Action(id, opts)
	var missing *watchout.MissingParameterError
	var invalid *adapter.OptionError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, adapter.ErrUnknownAction):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &missing), errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, watchout.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

type configResponse struct {
	Config watchout.Config `json:"config"`
	Fields []adapter.Field `json:"fields"`
}

func (p *Panel) handleConfig(w http.ResponseWriter, r *http.Request, c Controller) {
	writeJSON(w, http.StatusOK, configResponse{Config: c.Config(), Fields: c.ConfigFields()})
}

func (p *Panel) handleUpdateConfig(w http.ResponseWriter, r *http.Request, c Controller) {
	var cfg watchout.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if cfg.Type == "" {
		cfg.Type = watchout.Production
	}
	p.logger.Printf("[panel] config update: %s %s", cfg.Host, cfg.Type)
	c.UpdateConfig(cfg)
	writeJSON(w, http.StatusOK, configResponse{Config: c.Config(), Fields: c.ConfigFields()})
}

type statusResponse struct {
	ID         string `json:"id"`
	Connection string `json:"connection"`
	Level      string `json:"level,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (p *Panel) handleStatus(w http.ResponseWriter, r *http.Request, c Controller) {
	resp := statusResponse{ID: c.ID(), Connection: c.Status().String()}
	p.mu.Lock()
	if p.last != nil {
		resp.Level = p.last.Level
		resp.Message = p.last.Message
	}
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (p *Panel) Status(level adapter.StatusLevel, message string) {
	ev := Event{Type: EventStatus, Level: string(level), Message: message, Time: time.Now()}
	p.mu.Lock()
	p.last = &ev
	p.mu.Unlock()
	p.broadcast(ev)
}

func (p *Panel) Log(level adapter.LogLevel, message string) {
	if level == adapter.LogDebug {
		return
	}
	p.broadcast(Event{Type: EventLog, Level: string(level), Message: message, Time: time.Now()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
