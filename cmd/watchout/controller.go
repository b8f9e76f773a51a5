package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"watchout/lib/adapter"
	"watchout/lib/config"
	"watchout/lib/panel"
	"watchout/lib/watchout"
)

// controller is one adapter plus the hosts and surfaces attached to it.
type controller struct {
	cfg     *config.Config
	logger  *log.Logger
	hosts   *adapter.HostGroup
	adapter *adapter.Adapter
	closers []func()
}

func newController(cmd *cobra.Command) (*controller, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, logFile := newLogger(cfg.Log)
	debug, _ := cmd.Flags().GetBool("debug")

	c := &controller{
		cfg:    cfg,
		logger: logger,
		hosts:  adapter.NewHostGroup(adapter.LogHost{Logger: logger, Debug: debug}),
	}
	c.adapter = adapter.New(cfg.Device, c.hosts, adapter.WithLogger(logger))
	c.closers = append(c.closers, func() { logFile.Close() }, c.adapter.Destroy)
	logger.Printf("[watchout] instance %s, device %s (%s)", c.adapter.ID(), cfg.Device.Addr(), cfg.Device.Type)
	return c, nil
}

// attach adds h to the hosts and brings it up to date with the current
// connection state.
func (c *controller) attach(h adapter.Host) {
	c.hosts.Add(h)
	h.Status(adapter.LevelOf(c.adapter.Status()), "")
}

func (c *controller) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

func (c *controller) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// waitReady blocks until the adapter is connected, the connection fails or
// timeout passes.
func (c *controller) waitReady(timeout time.Duration) watchout.Status {
	deadline := time.Now().Add(timeout)
	for {
		status := c.adapter.Status()
		if status != watchout.StatusConnecting || time.Now().After(deadline) {
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// startPanel serves the HTTP panel on addr until the controller closes.
func (c *controller) startPanel(addr string) {
	p := panel.New(panel.WithLogger(c.logger))
	p.Attach(c.adapter)
	c.attach(p)

	srv := &http.Server{Addr: addr, Handler: p.Handler()}
	go func() {
		c.logger.Printf("[panel] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Printf("[panel] %v", err)
		}
	}()
	c.onClose(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
}
