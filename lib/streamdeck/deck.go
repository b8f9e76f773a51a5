package streamdeck

import (
	"image/color"
	"log"
	"sort"
	"strings"
	"sync"

	"watchout/lib/adapter"
	"watchout/lib/config"
)

// Keypad is the part of *Device the deck draws on.
type Keypad interface {
	Keys() int
	SetKeyText(key int, bg color.Color, fg color.Color, text string) error
	SetKeyColor(key int, c color.Color) error
}

var (
	colorIdle    = color.RGBA{60, 60, 60, 255}
	colorOK      = color.RGBA{30, 120, 40, 255}
	colorWarning = color.RGBA{170, 120, 20, 255}
	colorError   = color.RGBA{160, 30, 30, 255}
	colorPressed = color.RGBA{230, 230, 230, 255}
)

// Deck invokes the bound action when a key is pressed. Bound keys are
// coloured by connection status; it is an adapter.Host for that reason.
type Deck struct {
	inv    adapter.Invoker
	pad    Keypad
	keys   map[int]adapter.Binding
	logger *log.Logger

	// mu guards status and every draw on pad.
	mu     sync.Mutex
	status adapter.StatusLevel
}

func NewDeck(cfg config.DeckConfig, inv adapter.Invoker, pad Keypad, logger *log.Logger) *Deck {
	if logger == nil {
		logger = log.Default()
	}
	keys := make(map[int]adapter.Binding, len(cfg.Keys))
	for k, b := range cfg.Keys {
		if k >= 0 && k < pad.Keys() {
			keys[k] = b
		} else {
			logger.Printf("[deck] key %d: no such key on this model", k)
		}
	}
	return &Deck{
		inv:    inv,
		pad:    pad,
		keys:   keys,
		logger: logger,
		status: adapter.StatusUnknown,
	}
}

// Draw paints every key: bound keys with their label, the rest black.
func (d *Deck) Draw() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := 0; k < d.pad.Keys(); k++ {
		if _, ok := d.keys[k]; !ok {
			d.pad.SetKeyColor(k, color.Black)
		}
	}
	d.drawBoundLocked()
}

func (d *Deck) drawBoundLocked() {
	bg := statusColor(d.status)
	for _, k := range d.boundKeys() {
		d.pad.SetKeyText(k, bg, color.White, keyLabel(d.keys[k]))
	}
}

func (d *Deck) boundKeys() []int {
	keys := make([]int, 0, len(d.keys))
	for k := range d.keys {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (d *Deck) Handle(ev KeyEvent) {
	b, ok := d.keys[ev.Key]
	if !ok {
		return
	}
	if !ev.Pressed {
		d.mu.Lock()
		d.pad.SetKeyText(ev.Key, statusColor(d.status), color.White, keyLabel(b))
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	d.pad.SetKeyText(ev.Key, colorPressed, color.Black, keyLabel(b))
	d.mu.Unlock()
	if err := b.Invoke(d.inv); err != nil {
		d.logger.Printf("[deck] key %d %s: %v", ev.Key, b.Action, err)
	}
}

// Run handles key events until ch is closed.
func (d *Deck) Run(ch <-chan KeyEvent) {
	for ev := range ch {
		d.Handle(ev)
	}
}

func (d *Deck) Status(level adapter.StatusLevel, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if level == d.status {
		return
	}
	d.status = level
	d.drawBoundLocked()
}

func (d *Deck) Log(adapter.LogLevel, string) {}

func statusColor(level adapter.StatusLevel) color.RGBA {
	switch level {
	case adapter.StatusOK:
		return colorOK
	case adapter.StatusWarning:
		return colorWarning
	case adapter.StatusError:
		return colorError
	}
	return colorIdle
}

// keyLabel is the binding title followed by the option that tells keys of
// the same action apart.
func keyLabel(b adapter.Binding) string {
	label := b.Title()
	if b.Label != "" {
		return label
	}
	for _, key := range []string{"cuename", "timeline", "show", "inputname", "time"} {
		if v := strings.TrimSpace(b.Options[key]); v != "" {
			return label + "\n" + v
		}
	}
	return label
}
