package xtouch

import (
	"log"
	"math"
	"strconv"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"watchout/lib/adapter"
	"watchout/lib/config"
	"watchout/lib/watchout"
)

// Controller is the part of *adapter.Adapter the surface drives.
type Controller interface {
	Action(id string, opts adapter.Options) error
	Do(action watchout.Action) error
}

// Surface maps X-Touch controls onto adapter actions: bound buttons invoke
// actions, condition buttons toggle layer conditions and faders set inputs.
// It is also an adapter.Host so the strip displays follow the connection.
type Surface struct {
	ctrl   Controller
	out    *Feedback
	logger *log.Logger

	buttons    map[uint8]adapter.Binding
	conditions map[uint8]int
	faders     map[uint8]string
	pedals     map[uint8]adapter.Binding

	// mu guards the state below and every write to out.
	mu     sync.Mutex
	mask   watchout.LayerMask
	status adapter.StatusLevel
	values [FaderMain + 1]uint8
}

// NewSurface builds a surface from cfg. out may be nil to run without
// feedback.
func NewSurface(cfg config.XTouchConfig, ctrl Controller, out *Feedback, logger *log.Logger) *Surface {
	if logger == nil {
		logger = log.Default()
	}
	s := &Surface{
		ctrl:       ctrl,
		out:        out,
		logger:     logger,
		buttons:    make(map[uint8]adapter.Binding),
		conditions: make(map[uint8]int),
		faders:     make(map[uint8]string),
		pedals:     make(map[uint8]adapter.Binding),
		status:     adapter.StatusUnknown,
	}
	for note, b := range cfg.Buttons {
		if s.checkNote(note) {
			s.buttons[uint8(note)] = b
		}
	}
	for note, cond := range cfg.Conditions {
		if s.checkNote(note) {
			s.conditions[uint8(note)] = cond
		}
	}
	for fader, input := range cfg.Faders {
		if fader < 0 || fader > FaderMain {
			logger.Printf("[xtouch] fader %d: no such fader", fader)
			continue
		}
		s.faders[uint8(fader)] = input
	}
	for sw, b := range cfg.Pedals {
		if sw != 1 && sw != 2 {
			logger.Printf("[xtouch] pedal %d: no such foot switch", sw)
			continue
		}
		s.pedals[uint8(sw)] = b
	}
	return s
}

func (s *Surface) checkNote(note int) bool {
	if note < NoteButtonFirst || note > NoteButtonLast {
		s.logger.Printf("[xtouch] button %d: no such button", note)
		return false
	}
	return true
}

// Conditions returns the layer conditions the surface last sent.
func (s *Surface) Conditions() watchout.LayerMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}

// Reset clears every LED of a bound control and redraws the displays.
func (s *Surface) Reset() {
	if s.out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for note := range s.buttons {
		s.out.Light(note, false)
	}
	for note := range s.conditions {
		s.out.Light(note, false)
	}
	for fader := range s.faders {
		s.out.MoveFader(fader, 0)
	}
	s.drawLocked()
}

func (s *Surface) Handle(ev Event) {
	switch e := ev.(type) {
	case ButtonEvent:
		s.handleButton(e)
	case FootSwitchEvent:
		if b, ok := s.pedals[e.Switch]; ok && e.Pressed {
			s.invoke(b)
		}
	case FaderEvent:
		s.handleFader(e)
	}
}

func (s *Surface) handleButton(e ButtonEvent) {
	if b, ok := s.buttons[e.Button]; ok {
		s.light(e.Button, e.Pressed)
		if e.Pressed {
			s.invoke(b)
		}
		return
	}

	cond, ok := s.conditions[e.Button]
	if !ok || !e.Pressed {
		return
	}
	s.mu.Lock()
	s.mask = s.mask.Set(cond, !s.mask.Has(cond))
	mask := s.mask
	if s.out != nil {
		s.out.Light(e.Button, mask.Has(cond))
	}
	s.mu.Unlock()

	if err := s.ctrl.Do(watchout.SetLayerConditions{Conditions: mask.Flags()}); err != nil {
		s.logger.Printf("[xtouch] condition %d: %v", cond+1, err)
	}
}

func (s *Surface) handleFader(e FaderEvent) {
	input, ok := s.faders[e.Fader]
	if !ok {
		return
	}
	s.mu.Lock()
	s.values[e.Fader] = e.Value
	s.drawLocked()
	s.mu.Unlock()

	v := FaderLevel(e.Value)
	if err := s.ctrl.Do(watchout.SetInput{Name: input, Value: &v}); err != nil {
		s.logger.Printf("[xtouch] fader %d: %v", e.Fader, err)
	}
}

func (s *Surface) light(note uint8, on bool) {
	if s.out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Light(note, on)
}

func (s *Surface) invoke(b adapter.Binding) {
	if err := b.Invoke(s.ctrl); err != nil {
		s.logger.Printf("[xtouch] %s: %v", b.Action, err)
	}
}

// FaderLevel maps a 7-bit fader position to an input value between 0 and
// 1, rounded to three decimals.
func FaderLevel(v uint8) float64 {
	return math.Round(float64(v)/127*1000) / 1000
}

func (s *Surface) Status(level adapter.StatusLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = level
	s.drawLocked()
}

func (s *Surface) Log(adapter.LogLevel, string) {}

func statusColor(level adapter.StatusLevel) StripColor {
	switch level {
	case adapter.StatusOK:
		return StripGreen
	case adapter.StatusWarning:
		return StripYellow
	case adapter.StatusError:
		return StripRed
	}
	return StripWhite
}

// drawLocked shows each bound fader's input name and position on its strip,
// coloured by connection status.
func (s *Surface) drawLocked() {
	if s.out == nil {
		return
	}
	color := statusColor(s.status)
	for fader, input := range s.faders {
		if fader >= FaderMain {
			continue
		}
		pct := int(math.Round(float64(s.values[fader]) * 100 / 127))
		s.out.ShowStrip(fader, color, input, strconv.Itoa(pct)+"%")
	}
}

// Listen feeds decoded events from port into s until stop is called.
func Listen(port drivers.In, s *Surface) (stop func(), err error) {
	return midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if ev := Decode(msg); ev != nil {
			s.Handle(ev)
		}
	})
}
