// Package xtouch drives a Behringer X-Touch (or X-Touch Extender) in MIDI
// mode as a Watchout control surface.
package xtouch

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	DeviceIDXTouch   = 0x14
	DeviceIDExtender = 0x15
)

const (
	CCFootSwitch1 = 64
	CCFootSwitch2 = 67
	CCFaderFirst  = 70
	CCFaderLast   = 77
	CCFaderMain   = 78
)

const (
	NoteButtonFirst = 0
	NoteButtonLast  = 103

	// FaderMain is the fader index of the main fader.
	FaderMain = 8
)

type Event interface {
	String() string
}

type ButtonEvent struct {
	Button  uint8
	Pressed bool
}

func (e ButtonEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("Button %d %s", e.Button, action)
}

type FaderEvent struct {
	Fader uint8
	Value uint8
}

func (e FaderEvent) String() string {
	if e.Fader == FaderMain {
		return fmt.Sprintf("Fader main = %d", e.Value)
	}
	return fmt.Sprintf("Fader %d = %d", e.Fader, e.Value)
}

type FootSwitchEvent struct {
	Switch  uint8
	Pressed bool
}

func (e FootSwitchEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("Foot switch %d %s", e.Switch, action)
}

func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("xtouch: no MIDI input port matching %q", substr)
}

func FindOutPort(substr string) (drivers.Out, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetOutPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("xtouch: no MIDI output port matching %q", substr)
}

// Decode turns a MIDI message from the surface into an event. Messages the
// surface layer does not use (encoders, jog wheel, fader touch) yield nil.
func Decode(msg midi.Message) Event {
	var channel, key, value uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &value):
		return decodeButton(key, value > 0)
	case msg.GetNoteOff(&channel, &key, &value):
		return decodeButton(key, false)
	case msg.GetControlChange(&channel, &key, &value):
		return decodeCC(key, value)
	}
	return nil
}

func decodeButton(key uint8, pressed bool) Event {
	if key > NoteButtonLast {
		return nil
	}
	return ButtonEvent{Button: key, Pressed: pressed}
}

func decodeCC(controller, value uint8) Event {
	switch {
	case controller >= CCFaderFirst && controller <= CCFaderLast:
		return FaderEvent{Fader: controller - CCFaderFirst, Value: value}
	case controller == CCFaderMain:
		return FaderEvent{Fader: FaderMain, Value: value}
	case controller == CCFootSwitch1:
		return FootSwitchEvent{Switch: 1, Pressed: value > 0}
	case controller == CCFootSwitch2:
		return FootSwitchEvent{Switch: 2, Pressed: value > 0}
	}
	return nil
}
