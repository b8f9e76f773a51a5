package xtouch

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// StripColor is the backlight of a channel strip display.
type StripColor uint8

const (
	StripRed    StripColor = 1
	StripGreen  StripColor = 2
	StripYellow StripColor = 3
	StripWhite  StripColor = 7
)

const stripChars = 7

// Feedback drives the LEDs, motor faders and strip displays of one unit.
type Feedback struct {
	send   func(msg midi.Message) error
	device uint8
}

func NewFeedback(port drivers.Out, extender bool) (*Feedback, error) {
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("xtouch: open output port: %w", err)
	}
	device := uint8(DeviceIDXTouch)
	if extender {
		device = DeviceIDExtender
	}
	return &Feedback{send: send, device: device}, nil
}

// Light turns a button LED on or off.
func (f *Feedback) Light(note uint8, on bool) error {
	var velocity uint8
	if on {
		velocity = 127
	}
	return f.send(midi.NoteOn(0, note, velocity))
}

// MoveFader drives a motor fader to a 7-bit position.
func (f *Feedback) MoveFader(fader uint8, pos uint8) error {
	cc := CCFaderFirst + fader
	if fader == FaderMain {
		cc = CCFaderMain
	}
	return f.send(midi.ControlChange(0, cc, pos))
}

// ShowStrip writes an input name over its level on a channel strip.
func (f *Feedback) ShowStrip(strip uint8, color StripColor, name string, level string) error {
	msg := []byte{0x00, 0x20, 0x32, f.device, 0x4C, strip, uint8(color)}
	msg = append(msg, stripLine(name)...)
	msg = append(msg, stripLine(level)...)
	return f.send(midi.SysEx(msg))
}

// stripLine fits s to one display line, cutting or space-filling it.
func stripLine(s string) []byte {
	line := bytes.Repeat([]byte{' '}, stripChars)
	copy(line, s)
	return line
}
