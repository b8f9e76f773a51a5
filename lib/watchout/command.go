package watchout

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	lineEnd = "\r\n"

	DefaultFadeTime = 1000
	MaxFadeTime     = 60000
)

// ErrNothingToSend is returned by Encode for actions that are silently
// skipped rather than reported (a Load without a show name).
var ErrNothingToSend = errors.New("watchout: nothing to send")

// Command is one CRLF-terminated protocol line.
type Command string

func (c Command) String() string {
	return strings.TrimSuffix(string(c), lineEnd)
}

// Action is one of the operator actions the device understands. The set is
// closed: only the types in this file implement it.
type Action interface {
	Kind() string
	encode() (string, error)
}

type Run struct {
	Timeline string
}

type Halt struct {
	Timeline string
}

type Kill struct {
	Timeline string
}

type Reset struct{}

// GotoTime jumps a timeline to a position. Time is either a frame count of
// 1-12 digits or a quoted clock time such as "00:01:30.000"; see FrameTime and
// ClockTime.
type GotoTime struct {
	Time     string
	Timeline string
}

type GotoCue struct {
	Cue      string
	Timeline string
}

type Online struct {
	Online bool
}

// Standby fades the display cluster in or out of standby. FadeTime is in
// milliseconds; values outside 0-60000 fall back to DefaultFadeTime.
type Standby struct {
	Standby  bool
	FadeTime int
}

// SetInput sets a named input. A nil Value counts as missing; a nil Fade
// omits the fade argument.
type SetInput struct {
	Name  string
	Value *float64
	Fade  *int
}

type Load struct {
	Show string
}

type SetLayerConditions struct {
	Conditions [MaxConditions]bool
}

func (Run) Kind() string                { return "run" }
func (Halt) Kind() string               { return "halt" }
func (Kill) Kind() string               { return "kill" }
func (Reset) Kind() string              { return "reset" }
func (GotoTime) Kind() string           { return "gotoTime" }
func (GotoCue) Kind() string            { return "gotoControlCue" }
func (Online) Kind() string             { return "online" }
func (Standby) Kind() string            { return "standBy" }
func (SetInput) Kind() string           { return "setInput" }
func (Load) Kind() string               { return "load" }
func (SetLayerConditions) Kind() string { return "enableLayerCond" }

// Encode renders an action as a protocol line. Missing required parameters
// produce a *MissingParameterError and no command.
func Encode(a Action) (Command, error) {
	if a == nil {
		return "", fmt.Errorf("watchout: nil action")
	}
	line, err := a.encode()
	if err != nil {
		return "", err
	}
	return Command(line + lineEnd), nil
}

func (a Run) encode() (string, error) {
	return withTimeline("run", a.Timeline), nil
}

func (a Halt) encode() (string, error) {
	return withTimeline("halt", a.Timeline), nil
}

func (a Kill) encode() (string, error) {
	if a.Timeline == "" {
		return "", &MissingParameterError{Command: "Kill", Param: "timeline", detail: "timeline name"}
	}
	return withTimeline("kill", a.Timeline), nil
}

func (Reset) encode() (string, error) {
	return "reset", nil
}

func (a GotoTime) encode() (string, error) {
	if a.Time == "" {
		return "", &MissingParameterError{Command: "Gototime", Param: "time", detail: "entering time"}
	}
	return withTimeline("gotoTime "+a.Time, a.Timeline), nil
}

func (a GotoCue) encode() (string, error) {
	if a.Cue == "" {
		return "", &MissingParameterError{Command: "GotoControlCue", Param: "cuename", detail: "entering cue"}
	}
	return withTimeline("gotoControlCue "+quote(a.Cue)+" false", a.Timeline), nil
}

func (a Online) encode() (string, error) {
	return "online " + strconv.FormatBool(a.Online), nil
}

func (a Standby) encode() (string, error) {
	fade := a.FadeTime
	if fade < 0 || fade > MaxFadeTime {
		fade = DefaultFadeTime
	}
	return fmt.Sprintf("standBy %t %d", a.Standby, fade), nil
}

func (a SetInput) encode() (string, error) {
	if a.Name == "" {
		return "", &MissingParameterError{Command: "setInput", Param: "inputname", detail: "entering input name or input value"}
	}
	if a.Value == nil {
		return "", &MissingParameterError{Command: "setInput", Param: "inputvalue", detail: "entering input name or input value"}
	}
	line := "setInput " + quote(a.Name) + " " + strconv.FormatFloat(*a.Value, 'f', -1, 64)
	if a.Fade != nil {
		line += " " + strconv.Itoa(*a.Fade)
	}
	return line, nil
}

func (a Load) encode() (string, error) {
	if a.Show == "" {
		return "", ErrNothingToSend
	}
	return "load " + quote(a.Show), nil
}

func (a SetLayerConditions) encode() (string, error) {
	return "enableLayerCond " + strconv.FormatUint(uint64(ConditionMask(a.Conditions)), 10), nil
}

func withTimeline(cmd, timeline string) string {
	if timeline == "" {
		return cmd
	}
	return cmd + " " + quote(timeline)
}

// quote wraps s in double quotes. The device protocol has no escape syntax,
// so s is inserted verbatim.
func quote(s string) string {
	return `"` + s + `"`
}

var (
	frameTimeRe = regexp.MustCompile(`^\d{1,12}$`)
	clockTimeRe = regexp.MustCompile(`^"\d{1,2}:\d{1,2}:\d{1,2}\.\d{1,3}"$`)
)

// ValidTime reports whether s is a position GotoTime accepts.
func ValidTime(s string) bool {
	return frameTimeRe.MatchString(s) || clockTimeRe.MatchString(s)
}

// IsClockTime reports whether s is an unquoted HH:MM:SS.mmm clock time.
func IsClockTime(s string) bool {
	return clockTimeRe.MatchString(quote(s))
}

// FrameTime formats a position given in frames.
func FrameTime(frames int64) (string, error) {
	s := strconv.FormatInt(frames, 10)
	if !frameTimeRe.MatchString(s) {
		return "", fmt.Errorf("watchout: frame position %d out of range", frames)
	}
	return s, nil
}

// ClockTime formats d as a quoted "HH:MM:SS.mmm" position.
func ClockTime(d time.Duration) (string, error) {
	if d < 0 || d >= 100*time.Hour {
		return "", fmt.Errorf("watchout: clock position %s out of range", d)
	}
	ms := d.Milliseconds()
	return fmt.Sprintf(`"%02d:%02d:%02d.%03d"`, ms/3600000, ms/60000%60, ms/1000%60, ms%1000), nil
}
