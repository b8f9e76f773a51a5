package adapter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"watchout/lib/watchout"
)

var ErrUnknownAction = errors.New("adapter: unknown action")

// Options holds the raw option values of one action invocation, keyed by
// field id. Values are strings, bools or numbers as delivered by the host.
type Options map[string]any

// OptionError reports an option value that cannot be turned into the typed
// parameter the action needs.
type OptionError struct {
	Action string
	Option string
	Value  string
	Err    error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("adapter: %s: invalid %s %q: %v", e.Action, e.Option, e.Value, e.Err)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}

// Text returns the option as text. Missing and nil values are "".
func (o Options) Text(key string) string {
	switch v := o[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Flag reads a yes/no option. Only "false", "FALSE" and "0" are false;
// anything else, including a missing value, is true.
func (o Options) Flag(key string) bool {
	if _, ok := o[key]; !ok {
		return true
	}
	switch o.Text(key) {
	case "false", "FALSE", "0":
		return false
	}
	return true
}

// Checked reads a checkbox option.
func (o Options) Checked(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return false
}

func (o Options) fadeTime(key string) int {
	s := strings.TrimSpace(o.Text(key))
	if s == "" {
		return watchout.DefaultFadeTime
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > watchout.MaxFadeTime {
		return watchout.DefaultFadeTime
	}
	return int(f)
}

func parseInteger(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}

// ParseAction builds the typed action for an action id from raw options.
// Missing required values are left empty so that watchout.Encode can report
// them; values that are present but malformed are rejected here.
func ParseAction(id string, opts Options) (watchout.Action, error) {
	switch id {
	case ActionRun:
		return watchout.Run{Timeline: opts.Text("timeline")}, nil
	case ActionHalt:
		return watchout.Halt{Timeline: opts.Text("timeline")}, nil
	case ActionKill:
		return watchout.Kill{Timeline: opts.Text("timeline")}, nil
	case ActionReset:
		return watchout.Reset{}, nil
	case ActionGotoTime:
		t := opts.Text("time")
		switch {
		case t == "" || watchout.ValidTime(t):
		case watchout.IsClockTime(t):
			t = `"` + t + `"`
		default:
			return nil, &OptionError{Action: id, Option: "time", Value: t, Err: errors.New("want 1-12 digits or \"HH:MM:SS.mmm\"")}
		}
		return watchout.GotoTime{Time: t, Timeline: opts.Text("timeline")}, nil
	case ActionGotoCue:
		return watchout.GotoCue{Cue: opts.Text("cuename"), Timeline: opts.Text("timeline")}, nil
	case ActionOnline:
		return watchout.Online{Online: opts.Flag("online")}, nil
	case ActionStandby:
		return watchout.Standby{Standby: opts.Flag("standby"), FadeTime: opts.fadeTime("fadetime")}, nil
	case ActionSetInput:
		return parseSetInput(opts)
	case ActionLoad:
		return watchout.Load{Show: opts.Text("show")}, nil
	case ActionLayerCond:
		var a watchout.SetLayerConditions
		for i := range a.Conditions {
			a.Conditions[i] = opts.Checked(strconv.Itoa(i))
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAction, id)
}

func parseSetInput(opts Options) (watchout.Action, error) {
	a := watchout.SetInput{Name: opts.Text("inputname")}

	if s := strings.TrimSpace(opts.Text("inputvalue")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			if err == nil {
				err = strconv.ErrRange
			}
			return nil, &OptionError{Action: ActionSetInput, Option: "inputvalue", Value: s, Err: err}
		}
		a.Value = &v
	}

	if s := strings.TrimSpace(opts.Text("inputfade")); s != "" {
		n, err := parseInteger(s)
		if err != nil {
			return nil, &OptionError{Action: ActionSetInput, Option: "inputfade", Value: s, Err: err}
		}
		a.Fade = &n
	}
	return a, nil
}
