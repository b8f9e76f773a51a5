package adapter

import (
	"strconv"

	"watchout/lib/watchout"
)

type FieldType string

const (
	TextInput FieldType = "textinput"
	Dropdown  FieldType = "dropdown"
	Number    FieldType = "number"
	Checkbox  FieldType = "checkbox"
)

const (
	RegexIP     = `/^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$/`
	RegexFloat  = `/^([0-9]*\.)?[0-9]+$/`
	RegexNumber = `/^\d+$/`
	regexTime   = `/^(\d{1,12}|"\d{1,2}:\d{1,2}:\d{1,2}\.\d{1,3}")$/`
	regexShow   = `/[a-zA-Z0-9\\\/:\.-_ ]+/`
)

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var yesNo = []Choice{
	{ID: "true", Label: "Yes"},
	{ID: "false", Label: "No"},
}

// Field describes one input of an action or of the configuration form.
type Field struct {
	Type     FieldType `json:"type"`
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Default  any       `json:"default,omitempty"`
	Regex    string    `json:"regex,omitempty"`
	Width    int       `json:"width,omitempty"`
	Min      *int      `json:"min,omitempty"`
	Max      *int      `json:"max,omitempty"`
	Required bool      `json:"required,omitempty"`
	Choices  []Choice  `json:"choices,omitempty"`
}

type ActionDefinition struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Options []Field `json:"options,omitempty"`
}

const (
	ActionRun       = "run"
	ActionHalt      = "halt"
	ActionKill      = "kill"
	ActionReset     = "reset"
	ActionGotoTime  = "gototime"
	ActionGotoCue   = "gotocue"
	ActionOnline    = "online"
	ActionStandby   = "standby"
	ActionSetInput  = "setinput"
	ActionLoad      = "load"
	ActionLayerCond = "layerCond"
)

// ConfigFields describes the device configuration form.
func ConfigFields() []Field {
	return []Field{
		{
			Type:  TextInput,
			ID:    "host",
			Label: "Watchout Computer IP",
			Width: 6,
			Regex: RegexIP,
		},
		{
			Type:    Dropdown,
			ID:      "type",
			Label:   "Type",
			Default: string(watchout.Production),
			Choices: []Choice{
				{ID: string(watchout.Production), Label: watchout.Production.String()},
				{ID: string(watchout.DisplayCluster), Label: watchout.DisplayCluster.String()},
			},
		},
	}
}

func timelineField(label string) Field {
	return Field{Type: TextInput, ID: "timeline", Label: label, Default: ""}
}

// ConditionFields returns one checkbox per layer condition, with ids "0"
// to "29" and labels "Condition 1" to "Condition 30".
func ConditionFields() []Field {
	fields := make([]Field, watchout.MaxConditions)
	for i := range fields {
		fields[i] = Field{
			Type:    Checkbox,
			ID:      strconv.Itoa(i),
			Label:   "Condition " + strconv.Itoa(i+1),
			Default: false,
		}
	}
	return fields
}

var definitions = buildActions()

// Definitions returns the schema of every action the adapter supports.
func Definitions() []ActionDefinition {
	return definitions
}

// Lookup returns the schema entry for an action id.
func Lookup(id string) (ActionDefinition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return ActionDefinition{}, false
}

func buildActions() []ActionDefinition {
	minFade, maxFade := 0, watchout.MaxFadeTime
	return []ActionDefinition{
		{ID: ActionRun, Label: "Run", Options: []Field{timelineField("timeline (optional)")}},
		{ID: ActionHalt, Label: "Pause", Options: []Field{timelineField("timeline (optional)")}},
		{ID: ActionKill, Label: "Kill", Options: []Field{timelineField("Aux timeline")}},
		{ID: ActionReset, Label: "Reset"},
		{ID: ActionGotoTime, Label: "Jump to time", Options: []Field{
			{Type: TextInput, ID: "time", Label: "time position", Default: `"00:00:00.000"`, Regex: regexTime},
			timelineField("timeline (optional)"),
		}},
		{ID: ActionGotoCue, Label: "Jump to cue", Options: []Field{
			{Type: TextInput, ID: "cuename", Label: "Cue name", Default: ""},
			timelineField("timeline (optional)"),
		}},
		{ID: ActionOnline, Label: "Go online", Options: []Field{
			{Type: Dropdown, ID: "online", Label: "go online", Default: "true", Choices: yesNo},
		}},
		{ID: ActionStandby, Label: "Enter Standby", Options: []Field{
			{Type: Dropdown, ID: "standby", Label: "Enter Standby", Default: "true", Choices: yesNo},
			{Type: Number, ID: "fadetime", Label: "Fade time in ms", Default: watchout.DefaultFadeTime, Min: &minFade, Max: &maxFade, Required: true},
		}},
		{ID: ActionSetInput, Label: "Set Input", Options: []Field{
			{Type: TextInput, ID: "inputname", Label: "Input Name", Default: ""},
			{Type: TextInput, ID: "inputvalue", Label: "Value", Default: "1.0", Regex: RegexFloat},
			{Type: TextInput, ID: "inputfade", Label: "Fadetime (ms)", Default: "0", Regex: RegexNumber},
		}},
		{ID: ActionLoad, Label: "Load Show", Options: []Field{
			{Type: TextInput, ID: "show", Label: "Showfile or Showname", Default: "", Regex: regexShow},
		}},
		{ID: ActionLayerCond, Label: "Set Layer Conditions", Options: ConditionFields()},
	}
}

// Defaults returns the default option values of an action definition.
func (d ActionDefinition) Defaults() Options {
	opts := make(Options, len(d.Options))
	for _, f := range d.Options {
		if f.Default != nil {
			opts[f.ID] = f.Default
		}
	}
	return opts
}
