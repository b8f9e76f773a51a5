package adapter

import (
	"fmt"
)

// Binding attaches an action invocation to a control, such as a surface
// button or a panel key.
type Binding struct {
	Action  string            `yaml:"action" json:"action"`
	Label   string            `yaml:"label,omitempty" json:"label,omitempty"`
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Validate checks that the action exists and that every option names one of
// its fields.
func (b Binding) Validate() error {
	def, ok := Lookup(b.Action)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownAction, b.Action)
	}
	for key := range b.Options {
		if !def.hasOption(key) {
			return fmt.Errorf("adapter: %s has no option %q", b.Action, key)
		}
	}
	return nil
}

// Title is the text a surface shows for the binding.
func (b Binding) Title() string {
	if b.Label != "" {
		return b.Label
	}
	if def, ok := Lookup(b.Action); ok {
		return def.Label
	}
	return b.Action
}

// Invoker runs actions by id; *Adapter is one.
type Invoker interface {
	Action(id string, opts Options) error
}

// Invoke runs the bound action on inv.
func (b Binding) Invoke(inv Invoker) error {
	opts := make(Options, len(b.Options))
	for k, v := range b.Options {
		opts[k] = v
	}
	return inv.Action(b.Action, opts)
}

func (d ActionDefinition) hasOption(id string) bool {
	for _, f := range d.Options {
		if f.ID == id {
			return true
		}
	}
	return false
}
