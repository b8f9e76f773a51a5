package adapter

import (
	"errors"
	"testing"
	"time"

	"watchout/lib/watchout"
)

func TestBindingValidate(t *testing.T) {
	tests := []struct {
		name    string
		binding Binding
		wantErr bool
	}{
		{"plain", Binding{Action: ActionReset}, false},
		{"with options", Binding{Action: ActionRun, Options: map[string]string{"timeline": "Main"}}, false},
		{"condition", Binding{Action: ActionLayerCond, Options: map[string]string{"29": "true"}}, false},
		{"unknown action", Binding{Action: "explode"}, true},
		{"unknown option", Binding{Action: ActionRun, Options: map[string]string{"cue": "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.binding.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	err := Binding{Action: "explode"}.Validate()
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("got %v, want ErrUnknownAction", err)
	}
}

func TestBindingTitle(t *testing.T) {
	if got := (Binding{Action: ActionStandby}).Title(); got != "Enter Standby" {
		t.Errorf("got %q", got)
	}
	if got := (Binding{Action: ActionRun, Label: "GO"}).Title(); got != "GO" {
		t.Errorf("got %q", got)
	}
}

func TestBindingInvoke(t *testing.T) {
	mock, _, host, a := setupTest(t, watchout.Config{Host: "10.0.0.2"})
	host.waitStatus(t, StatusOK)

	b := Binding{Action: ActionGotoCue, Options: map[string]string{"cuename": "Intro", "timeline": "Aux"}}
	if err := b.Invoke(a); err != nil {
		t.Fatal(err)
	}
	lines := mock.WaitLines(1, 2*time.Second)
	want := `gotoControlCue "Intro" false "Aux"`
	if len(lines) != 1 || lines[0] != want {
		t.Errorf("got %q, want [%q]", lines, want)
	}
}
