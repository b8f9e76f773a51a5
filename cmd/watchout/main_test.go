package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"watchout/lib/adapter"
	"watchout/lib/watchout"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"timeline=Main", "fadetime=2000", "show=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Text("timeline") != "Main" || opts.Text("fadetime") != "2000" || opts.Text("show") != "a=b" {
		t.Errorf("got %v", opts)
	}

	for _, bad := range []string{"timeline", "=x"} {
		if _, err := parseOptions([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestOptionSummary(t *testing.T) {
	standby, _ := adapter.Lookup(adapter.ActionStandby)
	if got := optionSummary(standby); got != "fadetime=1000 standby=true" {
		t.Errorf("got %q", got)
	}
	conds, _ := adapter.Lookup(adapter.ActionLayerCond)
	if got := optionSummary(conds); got != "0..29 (checkbox)" {
		t.Errorf("got %q", got)
	}
	reset, _ := adapter.Lookup(adapter.ActionReset)
	if got := optionSummary(reset); got != "" {
		t.Errorf("got %q", got)
	}
}

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("type", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLoadConfigFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchout.yaml")
	if err := os.WriteFile(path, []byte("device:\n  host: 10.0.0.1\n  type: prod\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(newTestCommand(t, "--config", path))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device.Host != "10.0.0.1" {
		t.Errorf("got host %q", cfg.Device.Host)
	}

	cfg, err = loadConfig(newTestCommand(t, "--config", path, "--host", "10.0.0.9", "--type", "disp"))
	if err != nil {
		t.Fatal(err)
	}
	want := watchout.Config{Host: "10.0.0.9", Type: watchout.DisplayCluster}
	if cfg.Device != want {
		t.Errorf("got %+v, want %+v", cfg.Device, want)
	}

	_, err = loadConfig(newTestCommand(t, "--host", "show-pc"))
	if err == nil || !strings.Contains(err.Error(), "IPv4") {
		t.Errorf("got %v, want IPv4 error", err)
	}
}
