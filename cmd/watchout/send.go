package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"watchout/lib/adapter"
	"watchout/lib/watchout"
)

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <action> [option=value...]",
		Short: "Connect, run one action and disconnect",
		Example: `  watchout send run timeline=Main
  watchout send standby standby=true fadetime=2000 --host 192.168.1.20
  watchout send layerCond 0=true 4=true --type disp`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSend,
	}
	cmd.Flags().Duration("wait", watchout.DefaultDialTimeout, "How long to wait for the connection")
	return cmd
}

func parseOptions(args []string) (adapter.Options, error) {
	opts := adapter.Options{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("option %q: want key=value", arg)
		}
		opts[k] = v
	}
	return opts, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	id := args[0]
	if _, ok := adapter.Lookup(id); !ok {
		return fmt.Errorf("%w %q", adapter.ErrUnknownAction, id)
	}
	opts, err := parseOptions(args[1:])
	if err != nil {
		return err
	}

	c, err := newController(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	if c.cfg.Device.Host == "" {
		return fmt.Errorf("no device host configured")
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	if status := c.waitReady(wait); status != watchout.StatusConnected {
		return fmt.Errorf("%s: %s", c.cfg.Device.Addr(), status)
	}
	return c.adapter.Action(id, opts)
}

func newActionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "actions",
		Short:         "List the actions and their options",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := adapter.Definitions()
			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(defs)
			}
			return printActions(defs)
		},
	}
}

func printActions(defs []adapter.ActionDefinition) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tLABEL\tOPTIONS")
	for _, d := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, optionSummary(d))
	}
	return w.Flush()
}

func optionSummary(d adapter.ActionDefinition) string {
	if d.ID == adapter.ActionLayerCond {
		return fmt.Sprintf("0..%d (checkbox)", watchout.MaxConditions-1)
	}
	parts := make([]string, 0, len(d.Options))
	for _, f := range d.Options {
		p := f.ID
		if f.Default != nil && f.Default != "" {
			p += fmt.Sprintf("=%v", f.Default)
		}
		parts = append(parts, p)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
