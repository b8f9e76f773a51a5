package main

import (
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the HTTP control panel, optionally with hardware surfaces",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	cmd.Flags().String("listen", "", "Panel listen address (overrides config)")
	cmd.Flags().Bool("xtouch", false, "Also run the X-Touch surface")
	cmd.Flags().Bool("deck", false, "Also run the Stream Deck surface")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := newController(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := c.cfg.Panel.Listen
	if cmd.Flags().Changed("listen") {
		addr, _ = cmd.Flags().GetString("listen")
	}
	c.startPanel(addr)

	if on, _ := cmd.Flags().GetBool("xtouch"); on {
		if err := c.startXTouch(); err != nil {
			return err
		}
	}
	if on, _ := cmd.Flags().GetBool("deck"); on {
		if err := c.startDeck(); err != nil {
			return err
		}
	}

	waitForSignal()
	return nil
}
